package model

// PreviewLimit bounds the stored content preview, in runes.
const PreviewLimit = 500

// Extraction carries optional metadata from the upstream extractor.
type Extraction struct {
	Confidence float64 `json:"confidence"`
	DataType   string  `json:"dataType"`
}

// UploadedFile is the write-only audit record of an inbound file.
type UploadedFile struct {
	ContentPreview string      `json:"contentPreview"`
	FileType       string      `json:"fileType"`
	Timestamp      string      `json:"timestamp"`
	Extraction     *Extraction `json:"extraction"`
}

// Preview truncates content to PreviewLimit runes.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLimit {
		return content
	}
	return string(runes[:PreviewLimit])
}
