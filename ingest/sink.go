package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"babylon/recordstore/appcontext"
	"babylon/recordstore/config"
	csvparser "babylon/recordstore/csv"
	"babylon/recordstore/model"
	"babylon/recordstore/records"
)

// RecordWriter defines the write operations the sink drives.
type RecordWriter interface {
	WriteCustomer(ctx context.Context, raw model.Raw) records.WriteResult
	WriteFinancial(ctx context.Context, raw model.Raw) records.WriteResult
	RecordUpload(ctx context.Context, content, fileType string, extraction *model.Extraction) records.WriteResult
}

// SinkDependencies holds all the dependencies for the Sink.
type SinkDependencies struct {
	Config    *config.Config
	Writer    RecordWriter
	Extractor KindExtractor
	Parser    csvparser.Parser
}

// Sink reads record files from a directory and writes every record
// through a RecordWriter.
type Sink struct {
	deps               SinkDependencies
	UnprocessedDir     string
	ProcessedDir       string
	MoveProcessedFiles bool
}

// NewSink creates a new Sink instance.
func NewSink(deps SinkDependencies) *Sink {
	if deps.Extractor == nil {
		deps.Extractor = NewFilenameExtractor()
	}
	if deps.Parser == nil {
		deps.Parser = csvparser.NewRecordParser()
	}
	return &Sink{
		deps:               deps,
		UnprocessedDir:     deps.Config.UnprocessedDir,
		ProcessedDir:       deps.Config.ProcessedDir,
		MoveProcessedFiles: deps.Config.MoveProcessedFiles,
	}
}

// Ingest handles the main data ingestion process.
func (s *Sink) Ingest(ctx context.Context) (*Stats, error) {
	logger := appcontext.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "Starting data ingestion process")

	if _, err := os.Stat(s.UnprocessedDir); err != nil {
		logger.ErrorContext(
			ctx,
			"The directory does not exist. Please create it and place your record files inside.",
			"dir", s.UnprocessedDir,
			"error", err,
		)
		return nil, fmt.Errorf("stat check for directory %s: %w", s.UnprocessedDir, err)
	}

	files, err := os.ReadDir(s.UnprocessedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	stats := NewStats()
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		stats.TotalFiles++
		if !validateFile(file) {
			reason := "Not a .json, .jsonl or .csv file"
			stats.AddFailure(file.Name(), reason)
			logger.WarnContext(ctx, "file was not processed", "fileName", file.Name(), "reason", reason)
			continue
		}
		if err := s.processFile(ctx, file, stats); err != nil {
			stats.AddFailure(file.Name(), err.Error())
			logger.ErrorContext(ctx, "failed to process file", "file", file.Name(), "error", err)
			continue
		}
		stats.IncrementProcessed()
	}

	logger.InfoContext(ctx, "Data ingestion process completed.")
	stats.Log(logger)
	return stats, nil
}

// Return true only if FILE has a supported extension.
func validateFile(file os.DirEntry) bool {
	switch strings.ToLower(filepath.Ext(file.Name())) {
	case ".json", ".jsonl", ".csv":
		return true
	}
	return false
}

func (s *Sink) processFile(ctx context.Context, file os.DirEntry, stats *Stats) error {
	logger := appcontext.LoggerFromContext(ctx)

	cleanFileName := filepath.Clean(file.Name())
	if strings.HasPrefix(cleanFileName, "..") || filepath.IsAbs(cleanFileName) {
		return csvparser.ValidFileNotFoundError(file.Name())
	}
	filePath := filepath.Join(s.UnprocessedDir, cleanFileName)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(cleanFileName))
	var rawRecords []model.Raw
	switch ext {
	case ".csv":
		rawRecords, _, err = s.deps.Parser.Parse(ctx, filePath)
	case ".jsonl":
		rawRecords, err = decodeJSONLines(content)
	default:
		rawRecords, err = decodeJSON(content)
	}
	if err != nil {
		return err
	}

	kind, err := s.deps.Extractor.ExtractKind(cleanFileName)
	if err != nil {
		kind = kindFromContent(string(content))
		logger.DebugContext(ctx, "Classified file by content", "file", cleanFileName, "kind", kind)
	}

	upload := s.deps.Writer.RecordUpload(ctx, string(content), strings.TrimPrefix(ext, "."), nil)
	if !upload.OK() {
		logger.WarnContext(ctx, "Failed to record uploaded file", "file", cleanFileName, "error", upload.Err)
	}

	for i, raw := range rawRecords {
		var result records.WriteResult
		if kind == Customer {
			result = s.deps.Writer.WriteCustomer(ctx, raw)
		} else {
			result = s.deps.Writer.WriteFinancial(ctx, raw)
		}
		if !result.OK() {
			stats.RecordsRejected++
			logger.WarnContext(ctx, "Record rejected", "file", cleanFileName, "record", i, "error", result.Err)
			continue
		}
		stats.RecordsWritten++
		if result.IsUpdate {
			stats.RecordsMerged++
		}
		if result.Location.IsFallback() {
			stats.FallbackWrites++
		}
	}

	if s.MoveProcessedFiles {
		if err := moveFile(filePath, s.ProcessedDir); err != nil {
			return fmt.Errorf("failed to move file: %w", err)
		}
	}
	return nil
}

// decodeJSON accepts a single object or an array of objects.
func decodeJSON(content []byte) ([]model.Raw, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	if trimmed[0] == '[' {
		var list []map[string]any
		if err := decoder.Decode(&list); err != nil {
			return nil, fmt.Errorf("failed to decode JSON array: %w", err)
		}
		out := make([]model.Raw, 0, len(list))
		for _, m := range list {
			if m != nil {
				out = append(out, model.Raw(m))
			}
		}
		return out, nil
	}

	var single map[string]any
	if err := decoder.Decode(&single); err != nil {
		return nil, fmt.Errorf("failed to decode JSON object: %w", err)
	}
	return []model.Raw{model.Raw(single)}, nil
}

// decodeJSONLines reads one JSON object per non-blank line.
func decodeJSONLines(content []byte) ([]model.Raw, error) {
	var out []model.Raw
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		decoder := json.NewDecoder(bytes.NewReader(text))
		decoder.UseNumber()
		var m map[string]any
		if err := decoder.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode JSON line %d: %w", line, err)
		}
		out = append(out, model.Raw(m))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan JSON lines: %w", err)
	}
	return out, nil
}

func moveFile(filePath, processedDir string) error {
	var err error
	if _, err = os.Stat(processedDir); os.IsNotExist(err) {
		if err = os.MkdirAll(processedDir, 0o750); err != nil {
			return fmt.Errorf("failed to create processed directory '%s': %w", processedDir, err)
		}
	}

	fileName := filepath.Base(filePath)
	newPath := filepath.Join(processedDir, fileName)

	if err = os.Rename(filePath, newPath); err != nil {
		return fmt.Errorf("failed to move file from '%s' to '%s': %w", filePath, newPath, err)
	}

	return nil
}
