package ingest

import (
	"errors"
	"regexp"
	"strings"

	"babylon/recordstore/model"
	"babylon/recordstore/records"
)

// Kind is the record kind a file holds.
type Kind string

const (
	// Customer files hold customer_info records.
	Customer Kind = "customer"
	// Financial files hold financial_data records.
	Financial Kind = "financial"
)

// ErrUnableToExtractKind is returned when the extractor cannot classify the filename.
var ErrUnableToExtractKind = errors.New("unable to extract record kind from filename")

// KindExtractor defines the interface for classifying a file by its name.
type KindExtractor interface {
	ExtractKind(filename string) (Kind, error)
}

var (
	customerNamePattern  = regexp.MustCompile(`customer|client|contact|crm`)
	financialNamePattern = regexp.MustCompile(`financ|transaction|invoice|ledger|statement|expense|income|chase\d{4}`)
)

// FilenameExtractor classifies files from keywords in their names.
type FilenameExtractor struct{}

// NewFilenameExtractor creates a new FilenameExtractor.
func NewFilenameExtractor() *FilenameExtractor {
	return &FilenameExtractor{}
}

// ExtractKind implements KindExtractor.
func (e *FilenameExtractor) ExtractKind(filename string) (Kind, error) {
	lowerFileName := strings.ToLower(filename)

	customer := customerNamePattern.MatchString(lowerFileName)
	financial := financialNamePattern.MatchString(lowerFileName)
	switch {
	case customer && !financial:
		return Customer, nil
	case financial && !customer:
		return Financial, nil
	}
	return "", ErrUnableToExtractKind
}

// kindFromContent falls back to keyword scoring of the file content.
func kindFromContent(content string) Kind {
	if records.SuggestDataType(content).DataType == model.CustomerInfo {
		return Customer
	}
	return Financial
}
