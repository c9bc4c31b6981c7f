package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"babylon/recordstore/appcontext"
	"babylon/recordstore/model"
)

var errTargetFileNotFound = errors.New("the valid target file was not found")
var errProcessCsv = errors.New("error while parsing CSV file")

func ValidFileNotFoundError(path string) error {
	return fmt.Errorf("%w, %s", errTargetFileNotFound, path)
}

func ProcessCsvError(filename string) error {
	return fmt.Errorf("%s, %w", filename, errProcessCsv)
}

// RecordParser reads every row of a CSV file as a raw record keyed by header.
type RecordParser struct{}

// NewRecordParser creates a new RecordParser.
func NewRecordParser() *RecordParser {
	return &RecordParser{}
}

// Parse implements Parser.
func (p *RecordParser) Parse(ctx context.Context, filePath string) ([]model.Raw, int64, error) {
	return ParseCSV(ctx, filePath)
}

// ParseCSV reads a CSV file and returns one raw record per row. Header
// names are kept as written; empty cells are omitted so that they read
// as absent. Rows with fewer cells than the header are skipped.
func ParseCSV(ctx context.Context, filePath string) ([]model.Raw, int64, error) {
	logger := appcontext.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "Parsing data from csv", "filePath", filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to read CSV header from file %s: %w", filePath, err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	}

	var records []model.Raw
	var rowsRead int64
	for {
		row, readErr := reader.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("%w: %w", ProcessCsvError(filePath), readErr)
		}
		rowsRead++

		if len(row) < len(header) {
			logger.WarnContext(ctx, "Skipping invalid record", "reason", "not enough columns", "file", filePath, "row", rowsRead)
			continue
		}

		record := make(model.Raw, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if value := strings.TrimSpace(safeGet(row, i)); value != "" {
				record[col] = value
			}
		}
		if len(record) == 0 {
			continue
		}
		records = append(records, record)
	}

	return records, rowsRead, nil
}

// safeGet retrieves slice[index] safely.
func safeGet(slice []string, index int) string {
	if index < len(slice) {
		return slice[index]
	}

	return ""
}
