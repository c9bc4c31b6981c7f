package csv

import (
	"context"

	"babylon/recordstore/model"
)

// Parser defines the interface for parsing CSV data.
type Parser interface {
	Parse(ctx context.Context, filePath string) ([]model.Raw, int64, error)
}
