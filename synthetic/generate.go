package synthetic

import (
	"context"
	"fmt"

	"babylon/recordstore/appcontext"
	"babylon/recordstore/model"
	"babylon/recordstore/records"
)

// Writer defines the record writes used when persisting synthetic data.
type Writer interface {
	WriteCustomer(ctx context.Context, raw model.Raw) records.WriteResult
	WriteFinancial(ctx context.Context, raw model.Raw) records.WriteResult
}

// Options controls RunGenerateSyntheticData.
type Options struct {
	Rows    int
	Dir     string
	Seed    int64
	Persist bool
}

// RunGenerateSyntheticData writes synthetic record files to opts.Dir, or
// writes the records straight through W when opts.Persist is set.
func RunGenerateSyntheticData(ctx context.Context, w Writer, opts Options) error {
	logger := appcontext.LoggerFromContext(ctx)

	if opts.Persist {
		if w == nil {
			return fmt.Errorf("persisting synthetic data requires a record writer")
		}
		written, rejected := GenerateAndPersistSyntheticData(ctx, w, opts.Rows, opts.Seed)
		logger.InfoContext(ctx, "Synthetic data generated and persisted", "written", written, "rejected", rejected)
		return nil
	}

	logger.InfoContext(ctx, "Generating synthetic data", "rows", opts.Rows, "dir", opts.Dir)
	paths, err := GenerateSyntheticData(opts.Rows, opts.Dir, opts.Seed)
	if err != nil {
		return fmt.Errorf("failed to generate synthetic data: %w", err)
	}
	logger.InfoContext(ctx, "Synthetic data generated successfully", "files", paths)
	return nil
}

// GenerateAndPersistSyntheticData writes ROWS customers and ROWS financial
// records through W and returns how many were accepted and rejected.
func GenerateAndPersistSyntheticData(ctx context.Context, w Writer, rows int, seed int64) (int, int) {
	logger := appcontext.LoggerFromContext(ctx)
	g := NewGenerator(seed)

	written, rejected := 0, 0
	tally := func(result records.WriteResult) {
		if result.OK() {
			written++
			return
		}
		rejected++
		logger.DebugContext(ctx, "Synthetic record rejected", "error", result.Err)
	}
	for _, raw := range g.Customers(rows) {
		tally(w.WriteCustomer(ctx, raw))
	}
	for _, raw := range g.Financials(rows) {
		tally(w.WriteFinancial(ctx, raw))
	}
	return written, rejected
}
