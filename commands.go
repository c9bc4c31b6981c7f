package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"babylon/recordstore/aggregate"
	"babylon/recordstore/category"
	"babylon/recordstore/ingest"
	"babylon/recordstore/model"
	"babylon/recordstore/records"
	"babylon/recordstore/storage"
	"babylon/recordstore/synthetic"
)

func writeCustomerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-customer [json]",
		Short: "Create or merge a customer record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRecord(cmd, args)
			if err != nil {
				return err
			}
			return printResult(cmd, a.service.WriteCustomer(cmd.Context(), raw))
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the record from a file instead of the argument or stdin")
	return cmd
}

func writeFinancialCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-financial [json]",
		Short: "Store a financial record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRecord(cmd, args)
			if err != nil {
				return err
			}
			return printResult(cmd, a.service.WriteFinancial(cmd.Context(), raw))
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the record from a file instead of the argument or stdin")
	return cmd
}

func recordUploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record-upload",
		Short: "Record an audit entry for an uploaded file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			fileType, _ := cmd.Flags().GetString("type")
			if path == "" {
				return errors.New("--file is required")
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			return printResult(cmd, a.service.RecordUpload(cmd.Context(), string(content), fileType, nil))
		},
	}
	cmd.Flags().StringP("file", "f", "", "File to record")
	cmd.Flags().StringP("type", "t", "", "File type (csv, pdf, ...)")
	return cmd
}

func dumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every stored record as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := a.service.ReadAll(cmd.Context())
			if printErr := printJSON(cmd, snapshot); printErr != nil {
				return printErr
			}
			return err
		},
	}
}

func clearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored record",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.service.ClearAll(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records\n", result.Total())
			return err
		},
	}
}

func setCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-category <category>",
		Short: "Assign a category to every stored customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.service.SetCategoryForAllCustomers(cmd.Context(), args[0])
			if errors.Is(err, category.ErrInvalid) {
				return fmt.Errorf("%w (valid: %v)", err, category.All())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d customers now have category %q\n", n, args[0])
			return err
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show customer counts by category and financial totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view := a.service.View()
			out := cmd.OutOrStdout()

			counts := view.CountByCategory(ctx)
			buckets := make([]string, 0, len(counts))
			for bucket := range counts {
				buckets = append(buckets, bucket)
			}
			sort.Strings(buckets)

			fmt.Fprintln(out, "Customers by category:")
			for _, bucket := range buckets {
				fmt.Fprintf(out, "  %-14s %d\n", bucket, counts[bucket])
			}

			totals := view.FinancialTotals(ctx)
			fmt.Fprintf(out, "Financial records: %d\n", totals.Records)
			for _, c := range model.FinancialCategories() {
				for _, currency := range totals.Currencies(c) {
					fmt.Fprintf(out, "  %-10s %-4s %s\n", c, currency, totals.Sum(c, currency).StringFixed(2))
				}
			}
			return nil
		},
	}
}

func findCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Look up records by email, id or customer category",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			id, _ := cmd.Flags().GetString("id")
			collection, _ := cmd.Flags().GetString("collection")
			rawCategory, _ := cmd.Flags().GetString("category")
			ctx := cmd.Context()
			view := a.service.View()

			switch {
			case email != "":
				entry, ok := view.LookupByEmail(ctx, email)
				if !ok {
					return fmt.Errorf("no customer with email %q", email)
				}
				return printJSON(cmd, entry)
			case id != "":
				data, ok := view.LookupByID(ctx, collection, id)
				if !ok {
					return fmt.Errorf("no record %q in %s", id, collection)
				}
				return printJSON(cmd, struct {
					ID     string          `json:"id"`
					Record json.RawMessage `json:"record"`
				}{ID: id, Record: data})
			case rawCategory != "":
				if _, ok := category.Normalize(ctx, rawCategory); !ok {
					return fmt.Errorf("%w (valid: %v)", category.InvalidError(rawCategory), category.All())
				}
				entries := view.FilterByCategory(ctx, category.Category(rawCategory))
				if entries == nil {
					entries = []aggregate.CustomerEntry{}
				}
				return printJSON(cmd, entries)
			default:
				return errors.New("one of --email, --id or --category is required")
			}
		},
	}
	cmd.Flags().String("email", "", "Customer email, matched ignoring case")
	cmd.Flags().String("id", "", "Record id")
	cmd.Flags().String("collection", model.CustomerInfo, "Collection searched by --id")
	cmd.Flags().String("category", "", "Customer category or synonym")
	cmd.MarkFlagsMutuallyExclusive("email", "id", "category")
	return cmd
}

func syncFallbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-fallback",
		Short: "Push locally saved blobs to the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.adapter.SyncFallback(cmd.Context())
			if errors.Is(err, storage.ErrNoRemote) {
				return errors.New("no remote store configured; set STORE_URI")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d blobs\n", n)
			return err
		},
	}
}

func ingestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Write every record file in the unprocessed directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := ingest.NewSink(ingest.SinkDependencies{
				Config: a.cfg,
				Writer: a.service,
			})
			if _, err := sink.Ingest(cmd.Context()); err != nil {
				return fmt.Errorf("ingestion of record files failed: %w", err)
			}
			return nil
		},
	}
}

func generateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-synthetic-data",
		Short: "Generate synthetic customer and financial records",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := synthetic.Options{Rows: a.cfg.SyntheticDataRows, Dir: a.cfg.SyntheticDataDir}
			if cmd.Flags().Changed("rows") {
				opts.Rows, _ = cmd.Flags().GetInt("rows")
			}
			if cmd.Flags().Changed("dir") {
				opts.Dir, _ = cmd.Flags().GetString("dir")
			}
			opts.Seed, _ = cmd.Flags().GetInt64("seed")
			opts.Persist, _ = cmd.Flags().GetBool("persist")
			return synthetic.RunGenerateSyntheticData(cmd.Context(), a.service, opts)
		},
	}
	cmd.Flags().Int("rows", 0, "Number of rows to generate (default SYNTHETIC_DATA_ROWS)")
	cmd.Flags().String("dir", "", "Directory to write synthetic data to (default SYNTHETIC_DATA_DIR)")
	cmd.Flags().Int64("seed", 1, "Random seed")
	cmd.Flags().Bool("persist", false, "Write records through the store instead of to files")
	return cmd
}

// readRecord decodes one JSON object from the argument, --file, or stdin,
// in that order. Numbers are kept as json.Number.
func readRecord(cmd *cobra.Command, args []string) (model.Raw, error) {
	var body []byte
	var err error
	path, _ := cmd.Flags().GetString("file")
	switch {
	case len(args) == 1:
		body = []byte(args[0])
	case path != "":
		body, err = os.ReadFile(path)
	default:
		body, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var raw model.Raw
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}
	return raw, nil
}

func printResult(cmd *cobra.Command, result records.WriteResult) error {
	out := struct {
		Status        string           `json:"status"`
		ID            string           `json:"id,omitempty"`
		Location      storage.Location `json:"location,omitempty"`
		IsUpdate      bool             `json:"isUpdate"`
		MissingFields []string         `json:"missingFields,omitempty"`
		Message       string           `json:"message"`
		Record        any              `json:"record,omitempty"`
	}{
		Status:        result.Status,
		ID:            result.ID,
		Location:      result.Location,
		IsUpdate:      result.IsUpdate,
		MissingFields: result.MissingFields,
		Message:       result.Message,
		Record:        result.StoredRecord,
	}
	if err := printJSON(cmd, out); err != nil {
		return err
	}
	return result.Err
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
