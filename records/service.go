// Package records is the entry point for writing and reading customer,
// financial and uploaded-file records.
package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"babylon/recordstore/aggregate"
	"babylon/recordstore/appcontext"
	"babylon/recordstore/category"
	"babylon/recordstore/identity"
	"babylon/recordstore/model"
	"babylon/recordstore/repository"
	"babylon/recordstore/storage"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WriteResult reports the outcome of a single write.
type WriteResult struct {
	Status        string
	ID            string
	Location      storage.Location
	StoredRecord  any
	EnteredFields map[string]any
	MissingFields []string
	IsUpdate      bool
	Message       string
	Err           error
}

// OK reports whether the write succeeded.
func (r WriteResult) OK() bool {
	return r.Status == StatusSuccess
}

// Service writes and reads records through a Repository.
type Service struct {
	repo    *repository.Repository
	matcher *identity.Matcher
	view    *aggregate.View
	now     func() time.Time
}

// New creates a Service over REPO.
func New(repo *repository.Repository) *Service {
	return &Service{
		repo:    repo,
		matcher: identity.NewMatcher(repo),
		view:    aggregate.New(repo),
		now:     time.Now,
	}
}

// WithClock replaces the timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// View returns the aggregate read views over the same repository.
func (s *Service) View() *aggregate.View {
	return s.view
}

func (s *Service) timestamp(provided string) string {
	if t, ok := model.ParseTimestamp(provided); ok {
		return model.FormatTimestamp(t)
	}
	return model.FormatTimestamp(s.now())
}

// WriteCustomer validates RAW, resolves it against stored customers and
// either creates a new record or replaces the matched one with the merge.
func (s *Service) WriteCustomer(ctx context.Context, raw model.Raw) WriteResult {
	logger := appcontext.LoggerFromContext(ctx)

	incoming := model.ParseCustomer(ctx, raw)
	if !incoming.Substantive() {
		return failure(model.ValidationError("customer information", model.CustomerFields), incoming.MissingFields())
	}
	incoming.Timestamp = s.timestamp(incoming.Timestamp)
	entered, missing := incoming.EnteredFields(), incoming.MissingFields()

	match, err := s.matcher.FindExisting(ctx, incoming.Name, incoming.Email)
	if err != nil {
		logger.WarnContext(ctx, "Proceeding with an incomplete duplicate check", "error", err)
	}

	if match == nil {
		id, location, err := s.repo.Create(ctx, model.CustomerInfo, incoming)
		if err != nil {
			return failure(err, missing)
		}
		logger.InfoContext(ctx, "Stored customer info", "id", id, "location", location, "entered", keys(entered))
		return WriteResult{
			Status:        StatusSuccess,
			ID:            id,
			Location:      location,
			StoredRecord:  incoming,
			EnteredFields: entered,
			MissingFields: missing,
			Message:       successMessage("Successfully entered customer information", entered, missing, location),
		}
	}

	merged := identity.Merge(ctx, match.Customer, incoming)
	id, location, err := s.repo.Replace(ctx, model.CustomerInfo, match.ID, merged)
	if err != nil {
		return failure(err, missing)
	}
	logger.InfoContext(ctx, "Merged customer info into existing record",
		"match", match.Describe(), "id", id, "location", location)
	return WriteResult{
		Status:        StatusSuccess,
		ID:            id,
		Location:      location,
		StoredRecord:  merged,
		EnteredFields: entered,
		MissingFields: missing,
		IsUpdate:      true,
		Message:       successMessage("Updated existing customer "+match.By+" match", entered, missing, location),
	}
}

// WriteFinancial validates RAW and appends it as a new financial record.
func (s *Service) WriteFinancial(ctx context.Context, raw model.Raw) WriteResult {
	logger := appcontext.LoggerFromContext(ctx)

	record := model.ParseFinancial(ctx, raw)
	if !record.Substantive() {
		return failure(model.ValidationError("financial data", model.FinancialFields), record.MissingFields())
	}
	record.Timestamp = s.timestamp(record.Timestamp)
	entered, missing := record.EnteredFields(), record.MissingFields()

	id, location, err := s.repo.Create(ctx, model.FinancialData, record)
	if err != nil {
		return failure(err, missing)
	}
	logger.InfoContext(ctx, "Stored financial data", "id", id, "location", location, "entered", keys(entered))
	return WriteResult{
		Status:        StatusSuccess,
		ID:            id,
		Location:      location,
		StoredRecord:  record,
		EnteredFields: entered,
		MissingFields: missing,
		Message:       successMessage("Successfully entered financial data", entered, missing, location),
	}
}

// RecordUpload stores an audit entry for an uploaded file. Without
// extraction metadata the content is classified by keyword.
func (s *Service) RecordUpload(ctx context.Context, content, fileType string, extraction *model.Extraction) WriteResult {
	logger := appcontext.LoggerFromContext(ctx)

	fileType = strings.TrimSpace(fileType)
	if fileType == "" {
		fileType = "unknown"
	}
	if extraction == nil {
		suggestion := SuggestDataType(content)
		extraction = &model.Extraction{Confidence: suggestion.Confidence, DataType: suggestion.DataType}
	}
	upload := model.UploadedFile{
		ContentPreview: model.Preview(content),
		FileType:       fileType,
		Timestamp:      model.FormatTimestamp(s.now()),
		Extraction:     extraction,
	}

	id, location, err := s.repo.Create(ctx, model.UploadedFiles, upload)
	if err != nil {
		return failure(err, nil)
	}
	logger.InfoContext(ctx, "Stored uploaded file", "id", id, "file_type", fileType, "data_type", extraction.DataType)
	return WriteResult{
		Status:       StatusSuccess,
		ID:           id,
		Location:     location,
		StoredRecord: upload,
		Message:      fmt.Sprintf("File recorded. Suggested data type: %s", extraction.DataType),
	}
}

// Snapshot is every stored record, grouped by collection.
type Snapshot struct {
	Customers  []repository.Decoded[model.Customer]     `json:"customerInfo"`
	Financials []repository.Decoded[model.Financial]    `json:"financialData"`
	Uploads    []repository.Decoded[model.UploadedFile] `json:"uploadedFiles"`
}

// ReadAll returns every stored record. When a collection could only be
// read partially the snapshot holds what was read and the errors are
// returned joined.
func (s *Service) ReadAll(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	var errs []error
	var err error

	if snapshot.Customers, err = repository.ListAs[model.Customer](ctx, s.repo, model.CustomerInfo); err != nil {
		errs = append(errs, err)
	}
	if snapshot.Financials, err = repository.ListAs[model.Financial](ctx, s.repo, model.FinancialData); err != nil {
		errs = append(errs, err)
	}
	if snapshot.Uploads, err = repository.ListAs[model.UploadedFile](ctx, s.repo, model.UploadedFiles); err != nil {
		errs = append(errs, err)
	}
	return snapshot, errors.Join(errs...)
}

// ClearResult counts deleted records per collection.
type ClearResult struct {
	Deleted map[string]int
}

// Total is the number of records deleted across collections.
func (r ClearResult) Total() int {
	total := 0
	for _, n := range r.Deleted {
		total += n
	}
	return total
}

// ClearAll deletes every record in every collection.
func (s *Service) ClearAll(ctx context.Context) (ClearResult, error) {
	logger := appcontext.LoggerFromContext(ctx)
	result := ClearResult{Deleted: make(map[string]int, len(model.Collections()))}

	var errs []error
	for _, collection := range model.Collections() {
		n, err := s.repo.Clear(ctx, collection)
		result.Deleted[collection] = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	logger.InfoContext(ctx, "Cleared storage", "deleted", result.Total())
	return result, errors.Join(errs...)
}

// SetCategoryForAllCustomers assigns RAW, once normalized, to every stored
// customer and returns how many customers now carry it. An unrecognized
// category is refused with category.ErrInvalid.
func (s *Service) SetCategoryForAllCustomers(ctx context.Context, raw string) (int, error) {
	logger := appcontext.LoggerFromContext(ctx)

	target, ok := category.Normalize(ctx, raw)
	if !ok {
		return 0, category.InvalidError(raw)
	}

	customers, err := repository.ListAs[model.Customer](ctx, s.repo, model.CustomerInfo)
	if err != nil {
		return 0, fmt.Errorf("set category: %w", err)
	}

	count := 0
	var errs []error
	for _, decoded := range customers {
		c := decoded.Record
		if c.Category != nil && *c.Category == target {
			count++
			continue
		}
		c.Category = &target
		if _, _, err := s.repo.Replace(ctx, model.CustomerInfo, decoded.ID, c); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	logger.InfoContext(ctx, "Set category for all customers", "category", target, "customers", count)
	if len(errs) > 0 {
		return count, fmt.Errorf("set category: %w", errors.Join(errs...))
	}
	return count, nil
}

func failure(err error, missing []string) WriteResult {
	if missing == nil {
		missing = []string{}
	}
	return WriteResult{
		Status:        StatusError,
		MissingFields: missing,
		Message:       err.Error(),
		Err:           err,
	}
}

func successMessage(prefix string, entered map[string]any, missing []string, location storage.Location) string {
	var b strings.Builder
	b.WriteString(prefix)
	fmt.Fprintf(&b, ". Entered: %s.", strings.Join(keys(entered), ", "))
	if len(missing) > 0 {
		fmt.Fprintf(&b, " Missing fields set to null: %s.", strings.Join(missing, ", "))
	}
	if location.IsFallback() {
		b.WriteString(" Remote store unavailable, saved locally for later sync.")
	}
	return b.String()
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
