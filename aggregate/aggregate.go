// Package aggregate provides read-only views over stored records. Every
// view degrades to an empty result when the store cannot be listed.
package aggregate

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"babylon/recordstore/appcontext"
	"babylon/recordstore/category"
	"babylon/recordstore/model"
	"babylon/recordstore/repository"
)

// Lister defines the read access the views need.
type Lister interface {
	List(ctx context.Context, collection string) ([]repository.Entry, error)
}

// CustomerEntry is a stored customer with its id.
type CustomerEntry struct {
	ID       string         `json:"id"`
	Customer model.Customer `json:"record"`
}

// View answers aggregate queries over a Lister.
type View struct {
	store Lister
}

// New creates a View over STORE.
func New(store Lister) *View {
	return &View{store: store}
}

// customers lists and decodes every customer. A list error is logged and
// yields whatever could be read.
func (v *View) customers(ctx context.Context) []CustomerEntry {
	logger := appcontext.LoggerFromContext(ctx)
	entries, err := v.store.List(ctx, model.CustomerInfo)
	if err != nil {
		logger.WarnContext(ctx, "Customer list failed, aggregate may be incomplete", "error", err)
	}
	out := make([]CustomerEntry, 0, len(entries))
	for _, entry := range entries {
		var c model.Customer
		if err := json.Unmarshal(entry.Data, &c); err != nil {
			logger.WarnContext(ctx, "Skipping undecodable customer record", "id", entry.ID, "error", err)
			continue
		}
		out = append(out, CustomerEntry{ID: entry.ID, Customer: c})
	}
	return out
}

// canonical normalizes a stored category. Records written before a
// synonym was added, or by other writers, may hold a non-canonical value.
func canonical(ctx context.Context, c *category.Category) (category.Category, bool) {
	if c == nil {
		return "", false
	}
	if c.Valid() {
		return *c, true
	}
	return category.Normalize(ctx, string(*c))
}

func bucketOf(ctx context.Context, c *category.Category) string {
	normalized, ok := canonical(ctx, c)
	if !ok {
		return category.Uncategorized
	}
	return category.Bucket(&normalized)
}

// CountByCategory counts customers per category. Every canonical category
// and the uncategorized bucket are always present.
func (v *View) CountByCategory(ctx context.Context) map[string]int {
	counts := map[string]int{category.Uncategorized: 0}
	for _, c := range category.All() {
		counts[string(c)] = 0
	}
	for _, entry := range v.customers(ctx) {
		counts[bucketOf(ctx, entry.Customer.Category)]++
	}
	return counts
}

// FilterByCategory returns the customers whose category normalizes to the
// same value as C. An unrecognized C matches nothing.
func (v *View) FilterByCategory(ctx context.Context, c category.Category) []CustomerEntry {
	want, ok := category.Normalize(ctx, string(c))
	if !ok {
		return nil
	}
	var out []CustomerEntry
	for _, entry := range v.customers(ctx) {
		if got, ok := canonical(ctx, entry.Customer.Category); ok && got == want {
			out = append(out, entry)
		}
	}
	return out
}

// LookupByEmail returns the first customer whose email matches EMAIL
// ignoring case and surrounding space.
func (v *View) LookupByEmail(ctx context.Context, email string) (CustomerEntry, bool) {
	want := model.NormalizeIdentity(&email)
	if want == "" {
		return CustomerEntry{}, false
	}
	for _, entry := range v.customers(ctx) {
		if entry.Customer.NormalizedEmail() == want {
			return entry, true
		}
	}
	return CustomerEntry{}, false
}

// LookupByID returns the raw record ID in COLLECTION.
func (v *View) LookupByID(ctx context.Context, collection, id string) (json.RawMessage, bool) {
	entries, err := v.store.List(ctx, collection)
	if err != nil {
		appcontext.LoggerFromContext(ctx).WarnContext(ctx, "List failed during lookup", "collection", collection, "error", err)
	}
	for _, entry := range entries {
		if entry.ID == id {
			return entry.Data, true
		}
	}
	return nil, false
}

// Totals sums line-item amounts by financial category and currency.
// Items without a currency are summed under NoCurrency.
type Totals struct {
	Records int
	Sums    map[model.FinancialCategory]map[string]decimal.Decimal
}

// NoCurrency keys amounts recorded without a currency.
const NoCurrency = "-"

// Sum returns the total for category C in CURRENCY.
func (t Totals) Sum(c model.FinancialCategory, currency string) decimal.Decimal {
	return t.Sums[c][currency]
}

// Currencies returns the currencies seen in category C, sorted.
func (t Totals) Currencies(c model.FinancialCategory) []string {
	out := make([]string, 0, len(t.Sums[c]))
	for currency := range t.Sums[c] {
		out = append(out, currency)
	}
	sort.Strings(out)
	return out
}

// FinancialTotals sums every stored financial record.
func (v *View) FinancialTotals(ctx context.Context) Totals {
	logger := appcontext.LoggerFromContext(ctx)
	totals := Totals{Sums: map[model.FinancialCategory]map[string]decimal.Decimal{}}

	entries, err := v.store.List(ctx, model.FinancialData)
	if err != nil {
		logger.WarnContext(ctx, "Financial list failed, totals may be incomplete", "error", err)
	}
	for _, entry := range entries {
		var f model.Financial
		if err := json.Unmarshal(entry.Data, &f); err != nil {
			logger.WarnContext(ctx, "Skipping undecodable financial record", "id", entry.ID, "error", err)
			continue
		}
		totals.Records++
		for _, c := range model.FinancialCategories() {
			for _, item := range *f.Lines(c) {
				if !item.Amount.Valid {
					continue
				}
				currency := NoCurrency
				if item.Currency != nil && *item.Currency != "" {
					currency = *item.Currency
				}
				if totals.Sums[c] == nil {
					totals.Sums[c] = map[string]decimal.Decimal{}
				}
				totals.Sums[c][currency] = totals.Sums[c][currency].Add(item.Amount.Decimal)
			}
		}
	}
	return totals
}
