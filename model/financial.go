package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FinancialCategory is one of the five financial record categories.
type FinancialCategory string

const (
	Income      FinancialCategory = "income"
	Expenses    FinancialCategory = "expenses"
	Assets      FinancialCategory = "assets"
	Liabilities FinancialCategory = "liabilities"
	Inventory   FinancialCategory = "inventory"
)

// FinancialCategories lists the categories in display order.
func FinancialCategories() []FinancialCategory {
	return []FinancialCategory{Income, Expenses, Assets, Liabilities, Inventory}
}

var financialSynonyms = map[string]FinancialCategory{
	"income":        Income,
	"revenue":       Income,
	"sales":         Income,
	"sale":          Income,
	"salary":        Income,
	"deposit":       Income,
	"expenses":      Expenses,
	"expense":       Expenses,
	"cost":          Expenses,
	"costs":         Expenses,
	"payment":       Expenses,
	"purchase":      Expenses,
	"bill":          Expenses,
	"withdrawal":    Expenses,
	"assets":        Assets,
	"asset":         Assets,
	"liabilities":   Liabilities,
	"liability":     Liabilities,
	"debt":          Liabilities,
	"loan":          Liabilities,
	"inventory":     Inventory,
	"stock":         Inventory,
	"inventoryitem": Inventory,
}

// NormalizeFinancialCategory maps free text onto a financial category.
func NormalizeFinancialCategory(raw string) (FinancialCategory, bool) {
	c, ok := financialSynonyms[normalizeKey(strings.TrimSpace(raw))]
	return c, ok
}

// LineItem is a tagged financial sub-record. Type is the discriminator;
// fields beyond the common ones are kept in Extra and written inline.
type LineItem struct {
	Type        string
	Amount      decimal.NullDecimal
	Currency    *string
	Date        *string
	Description *string
	Notes       *string
	Extra       map[string]any
}

var lineItemCommonKeys = map[string]bool{
	"type": true, "amount": true, "currency": true, "date": true, "description": true, "notes": true,
}

// MarshalJSON flattens Extra next to the common fields. Extra never
// overrides a common field.
func (li LineItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(li.Extra)+6)
	for key, value := range li.Extra {
		if !lineItemCommonKeys[key] {
			out[key] = value
		}
	}
	out["type"] = li.Type
	out["amount"] = li.Amount
	out["currency"] = li.Currency
	out["date"] = li.Date
	out["description"] = li.Description
	out["notes"] = li.Notes
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return fmt.Errorf("decode line item: %w", err)
	}
	*li = lineItemFromMap(Raw(fields), "")
	return nil
}

func lineItemFromMap(m Raw, defaultType string) LineItem {
	li := LineItem{Type: defaultType}
	if t := m.str("type", "subcategory", "kind", "transactiontype"); t != nil {
		li.Type = *t
	}
	if li.Type == "" {
		li.Type = "other"
	}
	if amount, ok := m.lookup("amount", "value", "total"); ok {
		li.Amount = asDecimal(amount)
	}
	li.Currency = m.str("currency")
	if li.Currency != nil {
		upper := strings.ToUpper(*li.Currency)
		li.Currency = &upper
	}
	li.Date = m.str("date")
	li.Description = m.str("description")
	li.Notes = m.str("notes")

	known := map[string]bool{
		"type": true, "subcategory": true, "kind": true, "transactiontype": true,
		"amount": true, "value": true, "total": true,
		"currency": true, "date": true, "description": true, "notes": true,
	}
	for key, value := range m {
		if known[normalizeKey(key)] || value == nil {
			continue
		}
		if li.Extra == nil {
			li.Extra = make(map[string]any)
		}
		li.Extra[key] = value
	}
	return li
}

// Financial is the persisted financial_data document.
type Financial struct {
	CustomerName *string            `json:"customerName"`
	Category     *FinancialCategory `json:"category"`
	Income       []LineItem         `json:"income"`
	Expenses     []LineItem         `json:"expenses"`
	Assets       []LineItem         `json:"assets"`
	Liabilities  []LineItem         `json:"liabilities"`
	Inventory    []LineItem         `json:"inventory"`
	Timestamp    string             `json:"timestamp"`
}

// Lines returns the line-item list for C.
func (f *Financial) Lines(c FinancialCategory) *[]LineItem {
	switch c {
	case Income:
		return &f.Income
	case Expenses:
		return &f.Expenses
	case Assets:
		return &f.Assets
	case Liabilities:
		return &f.Liabilities
	case Inventory:
		return &f.Inventory
	}
	return nil
}

// Substantive reports whether at least one category list is non-empty.
func (f Financial) Substantive() bool {
	for _, c := range FinancialCategories() {
		if len(*f.Lines(c)) > 0 {
			return true
		}
	}
	return false
}

// EnteredFields returns the non-empty fields keyed by name.
func (f Financial) EnteredFields() map[string]any {
	return entered(f.fields())
}

// MissingFields returns the names of empty fields in offer order.
func (f Financial) MissingFields() []string {
	return missing(f.fields())
}

func (f Financial) fields() []fieldValue {
	fields := []fieldValue{{"customerName", strOrNil(f.CustomerName)}}
	var cat any
	if f.Category != nil {
		cat = string(*f.Category)
	}
	fields = append(fields, fieldValue{"category", cat})
	for _, c := range FinancialCategories() {
		var value any
		if lines := *f.Lines(c); len(lines) > 0 {
			value = lines
		}
		fields = append(fields, fieldValue{string(c), value})
	}
	return fields
}

// FinancialFields lists the financial fields offered to callers.
var FinancialFields = []string{"customerName", "category", "income", "expenses", "assets", "liabilities", "inventory"}

// ParseFinancial builds a Financial record from a raw inbound record. It
// accepts both per-category line-item lists and a single flat
// transaction (amount, currency, transaction_type, ...).
func ParseFinancial(ctx context.Context, raw Raw) Financial {
	f := Financial{
		CustomerName: raw.str("customername", "customer", "name"),
	}
	if ts := raw.str("timestamp"); ts != nil {
		f.Timestamp = *ts
	}

	var explicit *FinancialCategory
	if rawCategory := raw.str("category"); rawCategory != nil {
		if c, ok := NormalizeFinancialCategory(*rawCategory); ok {
			explicit = &c
		}
	}

	listKeys := map[FinancialCategory][]string{
		Income:      {"income", "revenue", "sales"},
		Expenses:    {"expenses", "expense", "costs"},
		Assets:      {"assets"},
		Liabilities: {"liabilities", "debts"},
		Inventory:   {"inventory", "inventoryitems"},
	}
	for _, c := range FinancialCategories() {
		value, ok := raw.lookup(listKeys[c]...)
		if !ok {
			continue
		}
		items := asMaps(value)
		if len(items) == 0 {
			warnDropped(ctx, string(c), value, "not a list of line items")
			continue
		}
		lines := f.Lines(c)
		for _, item := range items {
			*lines = append(*lines, lineItemFromMap(item, "other"))
		}
	}

	if !f.Substantive() {
		if item, c, ok := flatLineItem(raw, explicit); ok {
			lines := f.Lines(c)
			*lines = append(*lines, item)
		}
	}

	switch {
	case explicit != nil:
		f.Category = explicit
	default:
		var only []FinancialCategory
		for _, c := range FinancialCategories() {
			if len(*f.Lines(c)) > 0 {
				only = append(only, c)
			}
		}
		if len(only) == 1 {
			f.Category = &only[0]
		}
	}
	return f
}

// flatLineItem handles records that describe one transaction at the top
// level. The category comes from the explicit category, then the
// transaction type, then the sign of the amount.
func flatLineItem(raw Raw, explicit *FinancialCategory) (LineItem, FinancialCategory, bool) {
	flat := Raw{}
	for key, value := range raw {
		switch normalizeKey(key) {
		case "customername", "customer", "name", "timestamp", "category":
			continue
		}
		flat[key] = value
	}
	if len(flat) == 0 {
		return LineItem{}, "", false
	}
	item := lineItemFromMap(flat, "")
	if item.Type == "other" {
		if rawCategory := raw.str("category"); rawCategory != nil {
			item.Type = *rawCategory
		}
	}
	if !item.Amount.Valid && item.Currency == nil && item.Date == nil && item.Description == nil && item.Notes == nil && len(item.Extra) == 0 {
		return LineItem{}, "", false
	}

	if explicit != nil {
		return item, *explicit, true
	}
	if c, ok := NormalizeFinancialCategory(item.Type); ok {
		return item, c, true
	}
	if item.Amount.Valid && item.Amount.Decimal.IsNegative() {
		return item, Expenses, true
	}
	return item, Income, true
}
