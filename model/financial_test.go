package model_test

import (
	"context"
	"encoding/json"
	"testing"

	"babylon/recordstore/model"
)

func TestParseFinancial_Lists(t *testing.T) {
	raw := model.Raw{
		"customer_name": "Ann",
		"revenue": []any{
			map[string]any{"type": "sale", "amount": 100, "currency": "eur", "sku": "A-1"},
		},
		"Liabilities": []any{
			map[string]any{"kind": "loan", "value": "5000", "lender": "Bank"},
		},
	}
	f := model.ParseFinancial(context.Background(), raw)

	if f.CustomerName == nil || *f.CustomerName != "Ann" {
		t.Errorf("unexpected customer name %v", f.CustomerName)
	}
	if len(f.Income) != 1 || f.Income[0].Type != "sale" || *f.Income[0].Currency != "EUR" {
		t.Errorf("unexpected income %+v", f.Income)
	}
	if f.Income[0].Extra["sku"] != "A-1" {
		t.Errorf("expected sku kept in Extra, got %v", f.Income[0].Extra)
	}
	if len(f.Liabilities) != 1 || f.Liabilities[0].Type != "loan" || f.Liabilities[0].Amount.Decimal.String() != "5000" {
		t.Errorf("unexpected liabilities %+v", f.Liabilities)
	}
	if f.Category != nil {
		t.Errorf("two non-empty lists leave the category null, got %v", *f.Category)
	}
}

func TestParseFinancial_Flat(t *testing.T) {
	tests := []struct {
		name string
		raw  model.Raw
		want model.FinancialCategory
	}{
		{"explicit category", model.Raw{"amount": 10, "category": "inventory"}, model.Inventory},
		{"transaction type", model.Raw{"amount": 10, "transaction_type": "loan"}, model.Liabilities},
		{"negative amount", model.Raw{"amount": "-3"}, model.Expenses},
		{"positive amount", model.Raw{"amount": "3", "account_number": "991"}, model.Income},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := model.ParseFinancial(context.Background(), tt.raw)
			if !f.Substantive() {
				t.Fatal("expected a substantive record")
			}
			if len(*f.Lines(tt.want)) != 1 {
				t.Errorf("expected one %s line, got %+v", tt.want, f)
			}
			if f.Category == nil || *f.Category != tt.want {
				t.Errorf("expected category %s, got %v", tt.want, f.Category)
			}
		})
	}
}

func TestLineItemJSON_FlattensExtra(t *testing.T) {
	raw := []byte(`{"type":"sale","amount":"12.30","currency":"USD","sku":"A-1","qty":2}`)
	var item model.LineItem
	if err := json.Unmarshal(raw, &item); err != nil {
		t.Fatal(err)
	}
	if item.Type != "sale" || item.Amount.Decimal.String() != "12.3" {
		t.Errorf("unexpected item %+v", item)
	}
	if item.Extra["sku"] != "A-1" {
		t.Errorf("expected sku in Extra, got %v", item.Extra)
	}

	item.Extra["type"] = "overridden"
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["type"] != "sale" {
		t.Errorf("Extra must not override common fields, got %v", out["type"])
	}
	if out["sku"] != "A-1" || out["qty"] == nil {
		t.Errorf("expected Extra flattened, got %v", out)
	}
}
