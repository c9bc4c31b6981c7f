package records_test

import (
	"testing"

	"babylon/recordstore/model"
	"babylon/recordstore/records"
)

func TestSuggestDataType(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"customer keywords", "Name: Ann, Email: ann@x.com, Phone: 555", model.CustomerInfo},
		{"finance keywords", "Invoice 12, amount due, payment terms", model.FinancialData},
		{"tie goes to finance", "customer payment", model.FinancialData},
		{"nothing", "lorem ipsum", model.FinancialData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := records.SuggestDataType(tt.content); got.DataType != tt.want {
				t.Errorf("SuggestDataType(%q) = %s, want %s", tt.content, got.DataType, tt.want)
			}
		})
	}

	if s := records.SuggestDataType("lorem ipsum"); s.Confidence != 0 {
		t.Errorf("expected zero confidence without keywords, got %v", s.Confidence)
	}
}
