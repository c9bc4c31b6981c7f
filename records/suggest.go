package records

import (
	"strings"

	"babylon/recordstore/model"
)

var (
	customerKeywords = []string{"name", "email", "phone", "address", "customer", "client", "contact"}
	financeKeywords  = []string{"amount", "payment", "invoice", "transaction", "balance", "account", "financial", "revenue"}
)

// Suggestion classifies free-form content as customer or financial data.
type Suggestion struct {
	DataType      string
	CustomerScore int
	FinanceScore  int
	Confidence    float64
}

// SuggestDataType counts which customer and finance keywords occur in
// CONTENT. Customer data wins only on a strictly higher score.
func SuggestDataType(content string) Suggestion {
	lower := strings.ToLower(content)
	s := Suggestion{
		CustomerScore: countKeywords(lower, customerKeywords),
		FinanceScore:  countKeywords(lower, financeKeywords),
	}

	winner := s.FinanceScore
	s.DataType = model.FinancialData
	if s.CustomerScore > s.FinanceScore {
		winner = s.CustomerScore
		s.DataType = model.CustomerInfo
	}
	if total := s.CustomerScore + s.FinanceScore; total > 0 {
		s.Confidence = float64(winner) / float64(total)
	}
	return s
}

func countKeywords(content string, keywords []string) int {
	n := 0
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			n++
		}
	}
	return n
}
