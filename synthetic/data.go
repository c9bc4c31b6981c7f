package synthetic

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"babylon/recordstore/model"
)

// File names written by GenerateSyntheticData.
const (
	CustomersFile  = "synthetic-customers.jsonl"
	FinancialsFile = "synthetic-financials.json"
)

var (
	firstNames = []string{"Ann", "Bob", "Carla", "Dev", "Elif", "Femi", "Gus", "Hana", "Ivo", "June"}
	lastNames  = []string{"Lee", "Ray", "Okafor", "Patel", "Smith", "Novak", "Kim", "Silva"}
	companies  = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", ""}
	categories = []string{"lead", "active", "Current", "churned", "prospect", "", "vip"}
	interests  = []string{"golf", "tennis", "wine", "travel", "books", "cycling"}
	lineTypes  = map[string][]string{
		"income":      {"sale", "service", "interest"},
		"expenses":    {"rent", "payroll", "utilities", "supplies"},
		"assets":      {"equipment", "cash", "receivable"},
		"liabilities": {"loan", "credit_line", "payable"},
		"inventory":   {"widget", "gadget", "spare_part"},
	}
	currencies = []string{"USD", "EUR", "GBP"}
)

// Generator produces loosely-typed records shaped like real inbound data:
// mixed key spellings, string numbers and blanks.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

// Epoch is the fixed date that generated dates count back from.
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewGenerator creates a Generator seeded with SEED.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), now: Epoch}
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

// Customers returns N customer records. Every fifth record repeats an
// earlier customer's email with different casing, so ingesting the set
// exercises merging.
func (g *Generator) Customers(n int) []model.Raw {
	out := make([]model.Raw, 0, n)
	var emails []string
	for i := 0; i < n; i++ {
		if i > 0 && i%5 == 0 && len(emails) > 0 {
			email := emails[g.rng.Intn(len(emails))]
			out = append(out, model.Raw{
				"Email":         strings.ToUpper(email[:1]) + email[1:],
				"reward_points": fmt.Sprintf("%d", g.rng.Intn(50)),
				"interests":     g.pick(interests),
			})
			continue
		}

		first, last := g.pick(firstNames), g.pick(lastNames)
		email := fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i)
		emails = append(emails, email)

		record := model.Raw{
			"name":         first + " " + last,
			"email":        email,
			"phone":        fmt.Sprintf("555-%04d", g.rng.Intn(10000)),
			"company":      g.pick(companies),
			"category":     g.pick(categories),
			"rewardPoints": g.rng.Intn(200),
			"interests":    []any{g.pick(interests), g.pick(interests)},
			"prevOrders": []any{
				map[string]any{
					"orderNumber": fmt.Sprintf("SO-%05d", g.rng.Intn(100000)),
					"amount":      fmt.Sprintf("%.2f", g.rng.Float64()*500),
					"date":        g.now.AddDate(0, 0, -g.rng.Intn(365)).Format("2006-01-02"),
				},
			},
		}
		if g.rng.Intn(3) == 0 {
			record["card_last4"] = fmt.Sprintf("4111 1111 1111 %04d", g.rng.Intn(10000))
		}
		out = append(out, record)
	}
	return out
}

// Financials returns N financial records. Most carry per-category line
// item lists; every third is a single flat transaction.
func (g *Generator) Financials(n int) []model.Raw {
	out := make([]model.Raw, 0, n)
	keys := []string{"income", "expenses", "assets", "liabilities", "inventory"}
	for i := 0; i < n; i++ {
		date := g.now.AddDate(0, 0, -g.rng.Intn(90)).Format("2006-01-02")
		if i%3 == 2 {
			amount := g.rng.Float64()*2000 - 1000
			out = append(out, model.Raw{
				"amount":           fmt.Sprintf("%.2f", amount),
				"currency":         strings.ToLower(g.pick(currencies)),
				"transaction_type": g.pick([]string{"payment", "deposit", "transfer"}),
				"date":             date,
				"description":      fmt.Sprintf("Synthetic transaction %d", i),
			})
			continue
		}

		record := model.Raw{"customerName": g.pick(firstNames) + " " + g.pick(lastNames)}
		for _, key := range keys {
			if g.rng.Intn(2) == 0 {
				continue
			}
			items := make([]any, 0, 2)
			for j := 0; j < 1+g.rng.Intn(2); j++ {
				items = append(items, map[string]any{
					"type":     g.pick(lineTypes[key]),
					"amount":   g.rng.Float64() * 1000,
					"currency": g.pick(currencies),
					"date":     date,
				})
			}
			record[key] = items
		}
		if len(record) == 1 {
			record["income"] = []any{map[string]any{"type": "sale", "amount": 1}}
		}
		out = append(out, record)
	}
	return out
}

// GenerateSyntheticData writes ROWS customers as JSON lines and ROWS
// financial records as a JSON array into DIR. It returns the paths written.
func GenerateSyntheticData(rows int, dir string, seed int64) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}
	g := NewGenerator(seed)

	customersPath := filepath.Join(dir, CustomersFile)
	if err := writeJSONLines(customersPath, g.Customers(rows)); err != nil {
		return nil, err
	}

	financialsPath := filepath.Join(dir, FinancialsFile)
	data, err := json.MarshalIndent(g.Financials(rows), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode financial records: %w", err)
	}
	if err := os.WriteFile(financialsPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to create file '%s': %w", financialsPath, err)
	}

	return []string{customersPath, financialsPath}, nil
}

func writeJSONLines(path string, records []model.Raw) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", path, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush '%s': %w", path, err)
	}
	return nil
}
