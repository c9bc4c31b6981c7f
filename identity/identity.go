// Package identity decides whether an incoming customer is already stored
// and merges the two records when it is.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"babylon/recordstore/appcontext"
	"babylon/recordstore/category"
	"babylon/recordstore/model"
	"babylon/recordstore/repository"
)

// Lister defines the read access the matcher needs.
type Lister interface {
	List(ctx context.Context, collection string) ([]repository.Entry, error)
}

// Match is a stored customer that the incoming record resolves to.
type Match struct {
	ID       string
	Customer model.Customer
	// By is "email" or "name".
	By string
}

// Matcher finds existing customers by identity.
type Matcher struct {
	store Lister
}

// NewMatcher creates a Matcher over the customer collection of STORE.
func NewMatcher(store Lister) *Matcher {
	return &Matcher{store: store}
}

// FindExisting returns the stored customer that NAME and EMAIL identify, or
// nil. A non-blank email is authoritative: it matches on email alone.
// Without an email, a name matches only a stored record that has no email
// either. When the customer list could only be read partially the search
// runs on what was read and the list error is returned alongside.
func (m *Matcher) FindExisting(ctx context.Context, name, email *string) (*Match, error) {
	logger := appcontext.LoggerFromContext(ctx)

	wantEmail := model.NormalizeIdentity(email)
	wantName := model.NormalizeIdentity(name)
	if wantEmail == "" && wantName == "" {
		return nil, nil
	}

	entries, listErr := m.store.List(ctx, model.CustomerInfo)
	if listErr != nil {
		logger.WarnContext(
			ctx,
			"Customer list incomplete, duplicate detection may miss an existing record",
			"read", len(entries),
			"error", listErr,
		)
	}

	var nameMatch *Match
	for _, entry := range entries {
		var existing model.Customer
		if err := json.Unmarshal(entry.Data, &existing); err != nil {
			logger.WarnContext(ctx, "Skipping undecodable customer record", "id", entry.ID, "error", err)
			continue
		}
		existingEmail := existing.NormalizedEmail()
		if wantEmail != "" {
			if existingEmail == wantEmail {
				return &Match{ID: entry.ID, Customer: existing, By: "email"}, listErr
			}
			continue
		}
		if nameMatch == nil && existingEmail == "" && existing.NormalizedName() == wantName {
			nameMatch = &Match{ID: entry.ID, Customer: existing, By: "name"}
		}
	}
	return nameMatch, listErr
}

// Merge combines EXISTING with INCOMING. Scalars take the incoming value
// when it is set, logging any conflicting overwrite. Reward points add up,
// orders and interests are unioned, the category self-heals through
// normalization and the earliest timestamp is kept.
func Merge(ctx context.Context, existing, incoming model.Customer) model.Customer {
	logger := appcontext.LoggerFromContext(ctx)
	merged := existing

	scalars := []struct {
		name     string
		dst      **string
		incoming *string
	}{
		{"name", &merged.Name, incoming.Name},
		{"email", &merged.Email, incoming.Email},
		{"phone", &merged.Phone, incoming.Phone},
		{"address", &merged.Address, incoming.Address},
		{"company", &merged.Company, incoming.Company},
		{"birthday", &merged.Birthday, incoming.Birthday},
		{"paymentMethod", &merged.PaymentMethod, incoming.PaymentMethod},
		{"paymentLast4", &merged.PaymentLast4, incoming.PaymentLast4},
		{"notes", &merged.Notes, incoming.Notes},
	}
	for _, s := range scalars {
		if blank(s.incoming) {
			continue
		}
		if current := *s.dst; !blank(current) && !sameValue(s.name, *current, *s.incoming) {
			logger.InfoContext(
				ctx,
				"Merge discrepancy, keeping the newer value",
				"field", s.name,
				"previous", *current,
				"new", *s.incoming,
			)
		}
		v := *s.incoming
		*s.dst = &v
	}

	merged.RewardPoints = addPoints(existing.RewardPoints, incoming.RewardPoints)
	merged.PrevOrders = unionOrders(existing.PrevOrders, incoming.PrevOrders)
	merged.Interests = model.UnionInterests(existing.Interests, incoming.Interests)
	merged.Category = mergeCategory(ctx, existing.Category, incoming.Category)
	merged.Timestamp = earliest(existing.Timestamp, incoming.Timestamp)

	return merged
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func sameValue(field, a, b string) bool {
	if field == "email" || field == "name" {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

func addPoints(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	sum := 0
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}

// unionOrders keeps EXISTING order and appends incoming orders whose key
// is new. Keyless orders are always appended.
func unionOrders(existing, incoming []model.Order) []model.Order {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]model.Order, 0, len(existing)+len(incoming))
	for _, list := range [][]model.Order{existing, incoming} {
		for _, order := range list {
			key, ok := order.Key()
			if ok {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			out = append(out, order)
		}
	}
	return out
}

func mergeCategory(ctx context.Context, existing, incoming *category.Category) *category.Category {
	for _, c := range []*category.Category{incoming, existing} {
		if c == nil {
			continue
		}
		if normalized, ok := category.Normalize(ctx, string(*c)); ok {
			return &normalized
		}
	}
	return nil
}

func earliest(a, b string) string {
	ta, okA := model.ParseTimestamp(a)
	tb, okB := model.ParseTimestamp(b)
	switch {
	case okA && okB:
		if tb.Before(ta) {
			return model.FormatTimestamp(tb)
		}
		return model.FormatTimestamp(ta)
	case okA:
		return model.FormatTimestamp(ta)
	case okB:
		return model.FormatTimestamp(tb)
	case a != "":
		return a
	default:
		return b
	}
}

// Describe renders a match for log lines and CLI output.
func (m *Match) Describe() string {
	if m == nil {
		return "no match"
	}
	return fmt.Sprintf("%s/%s (by %s)", model.CustomerInfo, m.ID, m.By)
}
