// Package category maps free-form customer classification strings onto the
// closed set of customer categories.
package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"babylon/recordstore/appcontext"
)

// Category is a normalized customer classification.
type Category string

const (
	// Prospective customers have shown interest but not bought yet.
	Prospective Category = "Prospective"
	// Current customers are actively buying.
	Current Category = "Current"
	// Inactive customers used to buy and have stopped.
	Inactive Category = "Inactive"
)

// Uncategorized is the aggregation bucket for records without a valid category.
const Uncategorized = "uncategorized"

// ErrInvalid is returned by callers that refuse to proceed with an
// unrecognized category.
var ErrInvalid = errors.New("unrecognized customer category")

// InvalidError wraps ErrInvalid with the offending input.
func InvalidError(raw string) error {
	return fmt.Errorf("%w, %q", ErrInvalid, raw)
}

// All lists the canonical categories in display order.
func All() []Category {
	return []Category{Prospective, Current, Inactive}
}

var synonyms = map[string]Category{
	"prospective": Prospective,
	"prospect":    Prospective,
	"lead":        Prospective,
	"potential":   Prospective,
	"new":         Prospective,
	"current":     Current,
	"active":      Current,
	"existing":    Current,
	"customer":    Current,
	"inactive":    Inactive,
	"former":      Inactive,
	"churned":     Inactive,
	"lapsed":      Inactive,
	"dormant":     Inactive,
	"cancelled":   Inactive,
	"canceled":    Inactive,
}

// Normalize maps RAW onto a canonical category. Blank input yields false
// silently; any other unrecognized input yields false and a warning.
func Normalize(ctx context.Context, raw string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	if c, ok := synonyms[key]; ok {
		return c, true
	}

	appcontext.LoggerFromContext(ctx).WarnContext(
		ctx,
		"Unrecognized customer category, storing null",
		"category", raw,
	)
	return "", false
}

// NormalizePtr is Normalize for nullable values.
func NormalizePtr(ctx context.Context, raw *string) *Category {
	if raw == nil {
		return nil
	}
	c, ok := Normalize(ctx, *raw)
	if !ok {
		return nil
	}
	return &c
}

// Bucket returns the aggregation key for a possibly-null category.
func Bucket(c *Category) string {
	if c == nil || *c == "" {
		return Uncategorized
	}
	return string(*c)
}

// Valid reports whether c is one of the canonical values.
func (c Category) Valid() bool {
	return c == Prospective || c == Current || c == Inactive
}
