// Package model defines the persisted record shapes and the tolerant
// parsing of loosely-typed inbound records into them.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collection names. Each is a key prefix in the blob store.
const (
	CustomerInfo  = "customer_info"
	FinancialData = "financial_data"
	UploadedFiles = "uploaded_files"
)

// Collections lists every collection in a stable order.
func Collections() []string {
	return []string{CustomerInfo, FinancialData, UploadedFiles}
}

// ErrValidation is returned when a record carries no substantive field.
var ErrValidation = errors.New("record has no substantive fields")

// ValidationError names the fields the caller could have supplied.
func ValidationError(kind string, fields []string) error {
	return fmt.Errorf("%w: no %s provided, supply at least one of: %s", ErrValidation, kind, strings.Join(fields, ", "))
}

// TimestampLayout is used for every persisted timestamp.
const TimestampLayout = time.RFC3339Nano

// FormatTimestamp renders t in the persisted layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts the persisted layout and a few common ISO forms.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{TimestampLayout, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
