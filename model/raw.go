package model

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"babylon/recordstore/appcontext"
)

// Raw is a loosely-typed inbound record: field name to scalar or list.
// No field is guaranteed to be present and nulls are common.
type Raw map[string]any

// normalizeKey folds case and drops separators so that "reward_points",
// "Reward Points" and "rewardPoints" address the same field.
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookup returns the first present value among NAMES (already normalized).
func (r Raw) lookup(names ...string) (any, bool) {
	if len(r) == 0 {
		return nil, false
	}
	index := make(map[string]any, len(r))
	for key, value := range r {
		index[normalizeKey(key)] = value
	}
	for _, name := range names {
		if value, ok := index[name]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func (r Raw) str(names ...string) *string {
	value, ok := r.lookup(names...)
	if !ok {
		return nil
	}
	return asString(value)
}

var nullWords = map[string]bool{"null": true, "none": true, "nil": true, "n/a": true}

// asString trims scalars into a nullable string.
func asString(value any) *string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	default:
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || nullWords[strings.ToLower(s)] {
		return nil
	}
	return &s
}

// asInt accepts integral numbers and numeric strings.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// asDecimal accepts numbers and strings such as "$1,200.50".
func asDecimal(value any) decimal.NullDecimal {
	switch v := value.(type) {
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case float32:
		return decimal.NewNullDecimal(decimal.NewFromFloat32(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case string:
		cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(v)
		if cleaned == "" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}
	return decimal.NullDecimal{}
}

// asStrings accepts lists and comma separated strings.
func asStrings(value any) []string {
	var out []string
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			if s := asString(item); s != nil {
				out = append(out, *s)
			}
		}
	case []any:
		for _, item := range v {
			if s := asString(item); s != nil {
				out = append(out, *s)
			}
		}
	case string:
		for _, item := range strings.Split(v, ",") {
			if s := asString(item); s != nil {
				out = append(out, *s)
			}
		}
	}
	return out
}

// asMaps accepts a list of objects, or a single object.
func asMaps(value any) []Raw {
	switch v := value.(type) {
	case []any:
		out := make([]Raw, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, Raw(m))
			case Raw:
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		out := make([]Raw, 0, len(v))
		for _, m := range v {
			out = append(out, Raw(m))
		}
		return out
	case map[string]any:
		return []Raw{Raw(v)}
	case Raw:
		return []Raw{v}
	}
	return nil
}

func warnDropped(ctx context.Context, field string, value any, reason string) {
	appcontext.LoggerFromContext(ctx).WarnContext(
		ctx,
		"Dropping unusable field value",
		"field", field,
		"value", value,
		"reason", reason,
	)
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
