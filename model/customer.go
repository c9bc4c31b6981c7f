package model

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"babylon/recordstore/category"
)

// Order is a previous order attached to a customer.
type Order struct {
	ID          *string             `json:"id"`
	OrderNumber *string             `json:"orderNumber"`
	Date        *string             `json:"date"`
	Amount      decimal.NullDecimal `json:"amount"`
}

// Key returns the dedup key for the order: its id, else its order number.
func (o Order) Key() (string, bool) {
	if !isBlank(o.ID) {
		return "id:" + strings.TrimSpace(*o.ID), true
	}
	if !isBlank(o.OrderNumber) {
		return "no:" + strings.TrimSpace(*o.OrderNumber), true
	}
	return "", false
}

// Customer is the persisted customer_info document.
type Customer struct {
	Name          *string            `json:"name"`
	Email         *string            `json:"email"`
	Phone         *string            `json:"phone"`
	Address       *string            `json:"address"`
	Company       *string            `json:"company"`
	Category      *category.Category `json:"category"`
	RewardPoints  *int               `json:"rewardPoints"`
	PrevOrders    []Order            `json:"prevOrders"`
	Interests     []string           `json:"interests"`
	Birthday      *string            `json:"birthday"`
	PaymentMethod *string            `json:"paymentMethod"`
	PaymentLast4  *string            `json:"paymentLast4"`
	Notes         *string            `json:"notes"`
	Timestamp     string             `json:"timestamp"`
}

// CustomerFields lists the customer fields offered to callers, in order.
var CustomerFields = []string{
	"name", "email", "phone", "address", "company", "category",
	"rewardPoints", "prevOrders", "interests", "birthday",
	"paymentMethod", "paymentLast4", "notes",
}

// ParseCustomer builds a Customer from a raw inbound record. Unusable
// values are dropped with a warning; the category is normalized.
func ParseCustomer(ctx context.Context, raw Raw) Customer {
	c := Customer{
		Name:          raw.str("name", "customername", "fullname"),
		Email:         raw.str("email", "emailaddress"),
		Phone:         raw.str("phone", "phonenumber", "mobile"),
		Address:       raw.str("address", "mailingaddress"),
		Company:       raw.str("company", "companyname", "organization"),
		Birthday:      raw.str("birthday", "dateofbirth", "dob"),
		PaymentMethod: raw.str("paymentmethod"),
		Notes:         raw.str("notes", "note"),
	}
	if ts := raw.str("timestamp"); ts != nil {
		c.Timestamp = *ts
	}

	c.Category = category.NormalizePtr(ctx, raw.str("category", "customercategory"))

	if value, ok := raw.lookup("rewardpoints", "points"); ok {
		if n, ok := asInt(value); ok && n >= 0 {
			c.RewardPoints = &n
		} else {
			warnDropped(ctx, "rewardPoints", value, "not a non-negative integer")
		}
	}

	if value, ok := raw.lookup("paymentlast4", "cardlast4", "last4"); ok {
		c.PaymentLast4 = lastFourDigits(asString(value))
	}

	if value, ok := raw.lookup("interests"); ok {
		c.Interests = UnionInterests(nil, asStrings(value))
	}

	if value, ok := raw.lookup("prevorders", "previousorders", "orders"); ok {
		c.PrevOrders = parseOrders(value)
	}

	return c
}

func parseOrders(value any) []Order {
	var orders []Order
	if list, ok := value.([]any); ok {
		for _, item := range list {
			if s := asString(item); s != nil {
				orders = append(orders, Order{OrderNumber: s})
			}
		}
	}
	for _, m := range asMaps(value) {
		order := Order{
			ID:          m.str("id", "orderid"),
			OrderNumber: m.str("ordernumber", "orderno", "number"),
			Date:        m.str("date", "orderdate"),
		}
		if amount, ok := m.lookup("amount", "total"); ok {
			order.Amount = asDecimal(amount)
		}
		if order.ID == nil && order.OrderNumber == nil && order.Date == nil && !order.Amount.Valid {
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

// lastFourDigits keeps only the trailing four digits of a card reference.
func lastFourDigits(s *string) *string {
	if s == nil {
		return nil
	}
	var digits []rune
	for _, r := range *s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return s
	}
	last := string(digits[len(digits)-4:])
	return &last
}

// UnionInterests appends ADDED to EXISTING skipping case-insensitive
// duplicates; the first spelling seen is kept.
func UnionInterests(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	var out []string
	for _, list := range [][]string{existing, added} {
		for _, interest := range list {
			trimmed := strings.TrimSpace(interest)
			key := strings.ToLower(trimmed)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, trimmed)
		}
	}
	return out
}

// fields returns the offered fields with their values, nil when absent.
func (c Customer) fields() []fieldValue {
	var cat any
	if c.Category != nil {
		cat = string(*c.Category)
	}
	var points any
	if c.RewardPoints != nil {
		points = *c.RewardPoints
	}
	var orders, interests any
	if len(c.PrevOrders) > 0 {
		orders = c.PrevOrders
	}
	if len(c.Interests) > 0 {
		interests = c.Interests
	}
	return []fieldValue{
		{"name", strOrNil(c.Name)},
		{"email", strOrNil(c.Email)},
		{"phone", strOrNil(c.Phone)},
		{"address", strOrNil(c.Address)},
		{"company", strOrNil(c.Company)},
		{"category", cat},
		{"rewardPoints", points},
		{"prevOrders", orders},
		{"interests", interests},
		{"birthday", strOrNil(c.Birthday)},
		{"paymentMethod", strOrNil(c.PaymentMethod)},
		{"paymentLast4", strOrNil(c.PaymentLast4)},
		{"notes", strOrNil(c.Notes)},
	}
}

// Substantive reports whether any field other than the timestamp is set.
func (c Customer) Substantive() bool {
	for _, f := range c.fields() {
		if f.value != nil {
			return true
		}
	}
	return false
}

// EnteredFields returns the non-null fields keyed by name.
func (c Customer) EnteredFields() map[string]any {
	return entered(c.fields())
}

// MissingFields returns the names of null fields in offer order.
func (c Customer) MissingFields() []string {
	return missing(c.fields())
}

// NormalizedEmail is the case-folded, trimmed email or "".
func (c Customer) NormalizedEmail() string {
	return NormalizeIdentity(c.Email)
}

// NormalizedName is the case-folded, trimmed name or "".
func (c Customer) NormalizedName() string {
	return NormalizeIdentity(c.Name)
}

// NormalizeIdentity folds an identity value for comparison.
func NormalizeIdentity(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

type fieldValue struct {
	name  string
	value any
}

func strOrNil(s *string) any {
	if isBlank(s) {
		return nil
	}
	return *s
}

func entered(fields []fieldValue) map[string]any {
	out := make(map[string]any)
	for _, f := range fields {
		if f.value != nil {
			out[f.name] = f.value
		}
	}
	return out
}

func missing(fields []fieldValue) []string {
	out := []string{}
	for _, f := range fields {
		if f.value == nil {
			out = append(out, f.name)
		}
	}
	return out
}
