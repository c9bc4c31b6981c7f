package model_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"babylon/recordstore/category"
	"babylon/recordstore/model"
)

func TestParseCustomer_AliasesAndCoercion(t *testing.T) {
	raw := model.Raw{
		"Full Name":       "  Ann Lee ",
		"email_address":   "ann@x.com",
		"Phone":           5550100,
		"category":        "Existing",
		"reward-points":   "1,200",
		"interests":       "golf, Tennis ,GOLF",
		"card_last4":      "4111 1111 1111 1234",
		"notes":           "N/A",
		"previous_orders": []any{"A-1", map[string]any{"id": "o9", "amount": "$12.50"}, map[string]any{}},
	}
	c := model.ParseCustomer(context.Background(), raw)

	if c.Name == nil || *c.Name != "Ann Lee" {
		t.Errorf("unexpected name %v", c.Name)
	}
	if c.Email == nil || *c.Email != "ann@x.com" {
		t.Errorf("unexpected email %v", c.Email)
	}
	if c.Phone == nil || *c.Phone != "5550100" {
		t.Errorf("unexpected phone %v", c.Phone)
	}
	if c.Category == nil || *c.Category != category.Current {
		t.Errorf("unexpected category %v", c.Category)
	}
	if c.RewardPoints == nil || *c.RewardPoints != 1200 {
		t.Errorf("unexpected reward points %v", c.RewardPoints)
	}
	if !reflect.DeepEqual(c.Interests, []string{"golf", "Tennis"}) {
		t.Errorf("unexpected interests %v", c.Interests)
	}
	if c.PaymentLast4 == nil || *c.PaymentLast4 != "1234" {
		t.Errorf("unexpected last4 %v", c.PaymentLast4)
	}
	if c.Notes != nil {
		t.Errorf("expected N/A to be null, got %q", *c.Notes)
	}
	if len(c.PrevOrders) != 2 {
		t.Fatalf("expected 2 orders, got %+v", c.PrevOrders)
	}
	if *c.PrevOrders[0].OrderNumber != "A-1" || *c.PrevOrders[1].ID != "o9" {
		t.Errorf("unexpected orders %+v", c.PrevOrders)
	}
	if got := c.PrevOrders[1].Amount.Decimal.String(); got != "12.5" {
		t.Errorf("unexpected order amount %s", got)
	}
}

func TestParseCustomer_DropsInvalid(t *testing.T) {
	c := model.ParseCustomer(context.Background(), model.Raw{"rewardPoints": -3, "category": "vip"})
	if c.RewardPoints != nil {
		t.Errorf("expected negative points dropped, got %d", *c.RewardPoints)
	}
	if c.Category != nil {
		t.Errorf("expected unknown category null, got %v", *c.Category)
	}
	if c.Substantive() {
		t.Error("a record with only dropped values is not substantive")
	}
	if missing := c.MissingFields(); len(missing) != len(model.CustomerFields) {
		t.Errorf("expected every field missing, got %v", missing)
	}
}

func TestCustomerJSON_WritesNulls(t *testing.T) {
	name := "Ann"
	data, err := json.Marshal(model.Customer{Name: &name, Timestamp: "2024-01-01T00:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"email", "category", "rewardPoints", "paymentLast4"} {
		value, present := decoded[key]
		if !present || value != nil {
			t.Errorf("expected explicit null for %s, got %v (present=%v)", key, value, present)
		}
	}
}

func TestOrderKey(t *testing.T) {
	id, no := "o1", "N-1"
	tests := []struct {
		order model.Order
		key   string
		ok    bool
	}{
		{model.Order{ID: &id, OrderNumber: &no}, "id:o1", true},
		{model.Order{OrderNumber: &no}, "no:N-1", true},
		{model.Order{}, "", false},
	}
	for _, tt := range tests {
		key, ok := tt.order.Key()
		if key != tt.key || ok != tt.ok {
			t.Errorf("Key() = %q, %v, want %q, %v", key, ok, tt.key, tt.ok)
		}
	}
}

func TestPreview(t *testing.T) {
	short := "hello"
	if model.Preview(short) != short {
		t.Error("short content must be kept whole")
	}
	long := make([]rune, model.PreviewLimit+1)
	for i := range long {
		long[i] = 'ü'
	}
	if got := []rune(model.Preview(string(long))); len(got) != model.PreviewLimit {
		t.Errorf("expected %d runes, got %d", model.PreviewLimit, len(got))
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{"2024-01-02T03:04:05.123456789Z", "2024-01-02T03:04:05", "2024-01-02"} {
		if _, ok := model.ParseTimestamp(s); !ok {
			t.Errorf("expected %q to parse", s)
		}
	}
	if _, ok := model.ParseTimestamp("yesterday"); ok {
		t.Error("expected free text to be rejected")
	}
}
