package models

import (
	"encoding/json"
	"testing"
)

func TestMoneyUnmarshalKeepsDecimalPrecision(t *testing.T) {
	var payload struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":0.1}`), &payload); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if payload.Amount.String() != "0.10" {
		t.Fatalf("unexpected amount: %s", payload.Amount.String())
	}
	if err := json.Unmarshal([]byte(`{"amount":"19.999"}`), &payload); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if payload.Amount.String() != "20.00" {
		t.Fatalf("expected half-up rounding to 20.00, got %s", payload.Amount.String())
	}
}

func TestMoneyMarshalFixedScale(t *testing.T) {
	raw, err := json.Marshal(MustMoney("10"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"10.00"` {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestJSONScanAcceptsStringAndBytes(t *testing.T) {
	var fromString JSON
	if err := fromString.Scan(`{"utm_source":"news"}`); err != nil {
		t.Fatalf("scan string failed: %v", err)
	}
	if fromString.String("utm_source") != "news" {
		t.Fatalf("unexpected value: %v", fromString)
	}
	var fromBytes JSON
	if err := fromBytes.Scan([]byte(`{"k":1}`)); err != nil {
		t.Fatalf("scan bytes failed: %v", err)
	}
	if fromBytes["k"].(float64) != 1 {
		t.Fatalf("unexpected value: %v", fromBytes)
	}
	var empty JSON
	if err := empty.Scan(nil); err != nil || empty == nil {
		t.Fatalf("nil scan should yield empty map, err=%v", err)
	}
}
