package repository

import (
	"strings"
	"testing"
)

func TestJSONTextExprByDialect(t *testing.T) {
	if got, want := jsonTextExprByDialect("sqlite", "metadata", "sku"), "json_extract(metadata, '$.\"sku\"')"; got != want {
		t.Fatalf("sqlite json expr mismatch, want %s got %s", want, got)
	}
	if got, want := jsonTextExprByDialect("postgres", "metadata", "sku"), "(metadata::jsonb ->> 'sku')"; got != want {
		t.Fatalf("postgres json expr mismatch, want %s got %s", want, got)
	}
}

func TestBuildKeywordCondition(t *testing.T) {
	condition, argCount := buildKeywordCondition(nil, []string{"order_id", "customer_email"}, "metadata", []string{"campaign", "sku"})
	if argCount != 4 {
		t.Fatalf("arg count want 4 got %d", argCount)
	}
	if !strings.Contains(condition, "order_id LIKE ?") {
		t.Fatalf("condition should contain order_id LIKE, got %s", condition)
	}
	if !strings.Contains(condition, "json_extract(metadata, '$.\"sku\"') LIKE ?") {
		t.Fatalf("condition should contain metadata sku LIKE, got %s", condition)
	}

	pgCondition, _ := buildKeywordConditionByDialect("postgres", []string{"order_id"}, "", nil)
	if pgCondition != `order_id ILIKE ? ESCAPE '\'` {
		t.Fatalf("postgres should use ILIKE, got %s", pgCondition)
	}
}

func TestEscapeLikeAndRepeatArgs(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escaped value: %s", got)
	}
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}
