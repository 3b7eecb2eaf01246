package eligibility_test

import (
	"context"
	"errors"
	"testing"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/eligibility"
)

func field(fieldID, op string, value any) *eligibility.Node {
	return &eligibility.Node{Type: eligibility.NodeFieldRule, FieldID: fieldID, Operator: op, Value: value}
}

func group(logic string, rules ...*eligibility.Node) *eligibility.Node {
	return &eligibility.Node{Type: eligibility.NodeGroup, Logic: logic, Rules: rules}
}

func TestEmptyGroups(t *testing.T) {
	ctx := context.Background()
	if !eligibility.Evaluate(ctx, group("AND"), nil, nil) {
		t.Fatalf("empty AND group should be vacuously true")
	}
	if eligibility.Evaluate(ctx, group("OR"), nil, nil) {
		t.Fatalf("empty OR group should be false")
	}
}

func TestOperators(t *testing.T) {
	ctx := context.Background()
	attrs := map[string]any{
		"personal.state": "CA",
		"job.trade":      "electrician",
		"seniority":      "7",
		"start_date":     "2026-03-01",
		"skills":         []any{"welding", "framing"},
	}
	cases := []struct {
		name string
		node *eligibility.Node
		want bool
	}{
		{"equals hit", field("personal.state", "equals", "CA"), true},
		{"equals miss", field("personal.state", "equals", "NY"), false},
		{"notEquals", field("personal.state", "notEquals", "NY"), true},
		{"in hit", field("job.trade", "in", []any{"electrician", "plumber"}), true},
		{"in miss", field("job.trade", "in", []any{"carpenter"}), false},
		{"in non-list value", field("job.trade", "in", "electrician"), false},
		{"greaterThan numeric", field("seniority", "greaterThan", "5"), true},
		{"lessThan numeric", field("seniority", "lessThan", "5"), false},
		{"greaterThan date", field("start_date", "greaterThan", "2026-01-01"), true},
		{"contains substring", field("personal.state", "contains", "C"), true},
		{"contains list member", field("skills", "contains", "welding"), true},
		{"contains list miss", field("skills", "contains", "plumbing"), false},
		{"unknown operator fails closed", field("personal.state", "matches", "CA"), false},
		{"missing attribute fails closed", field("nope", "equals", "x"), false},
	}
	for _, tc := range cases {
		if got := eligibility.Evaluate(ctx, tc.node, attrs, nil); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNestedGroups(t *testing.T) {
	ctx := context.Background()
	attrs := map[string]any{"a": "1", "b": "2"}
	tree := group("AND",
		field("a", "equals", "1"),
		group("OR",
			field("b", "equals", "9"),
			field("b", "equals", "2"),
		),
	)
	if !eligibility.Evaluate(ctx, tree, attrs, nil) {
		t.Fatalf("nested tree should evaluate true")
	}
	tree.Rules[1].Rules[1].Value = "3"
	if eligibility.Evaluate(ctx, tree, attrs, nil) {
		t.Fatalf("nested tree should evaluate false after edit")
	}
}

type stubRunner struct {
	result bool
	err    error
	query  string
}

func (s *stubRunner) RunSQLRule(_ context.Context, query string) (bool, error) {
	s.query = query
	return s.result, s.err
}

func TestSQLRuleDelegation(t *testing.T) {
	ctx := context.Background()
	node := &eligibility.Node{Type: eligibility.NodeSQLRule, Name: "roster", SQLQuery: "SELECT 1"}

	runner := &stubRunner{result: true}
	if !eligibility.Evaluate(ctx, node, nil, runner) {
		t.Fatalf("runner true should evaluate true")
	}
	if runner.query != "SELECT 1" {
		t.Fatalf("runner got query %q", runner.query)
	}

	runner = &stubRunner{err: errors.New("boom")}
	if eligibility.Evaluate(ctx, node, nil, runner) {
		t.Fatalf("runner error should fail closed")
	}
	if eligibility.Evaluate(ctx, node, nil, nil) {
		t.Fatalf("nil runner should fail closed")
	}
}
