package eligibility_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/eligibility"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("rule-%d", n)
	}
}

func strptr(s string) *string { return &s }

func TestFlattenBuildTreeRoundTrip(t *testing.T) {
	in := &eligibility.Node{
		ID:    "root",
		Type:  eligibility.NodeGroup,
		Logic: "AND",
		Rules: []*eligibility.Node{
			{Type: eligibility.NodeFieldRule, FieldID: "personal.state", Operator: "equals", Value: "CA"},
			{
				Type:  eligibility.NodeGroup,
				Logic: "OR",
				Rules: []*eligibility.Node{
					{Type: eligibility.NodeFieldRule, FieldID: "job.trade", Operator: "in", Value: []any{"electrician", "plumber"}},
					{Type: eligibility.NodeSQLRule, Name: "union member", Description: "checks the union roster", SQLQuery: "SELECT 1 FROM union_roster WHERE member_id = :id"},
				},
			},
			{Type: eligibility.NodeFieldRule, FieldID: "seniority", Operator: "greaterThan", Value: "5"},
		},
	}

	rows := eligibility.Flatten("crit-1", in, 0, sequentialIDs(), "2026-01-01T00:00:00Z")
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	out := eligibility.BuildTree("AND", rows)

	stripIDs(in)
	stripIDs(out)
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func stripIDs(n *eligibility.Node) {
	n.ID = ""
	for _, child := range n.Rules {
		stripIDs(child)
	}
}

func TestFlattenSiblingOrder(t *testing.T) {
	in := &eligibility.Node{
		ID: "root", Type: eligibility.NodeGroup, Logic: "OR",
		Rules: []*eligibility.Node{
			{Type: eligibility.NodeFieldRule, FieldID: "a.b", Operator: "equals", Value: "1"},
			{
				Type: eligibility.NodeGroup, Logic: "AND",
				Rules: []*eligibility.Node{
					{Type: eligibility.NodeFieldRule, FieldID: "c.d", Operator: "equals", Value: "2"},
				},
			},
		},
	}
	rows := eligibility.Flatten("crit-1", in, 3, sequentialIDs(), "2026-01-01T00:00:00Z")
	// root level picks up the offset, nested levels restart at zero
	if rows[0].DisplayOrder != 3 || rows[1].DisplayOrder != 4 {
		t.Fatalf("root offsets wrong: %d, %d", rows[0].DisplayOrder, rows[1].DisplayOrder)
	}
	if rows[2].DisplayOrder != 0 {
		t.Fatalf("nested order should restart at 0, got %d", rows[2].DisplayOrder)
	}
	if rows[2].ParentGroupID == nil || *rows[2].ParentGroupID != rows[1].ID {
		t.Fatalf("nested rule not parented to its group")
	}
}

func TestFieldIDWithoutCategory(t *testing.T) {
	in := &eligibility.Node{
		ID: "root", Type: eligibility.NodeGroup, Logic: "AND",
		Rules: []*eligibility.Node{
			{Type: eligibility.NodeFieldRule, FieldID: "seniority", Operator: "equals", Value: "10"},
		},
	}
	rows := eligibility.Flatten("crit-1", in, 0, sequentialIDs(), "2026-01-01T00:00:00Z")
	if rows[0].FieldCategory != "" || rows[0].FieldName != "seniority" {
		t.Fatalf("bare field id should land in field_name only: %+v", rows[0])
	}
	out := eligibility.BuildTree("AND", rows)
	if out.Rules[0].FieldID != "seniority" {
		t.Fatalf("bare field id lost: %q", out.Rules[0].FieldID)
	}
}

func TestMalformedListValueFallsBackToString(t *testing.T) {
	rows := []domain.EligibilityRule{
		{ID: "r1", CriteriaID: "c", RuleType: domain.RuleField, FieldCategory: "job", FieldName: "trade", Operator: "in", Value: strptr("[not json")},
	}
	out := eligibility.BuildTree("AND", rows)
	if got, ok := out.Rules[0].Value.(string); !ok || got != "[not json" {
		t.Fatalf("expected raw string fallback, got %#v", out.Rules[0].Value)
	}
}

func TestRuleCount(t *testing.T) {
	in := &eligibility.Node{
		ID: "root", Type: eligibility.NodeGroup, Logic: "AND",
		Rules: []*eligibility.Node{
			{Type: eligibility.NodeFieldRule, FieldID: "a.b", Operator: "equals", Value: "1"},
			{
				Type: eligibility.NodeGroup, Logic: "OR",
				Rules: []*eligibility.Node{
					{Type: eligibility.NodeFieldRule, FieldID: "c.d", Operator: "equals", Value: "2"},
					{Type: eligibility.NodeSQLRule, Name: "x", SQLQuery: "SELECT 1"},
				},
			},
		},
	}
	if got := eligibility.RuleCount(in); got != 3 {
		t.Fatalf("expected 3 leaf rules, got %d", got)
	}
}
