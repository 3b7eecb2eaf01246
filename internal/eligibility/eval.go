package eligibility

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLRuleRunner executes a stored SQL_RULE predicate against candidate data.
// The query text is caller-authored and opaque to the evaluator.
type SQLRuleRunner interface {
	RunSQLRule(ctx context.Context, query string) (bool, error)
}

// Evaluate answers whether a candidate's attributes satisfy the rule tree.
// It fails closed: a missing attribute, unknown operator, malformed value or
// SQL runner error all evaluate to false rather than returning an error.
func Evaluate(ctx context.Context, n *Node, attrs map[string]any, runner SQLRuleRunner) bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case NodeGroup:
		if n.Logic == "OR" {
			for _, child := range n.Rules {
				if Evaluate(ctx, child, attrs, runner) {
					return true
				}
			}
			return false
		}
		// AND: vacuously true when the group is empty.
		for _, child := range n.Rules {
			if !Evaluate(ctx, child, attrs, runner) {
				return false
			}
		}
		return true
	case NodeSQLRule:
		if runner == nil || n.SQLQuery == "" {
			return false
		}
		ok, err := runner.RunSQLRule(ctx, n.SQLQuery)
		if err != nil {
			return false
		}
		return ok
	case NodeFieldRule:
		actual, ok := attrs[n.FieldID]
		if !ok || actual == nil {
			return false
		}
		return applyOperator(n.Operator, actual, n.Value)
	default:
		return false
	}
}

func applyOperator(op string, actual, expected any) bool {
	switch op {
	case "equals":
		return valueString(actual) == valueString(expected)
	case "notEquals":
		return valueString(actual) != valueString(expected)
	case "in":
		list, ok := expected.([]any)
		if !ok {
			return false
		}
		got := valueString(actual)
		for _, v := range list {
			if valueString(v) == got {
				return true
			}
		}
		return false
	case "greaterThan":
		cmp, ok := compare(actual, expected)
		return ok && cmp > 0
	case "lessThan":
		cmp, ok := compare(actual, expected)
		return ok && cmp < 0
	case "contains":
		if list, ok := actual.([]any); ok {
			want := valueString(expected)
			for _, v := range list {
				if valueString(v) == want {
					return true
				}
			}
			return false
		}
		return strings.Contains(valueString(actual), valueString(expected))
	default:
		return false
	}
}

// compare orders two values numerically when both parse as numbers, falling
// back to date ordering for yyyy-mm-dd / RFC 3339 strings. The second return
// is false when the values are not comparable.
func compare(a, b any) (int, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af > bf:
			return 1, true
		case af < bf:
			return -1, true
		default:
			return 0, true
		}
	}
	at, aok := toTime(a)
	bt, bok := toTime(b)
	if aok && bok {
		switch {
		case at.After(bt):
			return 1, true
		case at.Before(bt):
			return -1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func valueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; render integral values without a
		// trailing ".0" so they match attribute strings like "3".
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
