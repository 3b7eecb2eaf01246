package eligibility

import (
	"encoding/json"
	"strings"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
)

// Node kinds in the editor-facing tree shape.
const (
	NodeGroup     = "GROUP"
	NodeFieldRule = "FIELD_RULE"
	NodeSQLRule   = "SQL_RULE"
)

// Node is one element of the nested rule tree. GROUP nodes carry Logic and
// Rules; FIELD_RULE leaves carry FieldID/Operator/Value; SQL_RULE leaves carry
// Name/Description/SQLQuery. The synthetic root is a GROUP with id "root".
// Incoming trees may omit ids; persistence assigns fresh ones on every save.
type Node struct {
	ID          string  `json:"id,omitempty"`
	Type        string  `json:"type" enum:"GROUP,FIELD_RULE,SQL_RULE"`
	Logic       string  `json:"logic,omitempty" enum:"AND,OR"`
	Rules       []*Node `json:"rules,omitempty"`
	FieldID     string  `json:"fieldId,omitempty"`
	Operator    string  `json:"operator,omitempty"`
	Value       any     `json:"value,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	SQLQuery    string  `json:"sqlQuery,omitempty"`
}

// BuildTree reassembles the flat rule rows into the nested tree, wrapping the
// root-level forest in a synthetic GROUP carrying the criteria's root logic.
// Rows must already be ordered by display order; ordering is preserved.
func BuildTree(rootLogic string, rows []domain.EligibilityRule) *Node {
	buckets := make(map[string][]domain.EligibilityRule)
	for _, r := range rows {
		key := ""
		if r.ParentGroupID != nil {
			key = *r.ParentGroupID
		}
		buckets[key] = append(buckets[key], r)
	}
	return &Node{
		ID:    "root",
		Type:  NodeGroup,
		Logic: rootLogic,
		Rules: buildChildren(buckets, ""),
	}
}

func buildChildren(buckets map[string][]domain.EligibilityRule, parentID string) []*Node {
	rows := buckets[parentID]
	nodes := make([]*Node, 0, len(rows))
	for _, r := range rows {
		switch r.RuleType {
		case domain.RuleGroup:
			nodes = append(nodes, &Node{
				ID:    r.ID,
				Type:  NodeGroup,
				Logic: r.GroupLogic,
				Rules: buildChildren(buckets, r.ID),
			})
		case domain.RuleSQL:
			n := &Node{ID: r.ID, Type: NodeSQLRule, Name: r.FieldName}
			if r.Value != nil {
				n.Description = *r.Value
			}
			if r.SQLQuery != nil {
				n.SQLQuery = *r.SQLQuery
			}
			nodes = append(nodes, n)
		default:
			fieldID := r.FieldName
			if r.FieldCategory != "" {
				fieldID = r.FieldCategory + "." + r.FieldName
			}
			nodes = append(nodes, &Node{
				ID:       r.ID,
				Type:     NodeFieldRule,
				FieldID:  fieldID,
				Operator: r.Operator,
				Value:    decodeValue(r.Value),
			})
		}
	}
	return nodes
}

// decodeValue restores a stored list value. The column is plain text, so the
// only signal is a leading bracket; anything that fails to parse stays a raw
// string rather than failing the whole decode.
func decodeValue(v *string) any {
	if v == nil {
		return nil
	}
	s := *v
	if strings.HasPrefix(s, "[") {
		var list []any
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return list
		}
	}
	return s
}

// Flatten walks the tree depth-first and produces the flat rows to persist.
// Every node gets a fresh id from newID; sibling order restarts at zero inside
// each nested group, while rootOffset shifts only the root level so callers
// can append below existing rows. The synthetic root itself is not emitted.
func Flatten(criteriaID string, root *Node, rootOffset int, newID func() string, now string) []domain.EligibilityRule {
	if root == nil {
		return nil
	}
	var rows []domain.EligibilityRule
	flattenInto(&rows, criteriaID, nil, root.Rules, rootOffset, newID, now)
	return rows
}

func flattenInto(rows *[]domain.EligibilityRule, criteriaID string, parentID *string, nodes []*Node, offset int, newID func() string, now string) {
	for i, n := range nodes {
		row := domain.EligibilityRule{
			ID:            newID(),
			CriteriaID:    criteriaID,
			ParentGroupID: parentID,
			DisplayOrder:  offset + i,
			CreatedAt:     now,
		}
		switch n.Type {
		case NodeGroup:
			row.RuleType = domain.RuleGroup
			row.GroupLogic = n.Logic
			*rows = append(*rows, row)
			id := row.ID
			flattenInto(rows, criteriaID, &id, n.Rules, 0, newID, now)
		case NodeSQLRule:
			row.RuleType = domain.RuleSQL
			row.FieldName = n.Name
			if n.Description != "" {
				desc := n.Description
				row.Value = &desc
			}
			if n.SQLQuery != "" {
				q := n.SQLQuery
				row.SQLQuery = &q
			}
			*rows = append(*rows, row)
		default:
			row.RuleType = domain.RuleField
			category, name, found := strings.Cut(n.FieldID, ".")
			if found {
				row.FieldCategory = category
				row.FieldName = name
			} else {
				row.FieldName = n.FieldID
			}
			row.Operator = n.Operator
			if v := encodeValue(n.Value); v != "" {
				s := v
				row.Value = &s
			}
			*rows = append(*rows, row)
		}
	}
}

func encodeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// RuleCount reports the number of leaf rules in a tree.
func RuleCount(n *Node) int {
	if n == nil {
		return 0
	}
	if n.Type != NodeGroup {
		return 1
	}
	total := 0
	for _, child := range n.Rules {
		total += RuleCount(child)
	}
	return total
}
