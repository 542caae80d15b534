package types

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rediwo/redi-eager/utils"
)

// Operator is a field comparison in a where filter.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "inq"
	OpNotIn   Operator = "nin"
	OpLike    Operator = "like"
	OpNotLike Operator = "nlike"
	OpBetween Operator = "between"
)

// Condition is a backend-neutral filter tree. Backends translate it into
// their own query language; Match evaluates it in process.
type Condition interface {
	Match(r Record) bool
	String() string
}

// FieldCondition compares one field against a value. For OpIn and OpNotIn
// Value is a []any; for OpBetween it is a two element []any.
type FieldCondition struct {
	Field string
	Op    Operator
	Value any
}

func (c *FieldCondition) Match(r Record) bool {
	v := r[c.Field]
	switch c.Op {
	case OpEq:
		return utils.Equal(v, c.Value)
	case OpNeq:
		return !utils.Equal(v, c.Value)
	case OpGt:
		return v != nil && c.Value != nil && utils.Compare(v, c.Value) > 0
	case OpGte:
		return v != nil && c.Value != nil && utils.Compare(v, c.Value) >= 0
	case OpLt:
		return v != nil && c.Value != nil && utils.Compare(v, c.Value) < 0
	case OpLte:
		return v != nil && c.Value != nil && utils.Compare(v, c.Value) <= 0
	case OpIn:
		return containsValue(c.Values(), v)
	case OpNotIn:
		return !containsValue(c.Values(), v)
	case OpLike:
		return v != nil && LikeRegexp(utils.ToString(c.Value)).MatchString(utils.ToString(v))
	case OpNotLike:
		return v == nil || !LikeRegexp(utils.ToString(c.Value)).MatchString(utils.ToString(v))
	case OpBetween:
		bounds := c.Values()
		if v == nil || len(bounds) != 2 {
			return false
		}
		return utils.Compare(v, bounds[0]) >= 0 && utils.Compare(v, bounds[1]) <= 0
	default:
		return false
	}
}

// Values returns Value as a slice for set and range operators.
func (c *FieldCondition) Values() []any {
	if vals, ok := c.Value.([]any); ok {
		return vals
	}
	if c.Value == nil {
		return nil
	}
	return []any{c.Value}
}

func (c *FieldCondition) String() string {
	switch c.Op {
	case OpEq:
		if c.Value == nil {
			return c.Field + " IS NULL"
		}
		return fmt.Sprintf("%s = %v", c.Field, c.Value)
	case OpNeq:
		if c.Value == nil {
			return c.Field + " IS NOT NULL"
		}
		return fmt.Sprintf("%s != %v", c.Field, c.Value)
	case OpGt:
		return fmt.Sprintf("%s > %v", c.Field, c.Value)
	case OpGte:
		return fmt.Sprintf("%s >= %v", c.Field, c.Value)
	case OpLt:
		return fmt.Sprintf("%s < %v", c.Field, c.Value)
	case OpLte:
		return fmt.Sprintf("%s <= %v", c.Field, c.Value)
	case OpIn, OpNotIn:
		parts := make([]string, 0, len(c.Values()))
		for _, v := range c.Values() {
			parts = append(parts, fmt.Sprintf("%v", v))
		}
		kw := "IN"
		if c.Op == OpNotIn {
			kw = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", c.Field, kw, strings.Join(parts, ", "))
	case OpLike:
		return fmt.Sprintf("%s LIKE %v", c.Field, c.Value)
	case OpNotLike:
		return fmt.Sprintf("%s NOT LIKE %v", c.Field, c.Value)
	case OpBetween:
		b := c.Values()
		if len(b) == 2 {
			return fmt.Sprintf("%s BETWEEN %v AND %v", c.Field, b[0], b[1])
		}
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

func containsValue(set []any, v any) bool {
	for _, candidate := range set {
		if utils.Equal(candidate, v) {
			return true
		}
	}
	return false
}

// AndCondition matches when every child matches.
type AndCondition struct {
	Conditions []Condition
}

func (c *AndCondition) Match(r Record) bool {
	for _, cond := range c.Conditions {
		if !cond.Match(r) {
			return false
		}
	}
	return true
}

func (c *AndCondition) String() string { return joinConditions(c.Conditions, " AND ") }

// OrCondition matches when any child matches.
type OrCondition struct {
	Conditions []Condition
}

func (c *OrCondition) Match(r Record) bool {
	for _, cond := range c.Conditions {
		if cond.Match(r) {
			return true
		}
	}
	return false
}

func (c *OrCondition) String() string { return joinConditions(c.Conditions, " OR ") }

// NotCondition negates its child.
type NotCondition struct {
	Condition Condition
}

func (c *NotCondition) Match(r Record) bool { return !c.Condition.Match(r) }

func (c *NotCondition) String() string { return fmt.Sprintf("NOT (%s)", c.Condition) }

func joinConditions(conds []Condition, sep string) string {
	parts := make([]string, len(conds))
	for i, cond := range conds {
		parts[i] = "(" + cond.String() + ")"
	}
	return strings.Join(parts, sep)
}

// Utility functions for building conditions

func Eq(field string, value any) Condition  { return &FieldCondition{field, OpEq, value} }
func Neq(field string, value any) Condition { return &FieldCondition{field, OpNeq, value} }
func Gt(field string, value any) Condition  { return &FieldCondition{field, OpGt, value} }
func Gte(field string, value any) Condition { return &FieldCondition{field, OpGte, value} }
func Lt(field string, value any) Condition  { return &FieldCondition{field, OpLt, value} }
func Lte(field string, value any) Condition { return &FieldCondition{field, OpLte, value} }

func In(field string, values []any) Condition    { return &FieldCondition{field, OpIn, values} }
func NotIn(field string, values []any) Condition { return &FieldCondition{field, OpNotIn, values} }

func Like(field, pattern string) Condition    { return &FieldCondition{field, OpLike, pattern} }
func NotLike(field, pattern string) Condition { return &FieldCondition{field, OpNotLike, pattern} }

func Between(field string, lo, hi any) Condition {
	return &FieldCondition{field, OpBetween, []any{lo, hi}}
}

// And combines conditions, dropping nils and flattening nested ANDs.
// It returns nil when nothing is left.
func And(conditions ...Condition) Condition {
	var out []Condition
	for _, c := range conditions {
		switch v := c.(type) {
		case nil:
		case *AndCondition:
			out = append(out, v.Conditions...)
		default:
			out = append(out, c)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return &AndCondition{Conditions: out}
}

// Or combines conditions, dropping nils. It returns nil when nothing is left.
func Or(conditions ...Condition) Condition {
	var out []Condition
	for _, c := range conditions {
		if c != nil {
			out = append(out, c)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return &OrCondition{Conditions: out}
}

func Not(condition Condition) Condition {
	if condition == nil {
		return nil
	}
	if n, ok := condition.(*NotCondition); ok {
		return n.Condition
	}
	return &NotCondition{Condition: condition}
}

var (
	likeMu    sync.Mutex
	likeCache = map[string]*regexp.Regexp{}
)

// LikeRegexp compiles a SQL LIKE pattern (% and _ wildcards) into an
// anchored regular expression.
func LikeRegexp(pattern string) *regexp.Regexp {
	likeMu.Lock()
	defer likeMu.Unlock()
	if re, ok := likeCache[pattern]; ok {
		return re
	}
	re := regexp.MustCompile("^" + LikeToRegex(pattern) + "$")
	likeCache[pattern] = re
	return re
}

// LikeToRegex converts a LIKE pattern into unanchored regex source.
func LikeToRegex(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString("(?s:.*)")
		case '_':
			b.WriteString("(?s:.)")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
