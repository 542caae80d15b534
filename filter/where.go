package filter

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/types"
)

// ParseWhere builds a condition from a loopback style where object:
//
//	{"title": "A", "userId": {"inq": [1, 2]}, "or": [{"a": 1}, {"b": 2}]}
//
// nil and empty objects yield a nil condition.
func ParseWhere(where any) (types.Condition, error) {
	if where == nil {
		return nil, nil
	}
	if c, ok := where.(types.Condition); ok {
		return c, nil
	}

	entries, ok := types.Entries(where)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %T", ErrInvalidWhere, where)
	}

	var conditions []types.Condition
	for _, e := range entries {
		switch strings.ToLower(e.Key) {
		case "and", "or":
			items, ok := asSlice(e.Value)
			if !ok {
				return nil, fmt.Errorf("%w: %q expects an array", ErrInvalidWhere, e.Key)
			}
			var children []types.Condition
			for _, item := range items {
				child, err := ParseWhere(item)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			if strings.EqualFold(e.Key, "or") {
				conditions = append(conditions, types.Or(children...))
			} else {
				conditions = append(conditions, types.And(children...))
			}
		case "not":
			child, err := ParseWhere(e.Value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, types.Not(child))
		default:
			cond, err := buildFieldCondition(e.Key, e.Value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
	}

	return types.And(conditions...), nil
}

func buildFieldCondition(field string, value any) (types.Condition, error) {
	if err := types.ValidateFieldName(field); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWhere, err)
	}

	entries, isObject := types.Entries(value)
	if !isObject {
		return types.Eq(field, value), nil
	}

	var conditions []types.Condition
	for _, e := range entries {
		cond, err := buildOperator(field, e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: empty operator object for %q", ErrInvalidWhere, field)
	}
	return types.And(conditions...), nil
}

func buildOperator(field, op string, val any) (types.Condition, error) {
	switch op {
	case "eq", "equals":
		return types.Eq(field, val), nil
	case "neq", "not":
		return types.Neq(field, val), nil
	case "gt":
		return types.Gt(field, val), nil
	case "gte":
		return types.Gte(field, val), nil
	case "lt":
		return types.Lt(field, val), nil
	case "lte":
		return types.Lte(field, val), nil
	case "inq", "in":
		values, ok := asSlice(val)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s expects an array", ErrInvalidWhere, field, op)
		}
		return types.In(field, values), nil
	case "nin", "notIn":
		values, ok := asSlice(val)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s expects an array", ErrInvalidWhere, field, op)
		}
		return types.NotIn(field, values), nil
	case "between":
		values, ok := asSlice(val)
		if !ok || len(values) != 2 {
			return nil, fmt.Errorf("%w: %s.between expects [min, max]", ErrInvalidWhere, field)
		}
		return types.Between(field, values[0], values[1]), nil
	case "like":
		return types.Like(field, fmt.Sprint(val)), nil
	case "nlike":
		return types.NotLike(field, fmt.Sprint(val)), nil
	case "contains":
		return types.Like(field, "%"+fmt.Sprint(val)+"%"), nil
	case "startsWith":
		return types.Like(field, fmt.Sprint(val)+"%"), nil
	case "endsWith":
		return types.Like(field, "%"+fmt.Sprint(val)), nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q on %q", ErrInvalidWhere, op, field)
	}
}

func asSlice(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}
