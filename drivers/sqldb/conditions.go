package sqldb

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/rediwo/redi-eager/types"
)

// conditionToSQL translates a condition tree into a squirrel predicate
// using column for field names.
func conditionToSQL(cond types.Condition, column func(string) string) (sq.Sqlizer, error) {
	switch c := cond.(type) {
	case *types.FieldCondition:
		return fieldToSQL(c, column(c.Field))
	case *types.AndCondition:
		and := make(sq.And, 0, len(c.Conditions))
		for _, child := range c.Conditions {
			s, err := conditionToSQL(child, column)
			if err != nil {
				return nil, err
			}
			and = append(and, s)
		}
		return and, nil
	case *types.OrCondition:
		or := make(sq.Or, 0, len(c.Conditions))
		for _, child := range c.Conditions {
			s, err := conditionToSQL(child, column)
			if err != nil {
				return nil, err
			}
			or = append(or, s)
		}
		return or, nil
	case *types.NotCondition:
		inner, err := conditionToSQL(c.Condition, column)
		if err != nil {
			return nil, err
		}
		sql, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+sql+")", args...), nil
	default:
		return nil, fmt.Errorf("unsupported condition %T", cond)
	}
}

func fieldToSQL(c *types.FieldCondition, col string) (sq.Sqlizer, error) {
	switch c.Op {
	case types.OpEq:
		return sq.Eq{col: c.Value}, nil
	case types.OpNeq:
		return sq.NotEq{col: c.Value}, nil
	case types.OpGt:
		return sq.Gt{col: c.Value}, nil
	case types.OpGte:
		return sq.GtOrEq{col: c.Value}, nil
	case types.OpLt:
		return sq.Lt{col: c.Value}, nil
	case types.OpLte:
		return sq.LtOrEq{col: c.Value}, nil
	case types.OpIn:
		return sq.Eq{col: c.Values()}, nil
	case types.OpNotIn:
		return sq.NotEq{col: c.Values()}, nil
	case types.OpLike:
		return sq.Like{col: c.Value}, nil
	case types.OpNotLike:
		return sq.NotLike{col: c.Value}, nil
	case types.OpBetween:
		bounds := c.Values()
		if len(bounds) != 2 {
			return nil, fmt.Errorf("between on %s needs two bounds", c.Field)
		}
		return sq.And{sq.GtOrEq{col: bounds[0]}, sq.LtOrEq{col: bounds[1]}}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %s on %s", c.Op, c.Field)
	}
}
