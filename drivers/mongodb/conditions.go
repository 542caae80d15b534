package mongodb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rediwo/redi-eager/types"
	"go.mongodb.org/mongo-driver/bson"
)

// ToBSON translates a condition tree into a MongoDB filter document.
// field maps model field names onto document keys.
func ToBSON(cond types.Condition, field func(string) string) (bson.M, error) {
	if cond == nil {
		return bson.M{}, nil
	}
	switch c := cond.(type) {
	case *types.FieldCondition:
		return fieldToBSON(c, field(c.Field))
	case *types.AndCondition:
		parts, err := toBSONList(c.Conditions, field)
		if err != nil {
			return nil, err
		}
		return bson.M{"$and": parts}, nil
	case *types.OrCondition:
		parts, err := toBSONList(c.Conditions, field)
		if err != nil {
			return nil, err
		}
		return bson.M{"$or": parts}, nil
	case *types.NotCondition:
		inner, err := ToBSON(c.Condition, field)
		if err != nil {
			return nil, err
		}
		return bson.M{"$nor": bson.A{inner}}, nil
	default:
		return nil, fmt.Errorf("unsupported condition %T", cond)
	}
}

func toBSONList(conds []types.Condition, field func(string) string) (bson.A, error) {
	out := make(bson.A, 0, len(conds))
	for _, child := range conds {
		doc, err := ToBSON(child, field)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func fieldToBSON(c *types.FieldCondition, key string) (bson.M, error) {
	switch c.Op {
	case types.OpEq:
		return bson.M{key: c.Value}, nil
	case types.OpNeq:
		return bson.M{key: bson.M{"$ne": c.Value}}, nil
	case types.OpGt:
		return bson.M{key: bson.M{"$gt": c.Value}}, nil
	case types.OpGte:
		return bson.M{key: bson.M{"$gte": c.Value}}, nil
	case types.OpLt:
		return bson.M{key: bson.M{"$lt": c.Value}}, nil
	case types.OpLte:
		return bson.M{key: bson.M{"$lte": c.Value}}, nil
	case types.OpIn:
		return bson.M{key: bson.M{"$in": bson.A(c.Values())}}, nil
	case types.OpNotIn:
		return bson.M{key: bson.M{"$nin": bson.A(c.Values())}}, nil
	case types.OpLike:
		return bson.M{key: likeRegex(c.Value)}, nil
	case types.OpNotLike:
		return bson.M{key: bson.M{"$not": likeRegex(c.Value)}}, nil
	case types.OpBetween:
		bounds := c.Values()
		if len(bounds) != 2 {
			return nil, fmt.Errorf("between on %s needs two bounds", c.Field)
		}
		return bson.M{key: bson.M{"$gte": bounds[0], "$lte": bounds[1]}}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %s on %s", c.Op, c.Field)
	}
}

// likeRegex converts a LIKE pattern into an anchored regex.
func likeRegex(pattern any) bson.M {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range fmt.Sprint(pattern) {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return bson.M{"$regex": b.String(), "$options": "s"}
}
