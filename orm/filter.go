package orm

import (
	"fmt"

	"github.com/rediwo/redi-eager/filter"
	"github.com/rediwo/redi-eager/include"
	"github.com/rediwo/redi-eager/types"
)

// Filter is a parsed query filter: the root query plus what to include.
type Filter struct {
	Where   types.Condition
	Order   []types.OrderBy
	Limit   int
	Skip    int
	Fields  []string
	Include include.Spec
}

// ParseFilter reads a loopback style filter object:
//
//	{"where": {...}, "order": "title DESC", "limit": 10, "skip": 5,
//	 "fields": ["id", "title"], "include": {"owner": "posts"}}
//
// A string is decoded as JSON first. Unknown keys are rejected.
func ParseFilter(raw any) (*Filter, error) {
	if s, ok := raw.(string); ok {
		decoded, err := include.ParseJSON([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", filter.ErrInvalidFilter, err)
		}
		raw = decoded
	}

	f := &Filter{}
	if raw == nil {
		return f, nil
	}
	entries, ok := types.Entries(raw)
	if !ok {
		return nil, fmt.Errorf("%w: filter must be an object, got %T", filter.ErrInvalidFilter, raw)
	}

	for _, e := range entries {
		var err error
		switch e.Key {
		case "where":
			f.Where, err = filter.ParseWhere(e.Value)
		case "order":
			f.Order, err = filter.ParseOrder(e.Value)
		case "limit":
			f.Limit, err = filter.ParseCount(e.Key, e.Value)
		case "skip", "offset":
			f.Skip, err = filter.ParseCount(e.Key, e.Value)
		case "fields":
			f.Fields, err = filter.ParseFields(e.Value)
		case "include":
			f.Include, err = include.Normalize(e.Value)
		default:
			err = fmt.Errorf("%w: unknown filter key %q", filter.ErrInvalidFilter, e.Key)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Filter) findOptions() types.FindOptions {
	return types.FindOptions{
		Fields: f.Fields,
		Order:  f.Order,
		Limit:  f.Limit,
		Skip:   f.Skip,
	}
}
