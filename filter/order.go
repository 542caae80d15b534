package filter

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/types"
)

// ParseOrder accepts "title DESC", "a ASC, b DESC", an array of such
// strings, or {field: "desc"} objects.
func ParseOrder(order any) ([]types.OrderBy, error) {
	switch val := order.(type) {
	case nil:
		return nil, nil
	case string:
		var out []types.OrderBy
		for _, part := range strings.Split(val, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ob, err := parseOrderTerm(part)
			if err != nil {
				return nil, err
			}
			out = append(out, ob)
		}
		return out, nil
	case []types.OrderBy:
		return val, nil
	}

	if items, ok := asSlice(order); ok {
		var out []types.OrderBy
		for _, item := range items {
			obs, err := ParseOrder(item)
			if err != nil {
				return nil, err
			}
			out = append(out, obs...)
		}
		return out, nil
	}

	if entries, ok := types.Entries(order); ok {
		out := make([]types.OrderBy, 0, len(entries))
		for _, e := range entries {
			dir, err := parseDirection(fmt.Sprint(e.Value))
			if err != nil {
				return nil, err
			}
			out = append(out, types.OrderBy{Field: e.Key, Direction: dir})
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidOrder, order)
}

func parseOrderTerm(term string) (types.OrderBy, error) {
	parts := strings.Fields(term)
	if len(parts) > 2 {
		return types.OrderBy{}, fmt.Errorf("%w: %q", ErrInvalidOrder, term)
	}
	if err := types.ValidateFieldName(parts[0]); err != nil {
		return types.OrderBy{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	ob := types.OrderBy{Field: parts[0]}
	if len(parts) == 2 {
		dir, err := parseDirection(parts[1])
		if err != nil {
			return types.OrderBy{}, err
		}
		ob.Direction = dir
	}
	return ob, nil
}

func parseDirection(s string) (types.Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC", "":
		return types.ASC, nil
	case "DESC":
		return types.DESC, nil
	default:
		return types.ASC, fmt.Errorf("%w: direction %q", ErrInvalidOrder, s)
	}
}
