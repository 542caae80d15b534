package filter

import (
	"fmt"

	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

// ParseFields accepts ["id", "title"] or {"id": true, "title": true}.
// Keys set to false are dropped; nil means every field.
func ParseFields(fields any) ([]string, error) {
	if fields == nil {
		return nil, nil
	}
	if s, ok := fields.(string); ok {
		return []string{s}, nil
	}
	if items, ok := asSlice(fields); ok {
		out := make([]string, 0, len(items))
		for _, item := range items {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field name %v is not a string", ErrInvalidFilter, item)
			}
			out = append(out, name)
		}
		return out, nil
	}
	if entries, ok := types.Entries(fields); ok {
		var out []string
		for _, e := range entries {
			if utils.ToBool(e.Value) {
				out = append(out, e.Key)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: fields must be an array or object, got %T", ErrInvalidFilter, fields)
}

// ParseCount reads limit, skip and offset values. nil is zero.
func ParseCount(name string, v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	if !utils.IsInteger(v) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidFilter, name, v)
	}
	n := utils.ToInt(v)
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidFilter, name)
	}
	return n, nil
}
