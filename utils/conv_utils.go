package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToBool converts query-string and driver representations to bool.
// "true"/"1"/"yes" are true, everything unparseable is false.
func ToBool(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "on":
			return true
		case "", "false", "0", "no", "off":
			return false
		}
		if n, err := strconv.ParseFloat(val, 64); err == nil {
			return n != 0
		}
		return false
	case []byte:
		return ToBool(string(val))
	default:
		if f, ok := toNumber(v); ok {
			return f != 0
		}
		return false
	}
}

// ToInt64 converts numeric driver values, numeric strings and bools to int64.
// Floats are truncated; anything else yields 0.
func ToInt64(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		return int64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return int64(f)
		}
		return 0
	case []byte:
		return ToInt64(string(val))
	default:
		f, _ := toNumber(v)
		return int64(f)
	}
}

// ToInt is ToInt64 narrowed to int.
func ToInt(v any) int {
	return int(ToInt64(v))
}

// ToString renders scalars the way drivers hand them back, without the
// fmt quoting of []byte.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// IsInteger reports whether v holds a whole number, including
// float64 values decoded from JSON.
func IsInteger(v any) bool {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return val == float64(int64(val))
	case float32:
		return val == float32(int64(val))
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return err == nil
	default:
		return false
	}
}

// toNumber unwraps every Go numeric kind. ok is false for non-numbers.
func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}
