package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// KeyOf returns the canonical map key for a scalar used to link records.
// Numbers of any Go kind that hold the same value share a key, so an int64
// foreign key read from SQL finds the float64 id decoded from JSON.
// Integers are formatted exactly; only real floats go through float64.
func KeyOf(v any) string {
	if neg, mag, ok := integerParts(v); ok {
		return formatInteger(neg, mag)
	}
	switch f := v.(type) {
	case float64:
		return floatKey(f)
	case float32:
		return floatKey(float64(f))
	}
	return ToString(v)
}

func floatKey(f float64) string {
	if f == math.Trunc(f) && f >= -maxExactFloat && f <= maxExactFloat {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// maxExactFloat bounds whole floats that convert to int64 without loss.
const maxExactFloat = 1 << 53

// integerParts splits an integer of any Go kind into sign and magnitude.
func integerParts(v any) (neg bool, mag uint64, ok bool) {
	var i int64
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int8:
		i = int64(n)
	case int16:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	case uint:
		return false, uint64(n), true
	case uint8:
		return false, uint64(n), true
	case uint16:
		return false, uint64(n), true
	case uint32:
		return false, uint64(n), true
	case uint64:
		return false, n, true
	default:
		return false, 0, false
	}
	if i < 0 {
		return true, uint64(-(i + 1)) + 1, true
	}
	return false, uint64(i), true
}

func formatInteger(neg bool, mag uint64) string {
	if neg {
		return "-" + strconv.FormatUint(mag, 10)
	}
	return strconv.FormatUint(mag, 10)
}

func compareIntegers(aNeg bool, aMag uint64, bNeg bool, bMag uint64) int {
	switch {
	case aNeg && !bNeg:
		return -1
	case !aNeg && bNeg:
		return 1
	}
	c := 0
	switch {
	case aMag < bMag:
		c = -1
	case aMag > bMag:
		c = 1
	}
	if aNeg {
		return -c
	}
	return c
}

// Equal reports whether two scalars are the same linking value.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return KeyOf(a) == KeyOf(b)
}

// Compare orders two values and returns -1, 0 or 1. nil sorts before
// everything else; mixed kinds fall back to their string form.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if aNeg, aMag, ok := integerParts(a); ok {
		if bNeg, bMag, ok := integerParts(b); ok {
			return compareIntegers(aNeg, aMag, bNeg, bMag)
		}
	}
	if fa, ok := toNumber(a); ok {
		if fb, ok := toNumber(b); ok {
			return compareFloat(fa, fb)
		}
	}

	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb)
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case va == vb:
				return 0
			case !va:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	}

	return strings.Compare(ToString(a), ToString(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
