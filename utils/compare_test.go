package utils

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyOf(t *testing.T) {
	assert.Equal(t, KeyOf(int64(7)), KeyOf(float64(7)))
	assert.Equal(t, KeyOf(7), KeyOf("7"))
	assert.Equal(t, "1.5", KeyOf(1.5))
	assert.Equal(t, "abc", KeyOf([]byte("abc")))
	assert.NotEqual(t, KeyOf(1), KeyOf(2))
	assert.Equal(t, KeyOf(1), KeyOf(1.0))
	assert.Equal(t, "-3", KeyOf(int8(-3)))
}

func TestKeyOfLargeIntegers(t *testing.T) {
	const big = int64(1) << 53

	assert.Equal(t, "9007199254740992", KeyOf(big))
	assert.Equal(t, "9007199254740993", KeyOf(big+1))
	assert.NotEqual(t, KeyOf(big), KeyOf(big+1))
	assert.Equal(t, KeyOf(big+1), KeyOf(uint64(big+1)))
	assert.Equal(t, KeyOf(big+1), KeyOf("9007199254740993"))
	assert.Equal(t, "18446744073709551615", KeyOf(uint64(math.MaxUint64)))
	assert.Equal(t, "-9223372036854775808", KeyOf(int64(math.MinInt64)))

	assert.False(t, Equal(big, big+1))
	assert.True(t, Equal(int64(42), uint32(42)))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 0))
	assert.True(t, Equal(int32(3), uint64(3)))
	assert.False(t, Equal("a", "b"))
}

func TestCompare(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		a, b     any
		expected int
	}{
		{"nils", nil, nil, 0},
		{"nil first", nil, "a", -1},
		{"nil last", 1, nil, 1},
		{"ints", 1, 2, -1},
		{"mixed numbers", int64(5), 4.5, 1},
		{"strings", "Post C", "Post A", 1},
		{"bools", false, true, -1},
		{"times", now, now.Add(time.Second), -1},
		{"fallback", "10", 10, 0},
		{"large ints", int64(1)<<53 + 1, int64(1) << 53, 1},
		{"uint above int64", uint64(math.MaxUint64), int64(math.MaxInt64), 1},
		{"negatives", int64(-5), int64(-2), -1},
		{"negative and unsigned", int64(-1), uint8(0), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compare(tt.a, tt.b))
		})
	}
}
