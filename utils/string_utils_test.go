package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"userId", "user_id"},
		{"UserProfile", "user_profile"},
		{"AssemblyPart", "assembly_part"},
		{"userID", "user_id"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"id", "id"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSnakeCase(tt.input))
		})
	}
}

func TestToCamelCase(t *testing.T) {
	assert.Equal(t, "userId", ToCamelCase("user_id"))
	assert.Equal(t, "profileName", ToCamelCase("profile_name"))
	assert.Equal(t, "title", ToCamelCase("title"))
	assert.Equal(t, "gameParticipationId", ToCamelCase("game_participation_id"))
}

func TestRoundTripConversion(t *testing.T) {
	for _, name := range []string{"userId", "profileName", "partNumber", "ownerId"} {
		assert.Equal(t, name, ToCamelCase(ToSnakeCase(name)))
	}
}

func TestFirstRuneCase(t *testing.T) {
	assert.Equal(t, "user", LowerFirst("User"))
	assert.Equal(t, "Part", UpperFirst("part"))
	assert.Equal(t, "", LowerFirst(""))
	assert.Equal(t, "", UpperFirst(""))
}
