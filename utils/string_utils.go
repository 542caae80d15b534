package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ToSnakeCase converts a camelCase or PascalCase name to snake_case.
// Runs of capitals stay together: "userID" becomes "user_id".
func ToSnakeCase(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	var result strings.Builder
	result.Grow(len(s) + 5)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1]) && runes[i-1] != '_'
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])
			if prevLower || nextLower {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// ToCamelCase converts a snake_case column name back to camelCase.
// Names without underscores are returned unchanged.
func ToCamelCase(s string) string {
	parts := strings.Split(s, "_")
	if len(parts) <= 1 {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))
	result.WriteString(parts[0])
	for _, part := range parts[1:] {
		result.WriteString(UpperFirst(part))
	}
	return result.String()
}

// LowerFirst lowercases the first rune: "User" -> "user".
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// UpperFirst uppercases the first rune: "part" -> "Part".
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
