package api

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidUserID is returned when a path segment carries no usable integer id.
var ErrInvalidUserID = errors.New("invalid user id")

// ParseUserID parses the leading integer of raw: optional leading whitespace, an optional
// sign, then base-10 digits. Anything after the digits is ignored, so "42abc" is 42.
// Input without leading digits, or an id outside the int64 range, is rejected.
func ParseUserID(raw string) (int64, error) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, ErrInvalidUserID
	}

	id, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, ErrInvalidUserID
	}
	return id, nil
}
