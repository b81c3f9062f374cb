package util

import (
	"strconv"
	"strings"
)

// ParseInt parses a decimal int, returning fallback on malformed input.
func ParseInt(str string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
		return v
	}
	return fallback
}

func ParseUint64(str string, fallback uint64) uint64 {
	if v, err := strconv.ParseUint(strings.TrimSpace(str), 10, 64); err == nil {
		return v
	}
	return fallback
}

func ParseBool(str string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(str)); err == nil {
		return v
	}
	return fallback
}
