package util_test

import (
	"testing"

	"github.com/downfa11-org/go-kvs/util"
	"github.com/stretchr/testify/assert"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		fallback int
		want     int
	}{
		{"9100", 0, 9100},
		{" 64 ", 8, 64},
		{"-1", 0, -1},
		{"64k", 16, 16},
		{"", 7, 7},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, util.ParseInt(tt.input, tt.fallback), "ParseInt(%q, %d)", tt.input, tt.fallback)
	}
}

func TestParseUint64(t *testing.T) {
	tests := []struct {
		input    string
		fallback uint64
		want     uint64
	}{
		{"1048576", 0, 1 << 20},
		{"18446744073709551615", 0, 1<<64 - 1},
		{"-1", 5, 5},
		{"1.5", 3, 3},
		{"  ", 9, 9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, util.ParseUint64(tt.input, tt.fallback), "ParseUint64(%q, %d)", tt.input, tt.fallback)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{" FALSE ", true, false},
		{"1", false, true},
		{"yes", true, true},
		{"yes", false, false},
		{"", true, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, util.ParseBool(tt.input, tt.fallback), "ParseBool(%q, %v)", tt.input, tt.fallback)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, util.LogLevelDebug, util.ParseLevel("debug"))
	assert.Equal(t, util.LogLevelWarn, util.ParseLevel("WARNING"))
	assert.Equal(t, util.LogLevelError, util.ParseLevel(" error "))
	assert.Equal(t, util.LogLevelInfo, util.ParseLevel("verbose"))
	assert.Equal(t, "warn", util.LogLevelWarn.String())
}
