package util_test

import (
	"encoding/json"
	"testing"

	"github.com/downfa11-org/go-kvs/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLogLevelYAML(t *testing.T) {
	var cfg struct {
		Level util.LogLevel `yaml:"log_level"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("log_level: warn"), &cfg))
	assert.Equal(t, util.LogLevelWarn, cfg.Level)

	require.NoError(t, yaml.Unmarshal([]byte("log_level: 0"), &cfg))
	assert.Equal(t, util.LogLevelDebug, cfg.Level)

	assert.Error(t, yaml.Unmarshal([]byte("log_level: [a, b]"), &cfg))
}

func TestLogLevelJSON(t *testing.T) {
	var cfg struct {
		Level util.LogLevel `json:"log_level"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"log_level":"error"}`), &cfg))
	assert.Equal(t, util.LogLevelError, cfg.Level)

	require.NoError(t, json.Unmarshal([]byte(`{"log_level":1}`), &cfg))
	assert.Equal(t, util.LogLevelInfo, cfg.Level)

	assert.Error(t, json.Unmarshal([]byte(`{"log_level":true}`), &cfg))
}
