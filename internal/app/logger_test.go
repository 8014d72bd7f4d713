package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json"}, "ledger-api", &buf)
	logger.Debug("hidden")
	logger.Info("ready", "tenant_id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "ready", entry["msg"])
	require.Equal(t, "ledger-api", entry["service"])
	require.EqualValues(t, 7, entry["tenant_id"])
	require.Contains(t, entry, "source")
}

func TestNewLoggerTextDebugOutsideProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "development"}, "", &buf)
	logger.Debug("cache bumped")
	require.Contains(t, buf.String(), "level=DEBUG")
	require.Contains(t, buf.String(), `msg="cache bumped"`)
	require.NotContains(t, buf.String(), "service=")
}
