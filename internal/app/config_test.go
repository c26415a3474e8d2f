package app

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT_MS", "")
	require.NoError(t, os.Unsetenv("QUERY_TIMEOUT_MS"))
	t.Setenv("EUR_DATASET", "custom.eur")
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 30000, cfg.QueryTimeoutMS)
	require.Equal(t, "custom.eur", cfg.DatasetIDs().EUR)
	require.NotEmpty(t, cfg.DatasetIDs().GDP)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsTimeoutOutOfRange(t *testing.T) {
	for _, v := range []string{"999", "300001"} {
		t.Setenv("QUERY_TIMEOUT_MS", v)
		_, err := LoadConfig()
		require.Error(t, err, v)
		require.Contains(t, err.Error(), "QUERY_TIMEOUT_MS")
	}
}

func TestLoadConfigRejectsNonNumericTimeout(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT_MS", "fast")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", LogLevel: "debug"}, &buf).Debug("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "v", entry["k"])

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty"}, &buf).Debug("hidden")
	require.Empty(t, buf.String())
	newLogger(&Config{LogFormat: "pretty"}, &buf).Info("shown")
	require.True(t, strings.Contains(buf.String(), "msg=shown"))
}

func TestTestModeRefresh(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	require.False(t, InTestMode())
}
