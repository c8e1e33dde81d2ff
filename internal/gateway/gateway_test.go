package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/scribe-gateway/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "gateway.db")},
		Slack: config.SlackConfig{
			BotToken:      "xoxb-test",
			SigningSecret: "secret",
			Channel:       "C123",
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestGateway_NewAndShutdown(t *testing.T) {
	g, err := New(testConfig(t), testLogger())
	require.NoError(t, err)

	require.NoError(t, g.Shutdown(context.Background()))
}

func TestGateway_MetricsRoute(t *testing.T) {
	g, err := New(testConfig(t), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { g.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	g.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scribe_")
}
