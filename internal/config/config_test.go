package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scribe-gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
server:
  http_addr: "127.0.0.1:5000"
database:
  path: "/tmp/scribe.db"
slack:
  bot_token: "xoxb-token"
  signing_secret: "shhh"
  channel: "C123"
logging:
  level: "debug"
  format: "json"
metrics:
  enabled: true
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5000", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/scribe.db", cfg.Database.Path)
	assert.Equal(t, "xoxb-token", cfg.Slack.BotToken)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path, "metrics path defaults when enabled")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SLACK_TOKEN", "xoxb-from-env")

	content := `
server:
  http_addr: "127.0.0.1:5000"
database:
  path: "/tmp/scribe.db"
slack:
  bot_token: "${TEST_SLACK_TOKEN}"
  signing_secret: "shhh"
  channel: "C123"
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)
	assert.Equal(t, "xoxb-from-env", cfg.Slack.BotToken)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "no http addr",
			content: `
database: {path: "/tmp/x.db"}
slack: {bot_token: "t", signing_secret: "s", channel: "C"}
`,
			wantErr: "server.http_addr",
		},
		{
			name: "no database path",
			content: `
server: {http_addr: ":5000"}
slack: {bot_token: "t", signing_secret: "s", channel: "C"}
`,
			wantErr: "database.path",
		},
		{
			name: "no bot token",
			content: `
server: {http_addr: ":5000"}
database: {path: "/tmp/x.db"}
slack: {signing_secret: "s", channel: "C"}
`,
			wantErr: "slack.bot_token",
		},
		{
			name: "no signing secret",
			content: `
server: {http_addr: ":5000"}
database: {path: "/tmp/x.db"}
slack: {bot_token: "t", channel: "C"}
`,
			wantErr: "slack.signing_secret",
		},
		{
			name: "no channel",
			content: `
server: {http_addr: ":5000"}
database: {path: "/tmp/x.db"}
slack: {bot_token: "t", signing_secret: "s"}
`,
			wantErr: "slack.channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not: valid"))
	assert.Error(t, err)
}
