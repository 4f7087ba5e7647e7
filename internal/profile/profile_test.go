package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsMode(t *testing.T) {
	p := &Profile{Mode: "nonsense", Driver: "sqlite", Data: t.TempDir()}
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
}

func TestValidateSQLiteDefaultDSN(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}
	require.NoError(t, p.Validate())
	assert.Contains(t, p.DSN, "wellspring_dev.db")
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	p := &Profile{Mode: "prod", Driver: "postgres", Data: t.TempDir()}
	assert.Error(t, p.Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
	assert.Error(t, p.Validate())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("WELLSPRING_AI_ENABLED", "true")
	t.Setenv("WELLSPRING_AI_API_KEY", "sk-test")
	t.Setenv("WELLSPRING_AI_RATE_LIMIT", "2.5")

	p := &Profile{}
	p.FromEnv()

	assert.True(t, p.IsAIEnabled())
	assert.Equal(t, "https://api.openai.com/v1", p.AIBaseURL)
	assert.Equal(t, "gpt-4o-mini", p.AIModel)
	assert.InDelta(t, 2.5, p.AIRateLimit, 1e-9)
}

func TestIsAIEnabledRequiresKey(t *testing.T) {
	p := &Profile{AIEnabled: true}
	assert.False(t, p.IsAIEnabled())
}
