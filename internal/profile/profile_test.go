package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slotwiseEnvVars = []string{
	"SLOTWISE_VIEWER_ZONE",
	"SLOTWISE_ICS_URL",
	"SLOTWISE_MONITOR_CRON",
	"SLOTWISE_AI_ENABLED",
	"SLOTWISE_AI_API_KEY",
	"SLOTWISE_AI_BASE_URL",
	"SLOTWISE_AI_MODEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range slotwiseEnvVars {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "UTC", p.ViewerZone)
	assert.Empty(t, p.ICSFeedURL)
	assert.Equal(t, "@every 1h", p.MonitorCron)
	assert.Equal(t, 30, p.MonitorLookaheadDays)
	assert.False(t, p.AIEnabled)
	assert.Equal(t, "https://api.siliconflow.cn/v1", p.AIBaseURL)
	assert.Equal(t, "Qwen/Qwen2.5-7B-Instruct", p.AIModel)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLOTWISE_VIEWER_ZONE", "Asia/Kolkata")
	t.Setenv("SLOTWISE_ICS_URL", "https://example.com/feed.ics")
	t.Setenv("SLOTWISE_MONITOR_CRON", "@every 30m")
	t.Setenv("SLOTWISE_AI_ENABLED", "true")
	t.Setenv("SLOTWISE_AI_API_KEY", "sk-test")
	t.Setenv("SLOTWISE_AI_MODEL", "deepseek-chat")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "Asia/Kolkata", p.ViewerZone)
	assert.Equal(t, "https://example.com/feed.ics", p.ICSFeedURL)
	assert.Equal(t, "@every 30m", p.MonitorCron)
	assert.True(t, p.AIEnabled)
	assert.Equal(t, "deepseek-chat", p.AIModel)
	assert.True(t, p.IsAIEnabled())
}

func TestIsAIEnabledNeedsKey(t *testing.T) {
	p := &Profile{AIEnabled: true}
	assert.False(t, p.IsAIEnabled(), "enabled flag without an API key stays off")

	p.AIAPIKey = "sk-test"
	assert.True(t, p.IsAIEnabled())
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	p := &Profile{Mode: "bogus", Data: dir}
	require.NoError(t, p.Validate())

	assert.Equal(t, "demo", p.Mode, "unknown modes fall back to demo")
	assert.Equal(t, dir, p.Data)
	assert.Equal(t, dir+"/processed_events.json", p.StateFile())
}
