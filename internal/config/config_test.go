package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppConfig_Defaults(t *testing.T) {
	t.Setenv("TASKER_RUNTIME_PATH", "")
	t.Setenv("LISTEN_ADDR", "")

	c, err := ParseAppConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8200", c.ListenAddr)
	assert.Equal(t, BackendSQLite, c.MemoryBackend)
	assert.Equal(t, 10, c.BufferCapacity)
	assert.Equal(t, 5, c.ContextMessages)
	assert.Equal(t, 2*time.Minute, c.RunTimeout)
	assert.False(t, c.IsChatEnabled())
	assert.True(t, filepath.IsAbs(c.GetRuntimePath()))
	assert.Equal(t, "tasker.db", filepath.Base(c.GetDatabasePath()))
}

func TestParseAppConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKER_RUNTIME_PATH", dir)
	t.Setenv("CHAT_TRANSPORT", TransportMatrix)
	t.Setenv("TASKER_TIMEZONE", "Europe/Berlin")

	c, err := ParseAppConfig()
	require.NoError(t, err)

	assert.Equal(t, dir, c.GetRuntimePath())
	assert.True(t, c.IsChatEnabled())
	assert.Equal(t, "Europe/Berlin", c.Location().String())
}

func TestAppConfig_UnknownTimezoneFallsBack(t *testing.T) {
	c := AppConfig{Timezone: "Mars/Olympus"}
	assert.Equal(t, time.Local, c.Location())
}

func TestLLMConfig_Enabled(t *testing.T) {
	assert.False(t, LLMConfig{Provider: "openai"}.Enabled())
	assert.True(t, LLMConfig{Provider: "openai", APIKey: "k"}.Enabled())
	assert.True(t, LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434"}.Enabled())
}
