package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, ":8000", cfg.Addr)
	require.Equal(t, "dockyard.db", cfg.DBPath)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	require.Equal(t, "session", cfg.Auth.SessionCookie)
	require.Equal(t, "shared:ms_oid_by_session:", cfg.Auth.SessionKeyPrefix)
	require.Equal(t, "shared:ms_oid_by_user:", cfg.Auth.UserKeyPrefix)
	require.Equal(t, []string{"https://graph.microsoft.com/.default"}, cfg.Auth.Scopes)
	require.Equal(t, "6379", cfg.Redis.Port)
	require.False(t, cfg.Redis.TLS)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("CORS_ORIGINS", "https://portal.example, https://staging.example")
	t.Setenv("REDIS_TLS", "TRUE")
	t.Setenv("SESSION_COOKIE_NAME", "sid")

	cfg := Load()
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, []string{"https://portal.example", "https://staging.example"}, cfg.CORSOrigins)
	require.True(t, cfg.Redis.TLS)
	require.Equal(t, "sid", cfg.Auth.SessionCookie)
}

func TestSplitList(t *testing.T) {
	require.Nil(t, splitList(""))
	require.Equal(t, []string{"a", "b"}, splitList("a, ,b,"))
}
