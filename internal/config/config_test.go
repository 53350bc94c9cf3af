package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SEASON_WEEKS", "")
	t.Setenv("TRUST_PROXY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.MagicLinkTTL)
	assert.Equal(t, 0, cfg.SeasonWeeks)
	assert.Equal(t, int64(5<<20), cfg.MaxPhotoBytes)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_TrustProxy(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxy)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_ParsesLists(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ADMIN_EMAILS", "Boss@Example.com,ops@example.com")
	t.Setenv("SEASON_WEEKS", "13")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsAdminEmail("boss@example.com"))
	assert.True(t, cfg.IsAdminEmail(" OPS@example.com "))
	assert.False(t, cfg.IsAdminEmail("player@example.com"))
	assert.Equal(t, 13, cfg.SeasonWeeks)
}

func TestParseList(t *testing.T) {
	assert.Empty(t, parseList(""))
	assert.Equal(t, []string{"a"}, parseList(" a "))
}
