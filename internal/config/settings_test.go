package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ADDR", "PUBLIC_URL", "COLORME_CLIENT_ID", "COLORME_CLIENT_SECRET",
		"COLORME_READ_ONLY", "COLORME_SCOPES", "COLORME_TIMEOUT", "COOKIE_ENCRYPTION_KEY",
		"COLORME_ACCESS_TOKEN", "DATABASE_URL", "REDIS_URL", "AMQP_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8788", s.Server.Addr)
	assert.Equal(t, "https://api.shop-pro.jp/oauth/authorize", s.ColorMe.AuthorizeURL)
	assert.Equal(t, "https://api.shop-pro.jp/oauth/token", s.ColorMe.TokenURL)
	assert.Equal(t, DefaultScopes, s.ColorMe.Scopes)
	assert.True(t, s.ReadOnly())
	assert.Equal(t, 30*time.Second, s.Timeout())
	assert.Error(t, s.ValidateServer())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  public_url: https://mcp.example.com/
colorme:
  client_id: from-file
  client_secret: s3cret
  timeout: 5s
  read_only: false
cookie:
  encryption_key: k
`), 0o600))

	t.Setenv("COLORME_CLIENT_ID", "from-env")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://mcp.example.com", s.Server.PublicURL)
	assert.Equal(t, "https://mcp.example.com/callback", s.CallbackURL())
	assert.Equal(t, "from-env", s.ColorMe.ClientID)
	assert.Equal(t, 5*time.Second, s.Timeout())
	assert.False(t, s.ReadOnly())
	assert.NoError(t, s.ValidateServer())
}

func TestReadOnlyOnlyDisabledByExactFalse(t *testing.T) {
	clearEnv(t)

	for value, want := range map[string]bool{"false": false, "False": true, "0": true, "true": true} {
		t.Setenv("COLORME_READ_ONLY", value)
		s, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, want, s.ReadOnly(), value)
	}
}

func TestApplySecretJSON(t *testing.T) {
	t.Setenv("SECRET_A", "kept")
	t.Setenv("SECRET_B", "")
	os.Unsetenv("SECRET_B")

	applied, err := applySecretJSON(`{"SECRET_A":"new","SECRET_B":42}`, false)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, "kept", os.Getenv("SECRET_A"))
	assert.Equal(t, "42", os.Getenv("SECRET_B"))

	_, err = applySecretJSON(`not json`, false)
	assert.Error(t, err)
}
