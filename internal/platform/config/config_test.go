package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("CLAVIS_ADDR", "")
	t.Setenv("CLAVIS_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("JWT_SECRET_FILE", "")
	t.Setenv("JWT_REFRESH_SECRET_FILE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/users", cfg.CookiePath)
	assert.NotEmpty(t, cfg.JWT.AccessSecret)
	assert.NotEmpty(t, cfg.JWT.RefreshSecret)
	assert.NotEqual(t, cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret)
}

func TestFromEnv_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("CLAVIS_ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("JWT_SECRET_FILE", "")
	t.Setenv("JWT_REFRESH_SECRET_FILE", "")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_SecretFileTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "jwt-secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("mounted-secret\n"), 0o600))

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_SECRET_FILE", secretPath)
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("JWT_REFRESH_SECRET_FILE", "")
	t.Setenv("CLAVIS_ENV", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []byte("mounted-secret"), cfg.JWT.AccessSecret)
	assert.Equal(t, []byte("refresh-secret"), cfg.JWT.RefreshSecret)
}

func TestFromEnv_AuditBrokers(t *testing.T) {
	t.Setenv("AUDIT_KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("AUDIT_KAFKA_TOPIC", "")
	t.Setenv("CLAVIS_ENV", "")
	t.Setenv("JWT_SECRET", "s1")
	t.Setenv("JWT_REFRESH_SECRET", "s2")
	t.Setenv("JWT_SECRET_FILE", "")
	t.Setenv("JWT_REFRESH_SECRET_FILE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Audit.Brokers)
	assert.Equal(t, "clavis.audit", cfg.Audit.Topic)
}
