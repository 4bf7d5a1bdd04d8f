package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFilesPrecedence(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	yamlPath := filepath.Join(dir, "app.yaml")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"mongo_db":"from-json","app_port":"7000"}`), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte("mongo_db: from-yaml\nrate_limit: 50\n"), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nMONGO_DB=\"from-env-file\"\nJWT_TTL=90m\n"), 0o600))
	t.Setenv("APP_PORT", "9090")

	require.NoError(t, loadFromFiles(jsonPath, yamlPath, envPath))

	assert.Equal(t, "from-env-file", get("MONGO_DB", ""))
	assert.Equal(t, "9090", get("APP_PORT", ""))
	assert.Equal(t, "50", get("RATE_LIMIT", ""))
	assert.Equal(t, 90*time.Minute, duration("JWT_TTL", time.Hour))
}

func TestLoadFromFilesMissingIsFine(t *testing.T) {
	dir := t.TempDir()
	err := loadFromFiles(filepath.Join(dir, "nope.json"), filepath.Join(dir, "nope.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, defaultAdminEmail, get("DEFAULT_ADMIN_EMAIL", ""))
}

func TestListAndDuration(t *testing.T) {
	require.NoError(t, loadFromFiles("", "", ""))
	Set("KAFKA_BROKERS", "a:9092, b:9092,,")
	Set("STATS_CACHE_TTL", "15")

	assert.Equal(t, []string{"a:9092", "b:9092"}, list("KAFKA_BROKERS", nil))
	assert.Equal(t, 15*time.Second, duration("STATS_CACHE_TTL", time.Minute))

	Set("STATS_CACHE_TTL", "garbage")
	assert.Equal(t, time.Minute, duration("STATS_CACHE_TTL", time.Minute))
}
