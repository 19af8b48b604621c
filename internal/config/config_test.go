package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesAndDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "postgres://localhost/sched")
	t.Setenv("JWT_HMAC_SECRET", "secret")
	t.Setenv("INVITATION_TTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 48*time.Hour, cfg.Schedule.InvitationTTL)
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
	assert.Equal(t, "0 */15 * * * *", cfg.Schedule.SweepCron)
	assert.Equal(t, 5*time.Second, cfg.DB.StatementTimeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.OTel.Enabled())
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
port: "9090"
database:
  dsn: postgres://file/sched
jwt:
  secret: from-file
schedule:
  timezone: Europe/Berlin
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("APP_ENV", "test")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_HMAC_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://file/sched", cfg.DB.DSN)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:      "production",
		Port:     "8080",
		DB:       DBConfig{DSN: "postgres://x"},
		JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Schedule: ScheduleConfig{Timezone: "UTC"},
	}
	require.NoError(t, base.Validate())

	short := base
	short.JWT.Secret = "short"
	assert.Error(t, short.Validate())

	noDSN := base
	noDSN.DB.DSN = ""
	assert.Error(t, noDSN.Validate())

	badTZ := base
	badTZ.Schedule.Timezone = "Mars/Olympus"
	assert.Error(t, badTZ.Validate())

	badPort := base
	badPort.Port = "70000"
	assert.Error(t, badPort.Validate())
}
