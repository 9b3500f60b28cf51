package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "./media", cfg.Storage.Dir)
	assert.Equal(t, 15*time.Minute, cfg.Storage.SignedURLTTL)
	assert.EqualValues(t, 50*1024*1024, cfg.Storage.MaxFileSizeBytes)
	assert.Equal(t, time.Duration(0), cfg.Share.DefaultExpiry)
	assert.Equal(t, 64, cfg.Cache.ExtensionLRUSize)
	assert.False(t, cfg.Mail.Enabled)
	assert.True(t, cfg.Migrations.RunOnBoot)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SHARE_BASE_URL", "https://files.example.edu/")
	v.Set("SHARE_DEFAULT_EXPIRY", "72h")
	v.Set("STORAGE_MAX_FILE_SIZE", -1)
	v.Set("ALLOWED_ORIGINS", "https://a.example.edu, ,https://b.example.edu")
	v.Set("MAIL_RETRY_DELAY", "not-a-duration")

	cfg := fromViper(v)
	assert.Equal(t, "https://files.example.edu", cfg.Share.BaseURL)
	assert.Equal(t, 72*time.Hour, cfg.Share.DefaultExpiry)
	assert.EqualValues(t, 50*1024*1024, cfg.Storage.MaxFileSizeBytes)
	assert.Equal(t, []string{"https://a.example.edu", "https://b.example.edu"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Mail.RetryDelay)
}
