package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 15*time.Minute, cfg.JWTConfig.AccessTTL)
	assert.False(t, cfg.KafkaConfig.Enabled())
	assert.False(t, cfg.WindowsAuth.Enabled)
	assert.Equal(t, "X-Forwarded-User", cfg.WindowsAuth.Header)
	assert.Equal(t, 5, cfg.AssignMaxRetries)
	assert.Equal(t, 100, cfg.ListDefaultLimit)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SERVICE_PORT", "9090")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("WINDOWS_ADMIN_USERS", `CORP\boss,root`)
	v.Set("JWT_ACCESS_TTL", "1h")
	v.Set("APP_ENV", "production")
	v.Set("WINDOWS_AUTH_ENABLED", "true")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.True(t, cfg.KafkaConfig.Enabled())
	assert.Equal(t, []string{`CORP\boss`, "root"}, cfg.WindowsAuth.AdminUsers)
	assert.True(t, cfg.WindowsAuth.Enabled)
	assert.Equal(t, time.Hour, cfg.JWTConfig.AccessTTL)
	assert.False(t, cfg.IsDevelopment())
}

func TestFromViper_Rejects(t *testing.T) {
	for key, value := range map[string]interface{}{
		"JWT_SECRET":         "",
		"JWT_ACCESS_TTL":     "0s",
		"LIST_DEFAULT_LIMIT": 0,
		"ASSIGN_MAX_RETRIES": -1,
		"UPLOAD_MAX_BYTES":   0,
	} {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			v.Set(key, value)
			_, err := FromViper(v)
			assert.Error(t, err)
		})
	}
}
