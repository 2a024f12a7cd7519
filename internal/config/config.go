// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
)

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// KafkaConfig holds broker settings. An empty broker list disables Kafka.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// WindowsAuthConfig controls the forwarded network-login bridge.
// The header is trusted as-is, so enable it only behind a proxy that sets it
// and strips any client-supplied copy.
type WindowsAuthConfig struct {
	Enabled      bool
	Header       string
	AdminUsers   []string
	ManagerUsers []string
	EmailDomain  string
}

// ServiceConfig holds all configuration for the coupon service.
type ServiceConfig struct {
	Port             string
	AppEnv           string
	DBConfig         database.PostgresConfig
	JWTConfig        JWTConfig
	KafkaConfig      KafkaConfig
	WindowsAuth      WindowsAuthConfig
	AssignMaxRetries int
	ListDefaultLimit int
	UploadMaxBytes   int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coupon_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)

	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_ACCESS_TTL", "15m")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_PREFIX", "")

	v.SetDefault("WINDOWS_AUTH_ENABLED", false)
	v.SetDefault("WINDOWS_AUTH_HEADER", "X-Forwarded-User")
	v.SetDefault("WINDOWS_ADMIN_USERS", "")
	v.SetDefault("WINDOWS_MANAGER_USERS", "")
	v.SetDefault("WINDOWS_EMAIL_DOMAIN", "")

	v.SetDefault("ASSIGN_MAX_RETRIES", 5)
	v.SetDefault("LIST_DEFAULT_LIMIT", 100)
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
}

// Load reads configuration from environment variables, with an optional .env file
// in the working directory, and returns a ServiceConfig.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a ServiceConfig from an already-populated viper instance.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: database.PostgresConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		JWTConfig: JWTConfig{
			Secret:    v.GetString("JWT_SECRET"),
			AccessTTL: v.GetDuration("JWT_ACCESS_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		WindowsAuth: WindowsAuthConfig{
			Enabled:      v.GetBool("WINDOWS_AUTH_ENABLED"),
			Header:       v.GetString("WINDOWS_AUTH_HEADER"),
			AdminUsers:   splitList(v.GetString("WINDOWS_ADMIN_USERS")),
			ManagerUsers: splitList(v.GetString("WINDOWS_MANAGER_USERS")),
			EmailDomain:  v.GetString("WINDOWS_EMAIL_DOMAIN"),
		},
		AssignMaxRetries: v.GetInt("ASSIGN_MAX_RETRIES"),
		ListDefaultLimit: v.GetInt("LIST_DEFAULT_LIMIT"),
		UploadMaxBytes:   v.GetInt64("UPLOAD_MAX_BYTES"),
	}

	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if cfg.JWTConfig.Secret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.JWTConfig.AccessTTL <= 0 {
		return nil, fmt.Errorf("JWT_ACCESS_TTL must be positive, got %s", cfg.JWTConfig.AccessTTL)
	}
	if cfg.AssignMaxRetries < 0 {
		return nil, fmt.Errorf("ASSIGN_MAX_RETRIES must not be negative, got %d", cfg.AssignMaxRetries)
	}
	if cfg.ListDefaultLimit <= 0 {
		return nil, fmt.Errorf("LIST_DEFAULT_LIMIT must be positive, got %d", cfg.ListDefaultLimit)
	}
	if cfg.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", cfg.UploadMaxBytes)
	}
	return cfg, nil
}

// IsDevelopment reports whether APP_ENV selects development behaviour.
func (c *ServiceConfig) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
