package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*GatewayConfig, error) {
	v := viper.New()

	d := DefaultGatewayConfig()
	v.SetDefault("gateway.host", d.Host)
	v.SetDefault("gateway.port", d.Port)
	v.SetDefault("gateway.instance_id", d.InstanceID)
	v.SetDefault("gateway.request_timeout", d.RequestTimeout.String())
	v.SetDefault("gateway.max_body_bytes", d.MaxBodyBytes)
	v.SetDefault("metrics.flush_interval", d.FlushInterval.String())
	v.SetDefault("queue.redis_url", "")
	v.SetDefault("queue.name", d.QueueName)

	// MMDS_GATEWAY_PORT overrides gateway.port, and so on.
	v.SetEnvPrefix("MMDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &GatewayConfig{
		Host:           v.GetString("gateway.host"),
		Port:           v.GetInt("gateway.port"),
		InstanceID:     v.GetString("gateway.instance_id"),
		RequestTimeout: v.GetDuration("gateway.request_timeout"),
		MaxBodyBytes:   v.GetInt("gateway.max_body_bytes"),
		FlushInterval:  v.GetDuration("metrics.flush_interval"),
		RedisURL:       v.GetString("queue.redis_url"),
		QueueName:      v.GetString("queue.name"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *GatewayConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.InstanceID) == "" {
		return fmt.Errorf("instance_id must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.FlushInterval < 0 {
		return fmt.Errorf("flush_interval must not be negative, got %v", cfg.FlushInterval)
	}
	if cfg.RedisURL != "" && strings.TrimSpace(cfg.QueueName) == "" {
		return fmt.Errorf("queue.name is required when queue.redis_url is set")
	}
	return nil
}

// validateNoSecretsInConfig keeps HMAC secrets environment-only.
// InConfig looks at the file only, so MMDS_HMAC_SECRET in the environment is not flagged.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("gateway.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use MMDS_HMAC_SECRET environment variable)")
	}
	return nil
}
