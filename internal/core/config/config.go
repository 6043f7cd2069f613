// Package config provides configuration management for the mmdsgate service.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// GatewayConfig holds configuration for the translation service.
type GatewayConfig struct {
	Host           string
	Port           int
	InstanceID     string
	RequestTimeout time.Duration
	// MaxBodyBytes caps PUT/PATCH bodies; 51200 matches the default MMDS data store limit.
	MaxBodyBytes int

	// FlushInterval controls counter persistence. Zero disables it.
	FlushInterval time.Duration

	// RedisURL enables forwarding of queued actions when non-empty.
	RedisURL  string
	QueueName string
}

// DefaultGatewayConfig returns configuration with default values.
func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Host:           "0.0.0.0",
		Port:           50061,
		InstanceID:     defaultInstanceID(),
		RequestTimeout: 30 * time.Second,
		MaxBodyBytes:   51200,
		FlushInterval:  60 * time.Second,
		QueueName:      "mmds_queued_actions",
	}
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "mmdsgate"
	}
	return host
}

// HMACSecrets extracts API key HMAC secrets from the environment.
// Supports MMDS_HMAC_SECRET (single) and MMDS_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check MMDS_HMAC_SECRET and MMDS_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("MMDS_HMAC_SECRET"); val != "" {
		if err := add("MMDS_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets stop at the first gap.
	for i := 1; ; i++ {
		key := fmt.Sprintf("MMDS_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars (UUID without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	id, encoded, ok := strings.Cut(strings.TrimSpace(envValue), ":")
	if !ok {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	if len(id) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUID without hyphens)")
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return id, secret, nil
}
