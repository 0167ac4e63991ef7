package bootstrap

import (
	"fmt"

	"github.com/go-authgate/pairgate/internal/config"
)

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateRateLimitConfig(cfg); err != nil {
		return fmt.Errorf("invalid rate limit configuration: %w", err)
	}
	return nil
}

// validateRateLimitConfig checks that every per-action limit is usable when
// rate limiting is on.
func validateRateLimitConfig(cfg *config.Config) error {
	if !cfg.EnableRateLimit {
		return nil
	}

	limits := []struct {
		name   string
		limit  int
		window string
		ok     bool
	}{
		{"RATE_LIMIT_REGISTRATION", cfg.RegistrationRateLimit, "RATE_LIMIT_REGISTRATION_WINDOW", cfg.RegistrationRateWindow > 0},
		{"RATE_LIMIT_PAIRING_CODE", cfg.PairingCodeRateLimit, "RATE_LIMIT_PAIRING_CODE_WINDOW", cfg.PairingCodeRateWindow > 0},
		{"RATE_LIMIT_PAIRING", cfg.PairingRateLimit, "RATE_LIMIT_PAIRING_WINDOW", cfg.PairingRateWindow > 0},
		{"RATE_LIMIT_KEY_EXCHANGE", cfg.KeyExchangeRateLimit, "RATE_LIMIT_KEY_EXCHANGE_WINDOW", cfg.KeyExchangeRateWindow > 0},
	}
	for _, l := range limits {
		if l.limit < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", l.name, l.limit)
		}
		if !l.ok {
			return fmt.Errorf("%s must be positive", l.window)
		}
	}

	if cfg.HTTPRateLimit < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT must not be negative, got %d", cfg.HTTPRateLimit)
	}
	return nil
}
