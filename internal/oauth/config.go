package oauth

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds OAuth server settings.
type Config struct {
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AuthCodeTTL     time.Duration
	ClientCacheTTL  time.Duration
	DCRMode         string
	DCRAccessToken  string
}

// LoadConfigFromEnv loads OAuth config from environment variables. The issuer
// defaults to publicURL, the audience to the issuer.
func LoadConfigFromEnv(publicURL string) (Config, error) {
	issuer := strings.TrimSpace(os.Getenv("OAUTH_ISSUER"))
	if issuer == "" {
		issuer = publicURL
	}
	if issuer == "" {
		return Config{}, fmt.Errorf("OAUTH_ISSUER or PUBLIC_URL is required")
	}
	issuer = strings.TrimRight(issuer, "/")

	audience := strings.TrimSpace(os.Getenv("OAUTH_AUDIENCE"))
	if audience == "" {
		audience = issuer
	}

	dcrMode := strings.ToLower(strings.TrimSpace(os.Getenv("OAUTH_DCR_MODE")))
	if dcrMode == "" {
		dcrMode = "open"
	}
	if dcrMode != "open" && dcrMode != "protected" {
		return Config{}, fmt.Errorf("OAUTH_DCR_MODE must be open or protected, got %q", dcrMode)
	}
	dcrToken := os.Getenv("OAUTH_DCR_ACCESS_TOKEN")
	if dcrMode == "protected" && dcrToken == "" {
		return Config{}, fmt.Errorf("OAUTH_DCR_ACCESS_TOKEN is required in protected mode")
	}

	return Config{
		Issuer:          issuer,
		Audience:        audience,
		AccessTokenTTL:  parseDurationEnv("OAUTH_ACCESS_TOKEN_TTL", 60*time.Minute),
		RefreshTokenTTL: parseDurationEnv("OAUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		AuthCodeTTL:     parseDurationEnv("OAUTH_AUTH_CODE_TTL", 10*time.Minute),
		ClientCacheTTL:  parseDurationEnv("OAUTH_CLIENT_CACHE_TTL", 5*time.Minute),
		DCRMode:         dcrMode,
		DCRAccessToken:  dcrToken,
	}, nil
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if dur, err := time.ParseDuration(val); err == nil {
			return dur
		}
	}
	return fallback
}
