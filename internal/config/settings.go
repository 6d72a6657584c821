package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultScopes is the upstream permission set requested for every shop,
// independent of what the MCP client asked for.
var DefaultScopes = []string{
	"read_products",
	"write_products",
	"read_sales",
	"write_sales",
	"read_shop_coupons",
}

// Settings is the service configuration.
type Settings struct {
	Server struct {
		Addr      string `yaml:"addr"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`

	ColorMe struct {
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		AuthorizeURL string   `yaml:"authorize_url"`
		TokenURL     string   `yaml:"token_url"`
		APIBaseURL   string   `yaml:"api_base_url"`
		Scopes       []string `yaml:"scopes"`
		Timeout      string   `yaml:"timeout"`
		ReadOnly     *bool    `yaml:"read_only"`
		AccessToken  string   `yaml:"access_token"`
	} `yaml:"colorme"`

	Cookie struct {
		EncryptionKey string `yaml:"encryption_key"`
	} `yaml:"cookie"`

	Store struct {
		DatabaseURL string `yaml:"database_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"store"`

	Events struct {
		AMQPURL  string `yaml:"amqp_url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"events"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads the optional YAML file at path, applies environment overrides,
// then fills defaults. A missing file is not an error.
func Load(path string) (*Settings, error) {
	s := &Settings{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	s.applyEnv()
	s.applyDefaults()
	return s, nil
}

func (s *Settings) applyEnv() {
	override(&s.Server.Addr, "ADDR")
	override(&s.Server.PublicURL, "PUBLIC_URL")
	override(&s.ColorMe.ClientID, "COLORME_CLIENT_ID")
	override(&s.ColorMe.ClientSecret, "COLORME_CLIENT_SECRET")
	override(&s.ColorMe.AuthorizeURL, "COLORME_AUTHORIZE_URL")
	override(&s.ColorMe.TokenURL, "COLORME_TOKEN_URL")
	override(&s.ColorMe.APIBaseURL, "COLORME_API_BASE_URL")
	override(&s.ColorMe.Timeout, "COLORME_TIMEOUT")
	override(&s.ColorMe.AccessToken, "COLORME_ACCESS_TOKEN")
	override(&s.Cookie.EncryptionKey, "COOKIE_ENCRYPTION_KEY")
	override(&s.Store.DatabaseURL, "DATABASE_URL")
	override(&s.Store.RedisURL, "REDIS_URL")
	override(&s.Events.AMQPURL, "AMQP_URL")
	override(&s.Events.Exchange, "AMQP_EXCHANGE")
	override(&s.Log.Level, "LOG_LEVEL")
	override(&s.Log.Format, "LOG_FORMAT")

	if v, ok := os.LookupEnv("COLORME_READ_ONLY"); ok {
		readOnly := v != "false"
		s.ColorMe.ReadOnly = &readOnly
	}
	if v := strings.TrimSpace(os.Getenv("COLORME_SCOPES")); v != "" {
		s.ColorMe.Scopes = strings.Fields(v)
	}
}

func (s *Settings) applyDefaults() {
	setDefault(&s.Server.Addr, ":8788")
	s.Server.PublicURL = strings.TrimRight(s.Server.PublicURL, "/")
	setDefault(&s.ColorMe.AuthorizeURL, "https://api.shop-pro.jp/oauth/authorize")
	setDefault(&s.ColorMe.TokenURL, "https://api.shop-pro.jp/oauth/token")
	setDefault(&s.ColorMe.APIBaseURL, "https://api.shop-pro.jp/v1")
	setDefault(&s.Events.Exchange, "colorme.auth")
	setDefault(&s.Log.Level, "info")
	setDefault(&s.Log.Format, "text")
	if len(s.ColorMe.Scopes) == 0 {
		s.ColorMe.Scopes = append([]string(nil), DefaultScopes...)
	}
	if s.ColorMe.ReadOnly == nil {
		readOnly := true
		s.ColorMe.ReadOnly = &readOnly
	}
}

// ReadOnly reports whether write tools stay unregistered.
func (s *Settings) ReadOnly() bool {
	return s.ColorMe.ReadOnly == nil || *s.ColorMe.ReadOnly
}

// Timeout is the per-call timeout for tool requests to the ColorMe API.
func (s *Settings) Timeout() time.Duration {
	if s.ColorMe.Timeout != "" {
		if d, err := time.ParseDuration(s.ColorMe.Timeout); err == nil {
			return d
		}
	}
	return 30 * time.Second
}

// CallbackURL is the redirect_uri registered with ColorMe.
func (s *Settings) CallbackURL() string {
	return s.Server.PublicURL + "/callback"
}

// ValidateServer checks what the HTTP server needs to run the bridge.
func (s *Settings) ValidateServer() error {
	var missing []string
	if s.Server.PublicURL == "" {
		missing = append(missing, "PUBLIC_URL")
	}
	if s.ColorMe.ClientID == "" {
		missing = append(missing, "COLORME_CLIENT_ID")
	}
	if s.ColorMe.ClientSecret == "" {
		missing = append(missing, "COLORME_CLIENT_SECRET")
	}
	if s.Cookie.EncryptionKey == "" {
		missing = append(missing, "COOKIE_ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateStdio checks what the stdio binary needs.
func (s *Settings) ValidateStdio() error {
	if s.ColorMe.AccessToken == "" {
		return fmt.Errorf("missing required settings: COLORME_ACCESS_TOKEN")
	}
	return nil
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDefault(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}
