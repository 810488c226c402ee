package pms

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

var _ Config = (*BaseConfig)(nil)

// BaseConfig is the environment backed Config.
type BaseConfig struct {
	Addr            string        `env:"PMS_ADDR" envDefault:":8572" json:"addr"`
	DSN             string        `env:"PMS_DSN" envDefault:"file:pms.db?cache=shared" json:"dsn"`
	SigningKey      string        `env:"PMS_SIGNING_KEY" json:"-"`
	TokenExpiration int           `env:"PMS_TOKEN_EXPIRATION" envDefault:"24" json:"token_expiration"`
	ProviderTimeout time.Duration `env:"PMS_PROVIDER_TIMEOUT" envDefault:"10s" json:"provider_timeout"`
	StateKey        string        `env:"PMS_STATE_KEY" json:"-"`
	StateHMACKey    string        `env:"PMS_STATE_HMAC_KEY" json:"-"`
	DefaultLang     string        `env:"PMS_DEFAULT_LANG" envDefault:"ko" json:"default_lang"`
	SecureCookies   bool          `env:"PMS_SECURE_COOKIES" envDefault:"true" json:"secure_cookies"`
	Debug           bool          `env:"PMS_DEBUG" json:"debug"`
	Google          GoogleConfig  `json:"google"`
}

// GoogleConfig enables the interactive Google sign-in when ClientID is set.
type GoogleConfig struct {
	ClientID     string `env:"PMS_GOOGLE_CLIENT_ID" json:"client_id"`
	ClientSecret string `env:"PMS_GOOGLE_CLIENT_SECRET" json:"-"`
	CallbackURL  string `env:"PMS_GOOGLE_CALLBACK_URL" envDefault:"http://localhost:8572/auth/google/callback" json:"callback_url"`
}

// LoadConfig parses the environment into a BaseConfig and validates it.
func LoadConfig() (*BaseConfig, error) {
	cfg := &BaseConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *BaseConfig) Validate() error {
	if len(c.SigningKey) < 32 {
		return goerrors.New("PMS_SIGNING_KEY must be at least 32 bytes", goerrors.CategoryValidation)
	}
	if c.Google.ClientID != "" {
		if n := len(c.StateKey); n != 16 && n != 24 && n != 32 {
			return goerrors.New(fmt.Sprintf("PMS_STATE_KEY must be 16, 24 or 32 bytes, got %d", n), goerrors.CategoryValidation)
		}
		if c.StateHMACKey == "" {
			return goerrors.New("PMS_STATE_HMAC_KEY is required when Google sign-in is enabled", goerrors.CategoryValidation)
		}
	}
	return nil
}

func (c *BaseConfig) GetAddr() string {
	return c.Addr
}

func (c *BaseConfig) GetDSN() string {
	return c.DSN
}

func (c *BaseConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *BaseConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c *BaseConfig) GetProviderTimeout() time.Duration {
	if c.ProviderTimeout <= 0 {
		return DefaultProviderTimeout
	}
	return c.ProviderTimeout
}

func (c *BaseConfig) GetStateKey() string {
	return c.StateKey
}

func (c *BaseConfig) GetStateHMACKey() string {
	return c.StateHMACKey
}

func (c *BaseConfig) GetDefaultLang() string {
	return c.DefaultLang
}

func (c *BaseConfig) GetSecureCookies() bool {
	return c.SecureCookies
}

func (c *BaseConfig) GetDebug() bool {
	return c.Debug
}
