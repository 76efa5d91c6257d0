package identity

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
)

const (
	DefaultTokenTTL      = 24 * time.Hour
	DefaultLockThreshold = 5
	DefaultLockDuration  = time.Hour
	DefaultBcryptCost    = 12
)

const (
	PasswordAlgorithmBcrypt   = "bcrypt"
	PasswordAlgorithmArgon2id = "argon2id"
)

// Config holds identity options. All secrets are injected here and
// nothing is read from package level state.
type Config struct {
	SigningKey            string        `env:"SIGNING_KEY"`
	Issuer                string        `env:"TOKEN_ISSUER" envDefault:"elimuconnect"`
	Audience              string        `env:"TOKEN_AUDIENCE" envDefault:"elimuconnect:api"`
	TokenTTL              time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	LockThreshold         int           `env:"LOCK_THRESHOLD" envDefault:"5"`
	LockDuration          time.Duration `env:"LOCK_DURATION" envDefault:"1h"`
	AdminRegistrationCode string        `env:"ADMIN_CODE"`
	PasswordAlgorithm     string        `env:"PASSWORD_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost            int           `env:"BCRYPT_COST" envDefault:"12"`
	TokenLookup           string        `env:"TOKEN_LOOKUP" envDefault:"header:Authorization,cookie:elimu_token"`
	AuthScheme            string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	ContextKey            string        `env:"CONTEXT_KEY" envDefault:"principal"`
}

// DefaultConfig returns the defaults without a signing key
func DefaultConfig() Config {
	return Config{
		Issuer:            "elimuconnect",
		Audience:          "elimuconnect:api",
		TokenTTL:          DefaultTokenTTL,
		LockThreshold:     DefaultLockThreshold,
		LockDuration:      DefaultLockDuration,
		PasswordAlgorithm: PasswordAlgorithmBcrypt,
		BcryptCost:        DefaultBcryptCost,
		TokenLookup:       "header:Authorization,cookie:elimu_token",
		AuthScheme:        "Bearer",
		ContextKey:        "principal",
	}
}

// LoadConfig reads the IDENTITY_ prefixed environment
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "IDENTITY_"})
	if err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to parse identity config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LockThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.LockDuration, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PasswordAlgorithm, validation.Required,
			validation.In(PasswordAlgorithmBcrypt, PasswordAlgorithmArgon2id)),
		validation.Field(&c.BcryptCost, validation.Min(4), validation.Max(31)),
	)
	if err != nil {
		return errors.FromOzzoValidation(err, "invalid identity config")
	}
	return nil
}

func (c Config) lockPolicy() LockoutPolicy {
	p := LockoutPolicy{Threshold: c.LockThreshold, Duration: c.LockDuration}
	return p.normalize()
}
