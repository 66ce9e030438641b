package identity

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Default TTLs: verification links live an hour, reset links fifteen
// minutes, sessions a week.
const (
	DefaultRegistrationTTL = time.Hour
	DefaultResetTTL        = 15 * time.Minute
	DefaultSessionTTL      = 7 * 24 * time.Hour
)

// Config carries the signing keys and TTLs for every token purpose.
// Each purpose holds its own key so a token minted for one flow cannot be
// replayed as another even when the claim shapes overlap. Construct it
// explicitly; this package never reads the environment.
type Config struct {
	// RegistrationKey signs registration and email-change tokens
	RegistrationKey []byte
	// ResetKey signs password reset tokens
	ResetKey []byte
	// SessionKey signs session tokens issued on login
	SessionKey []byte

	RegistrationTTL time.Duration
	ResetTTL        time.Duration
	SessionTTL      time.Duration

	Issuer   string
	Audience []string
}

// Validate checks the config is usable: all three keys present and
// pairwise distinct.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.RegistrationKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.ResetKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SessionKey, validation.Required, validation.Length(16, 0)),
	); err != nil {
		return err
	}

	if string(c.RegistrationKey) == string(c.ResetKey) ||
		string(c.RegistrationKey) == string(c.SessionKey) ||
		string(c.ResetKey) == string(c.SessionKey) {
		return errKeysNotDistinct
	}

	return nil
}

var errKeysNotDistinct = errors.New("signing keys must be pairwise distinct")

// withDefaults fills zero TTLs with the package defaults
func (c Config) withDefaults() Config {
	if c.RegistrationTTL == 0 {
		c.RegistrationTTL = DefaultRegistrationTTL
	}
	if c.ResetTTL == 0 {
		c.ResetTTL = DefaultResetTTL
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	return c
}
