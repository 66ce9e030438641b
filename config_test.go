package identity_test

import (
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func testConfig() identity.Config {
	return identity.Config{
		RegistrationKey: testRegistrationKey,
		ResetKey:        testResetKey,
		SessionKey:      testSessionKey,
		Issuer:          "test-issuer",
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("accepts a full config", func(t *testing.T) {
		assert.NoError(t, testConfig().Validate())
	})

	t.Run("rejects missing keys", func(t *testing.T) {
		cfg := testConfig()
		cfg.ResetKey = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects short keys", func(t *testing.T) {
		cfg := testConfig()
		cfg.SessionKey = []byte("short")
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects shared keys across purposes", func(t *testing.T) {
		cfg := testConfig()
		cfg.ResetKey = cfg.RegistrationKey
		assert.Error(t, cfg.Validate())
	})
}

func TestNewAppliesTTLDefaults(t *testing.T) {
	store := newMemStore()

	lc, err := identity.New(store, nil, testConfig())
	assert.NoError(t, err)
	assert.NotNil(t, lc)

	// defaults are fixed by the package constants
	assert.Equal(t, time.Hour, identity.DefaultRegistrationTTL)
	assert.Equal(t, 15*time.Minute, identity.DefaultResetTTL)
	assert.Equal(t, 7*24*time.Hour, identity.DefaultSessionTTL)
}
