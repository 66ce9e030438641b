package identity_test

import (
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func timeptr(t time.Time) *time.Time { return &t }

func TestIdentityState(t *testing.T) {
	hash := strptr("$2a$14$fakefakefakefakefakefake")
	expiry := timeptr(time.Now().Add(time.Hour))

	cases := []struct {
		name   string
		record *identity.Identity
		want   identity.AccountState
	}{
		{
			name:   "fresh registration is unverified",
			record: &identity.Identity{IsVerified: false},
			want:   identity.StateUnverified,
		},
		{
			name:   "reset before verification stays unverified",
			record: &identity.Identity{IsVerified: false, PasswordHash: hash},
			want:   identity.StateUnverified,
		},
		{
			name:   "verified with password is active",
			record: &identity.Identity{IsVerified: true, PasswordHash: hash},
			want:   identity.StateActive,
		},
		{
			name: "pending address means change pending",
			record: &identity.Identity{
				IsVerified:          true,
				PasswordHash:        hash,
				PendingEmail:        strptr("next@example.com"),
				EmailTokenExpiresAt: expiry,
			},
			want: identity.StateEmailChangePending,
		},
		{
			name:   "verified without password is unknown",
			record: &identity.Identity{IsVerified: true},
			want:   identity.StateUnknown,
		},
		{
			name:   "nil record is unknown",
			record: nil,
			want:   identity.StateUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.record.State())
		})
	}
}

func TestIdentityCheckInvariants(t *testing.T) {
	t.Run("accepts a consistent record", func(t *testing.T) {
		record := &identity.Identity{
			IsVerified:   true,
			PasswordHash: strptr("hash"),
		}
		assert.NoError(t, record.CheckInvariants())
	})

	t.Run("rejects verified without password", func(t *testing.T) {
		record := &identity.Identity{IsVerified: true}
		assert.Error(t, record.CheckInvariants())
	})

	t.Run("rejects pending email without expiry", func(t *testing.T) {
		record := &identity.Identity{
			IsVerified:   true,
			PasswordHash: strptr("hash"),
			PendingEmail: strptr("next@example.com"),
		}
		assert.Error(t, record.CheckInvariants())
	})
}

func TestIdentitySanitized(t *testing.T) {
	record := &identity.Identity{
		Email:                  "user@example.com",
		PasswordHash:           strptr("hash"),
		EmailVerificationToken: strptr("token"),
	}

	clean := record.Sanitized()
	require.NotNil(t, clean)
	assert.Nil(t, clean.PasswordHash)
	assert.Nil(t, clean.EmailVerificationToken)
	assert.Equal(t, "user@example.com", clean.Email)

	// the original is untouched
	assert.NotNil(t, record.PasswordHash)
	assert.NotNil(t, record.EmailVerificationToken)
}

func TestSanitizedPreservesDerivedState(t *testing.T) {
	hash := strptr("$2a$14$fakefakefakefakefakefake")
	expiry := timeptr(time.Now().Add(time.Hour))

	// redacting the hash must not change what State reports
	records := []*identity.Identity{
		{IsVerified: false},
		{IsVerified: false, PasswordHash: hash},
		{IsVerified: true, PasswordHash: hash},
		{
			IsVerified:          true,
			PasswordHash:        hash,
			PendingEmail:        strptr("next@example.com"),
			EmailTokenExpiresAt: expiry,
		},
	}

	for _, record := range records {
		clean := record.Sanitized()
		require.NotNil(t, clean)
		assert.Nil(t, clean.PasswordHash)
		assert.Equal(t, record.State(), clean.State(), "state %s", record.State())
	}
}

func TestIdentityUpdate(t *testing.T) {
	t.Run("zero patch carries no changes", func(t *testing.T) {
		assert.True(t, identity.IdentityUpdate{}.IsZero())
		assert.False(t, identity.IdentityUpdate{IsVerified: identity.Set(true)}.IsZero())
	})

	t.Run("apply writes set cells including nil clears", func(t *testing.T) {
		record := &identity.Identity{
			Email:               "old@example.com",
			PendingEmail:        strptr("next@example.com"),
			EmailTokenExpiresAt: timeptr(time.Now()),
		}

		patch := identity.IdentityUpdate{
			Email:               identity.Set("next@example.com"),
			PendingEmail:        identity.Set[*string](nil),
			EmailTokenExpiresAt: identity.Set[*time.Time](nil),
			IsVerified:          identity.Set(true),
			PasswordHash:        identity.Set(strptr("hash")),
		}
		patch.Apply(record)

		assert.Equal(t, "next@example.com", record.Email)
		assert.Nil(t, record.PendingEmail)
		assert.Nil(t, record.EmailTokenExpiresAt)
		assert.True(t, record.IsVerified)
		require.NotNil(t, record.PasswordHash)
	})

	t.Run("unset cells leave fields alone", func(t *testing.T) {
		record := &identity.Identity{Email: "old@example.com", IsActive: true}

		identity.IdentityUpdate{Name: identity.Set("Pepe Rone")}.Apply(record)

		assert.Equal(t, "old@example.com", record.Email)
		assert.True(t, record.IsActive)
		assert.Equal(t, "Pepe Rone", record.Name)
	})
}
