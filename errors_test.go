package identity_test

import (
	"errors"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "expired token error",
			err:      identity.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "invalid token error",
			err:      identity.ErrTokenInvalid,
			expected: true,
		},
		{
			name:     "different structured error",
			err:      identity.ErrIdentityNotFound,
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, identity.IsTokenError(tc.err))
		})
	}
}

func TestHasTextCode(t *testing.T) {
	assert.True(t, identity.HasTextCode(identity.ErrEmailTaken, identity.TextCodeEmailTaken))
	assert.False(t, identity.HasTextCode(identity.ErrEmailTaken, identity.TextCodeNotFound))
	assert.False(t, identity.HasTextCode(errors.New("boom"), identity.TextCodeNotFound))
	assert.False(t, identity.HasTextCode(nil, identity.TextCodeNotFound))
}
