package identity

import (
	"github.com/golang-jwt/jwt/v5"
)

// claimKind is the wire tag that discriminates the claim variants.
// Verification switches on it exhaustively, so a token minted with one
// shape can never be read back as another.
type claimKind string

const (
	kindRegistration claimKind = "register"
	kindSession      claimKind = "session"
	kindEmailChange  claimKind = "email_change"
)

// Claims is the sealed union of payloads a token can carry. The three
// variants below are the only implementations.
type Claims interface {
	// SubjectID returns the account the token was minted for
	SubjectID() string

	kind() claimKind
}

// RegistrationClaims authorizes completing registration or a password
// reset for the subject. Which of the two depends entirely on the
// signing key the token was minted with.
type RegistrationClaims struct {
	Subject string
}

// SubjectID implements Claims
func (c RegistrationClaims) SubjectID() string { return c.Subject }

func (RegistrationClaims) kind() claimKind { return kindRegistration }

// SessionClaims authorizes an authenticated session for the subject
type SessionClaims struct {
	Subject string
	Role    Role
}

// SubjectID implements Claims
func (c SessionClaims) SubjectID() string { return c.Subject }

func (SessionClaims) kind() claimKind { return kindSession }

// EmailChangeClaims authorizes swapping the subject's address to NewEmail,
// provided the store still lists NewEmail as the pending change.
type EmailChangeClaims struct {
	Subject  string
	NewEmail string
}

// SubjectID implements Claims
func (c EmailChangeClaims) SubjectID() string { return c.Subject }

func (EmailChangeClaims) kind() claimKind { return kindEmailChange }

var (
	_ Claims = RegistrationClaims{}
	_ Claims = SessionClaims{}
	_ Claims = EmailChangeClaims{}
)

// tokenPayload is the JWT projection of a Claims variant
type tokenPayload struct {
	jwt.RegisteredClaims
	Kind     claimKind `json:"knd,omitempty"`
	Role     Role      `json:"role,omitempty"`
	NewEmail string    `json:"new_email,omitempty"`
}

func payloadFromClaims(claims Claims) *tokenPayload {
	payload := &tokenPayload{Kind: claims.kind()}
	payload.Subject = claims.SubjectID()

	switch c := claims.(type) {
	case RegistrationClaims:
	case SessionClaims:
		payload.Role = c.Role
	case EmailChangeClaims:
		payload.NewEmail = c.NewEmail
	}

	return payload
}

// claimsFromPayload rebuilds the variant, rejecting unknown or
// inconsistent shapes.
func claimsFromPayload(p *tokenPayload) (Claims, bool) {
	if p == nil || p.Subject == "" {
		return nil, false
	}

	switch p.Kind {
	case kindRegistration:
		if p.Role != "" || p.NewEmail != "" {
			return nil, false
		}
		return RegistrationClaims{Subject: p.Subject}, true
	case kindSession:
		if p.Role == "" || p.NewEmail != "" {
			return nil, false
		}
		return SessionClaims{Subject: p.Subject, Role: p.Role}, true
	case kindEmailChange:
		if p.NewEmail == "" || p.Role != "" {
			return nil, false
		}
		return EmailChangeClaims{Subject: p.Subject, NewEmail: p.NewEmail}, true
	default:
		return nil, false
	}
}
