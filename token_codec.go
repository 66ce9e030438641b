package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec issues and verifies signed, expiring tokens carrying one of
// the Claims variants. The signing key is caller-supplied per call so each
// flow (registration/email-change, password reset, session) can hold its
// own key; a token minted for one purpose fails signature verification
// under any other purpose's key.
type TokenCodec interface {
	Issue(claims Claims, signingKey []byte, ttl time.Duration) (string, error)
	Verify(token string, signingKey []byte) (Claims, error)
}

// JWTCodec is the HS256 implementation of TokenCodec
type JWTCodec struct {
	issuer   string
	audience jwt.ClaimStrings
	logger   Logger
	now      func() time.Time
}

// CodecOption customizes a JWTCodec
type CodecOption func(*JWTCodec)

// WithCodecClock injects a custom clock (useful for tests)
func WithCodecClock(clock func() time.Time) CodecOption {
	return func(c *JWTCodec) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithCodecLogger overrides the codec logger
func WithCodecLogger(logger Logger) CodecOption {
	return func(c *JWTCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewJWTCodec creates a codec stamping the given issuer and audience
func NewJWTCodec(issuer string, audience []string, opts ...CodecOption) *JWTCodec {
	codec := &JWTCodec{
		issuer:   issuer,
		audience: jwt.ClaimStrings(audience),
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(codec)
		}
	}

	return codec
}

var _ TokenCodec = (*JWTCodec)(nil)

// Issue signs the claims with the given key and TTL
func (c *JWTCodec) Issue(claims Claims, signingKey []byte, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	if len(signingKey) == 0 {
		return "", goerrors.New("signing key must not be empty", goerrors.CategoryBadInput)
	}

	if ttl <= 0 {
		return "", goerrors.New("token TTL must be positive", goerrors.CategoryBadInput)
	}

	now := c.now()
	payload := payloadFromClaims(claims)
	payload.Issuer = c.issuer
	payload.Audience = c.audience
	payload.IssuedAt = jwt.NewNumericDate(now)
	payload.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	payload.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify parses the token, checks signature and expiry against the given
// key, and rebuilds the claim variant. Expired tokens return
// ErrTokenExpired; everything else that fails returns ErrTokenInvalid.
func (c *JWTCodec) Verify(tokenString string, signingKey []byte) (Claims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(c.now))
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(c.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenPayload{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("TokenCodec verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).
			WithTextCode(ErrTokenInvalid.TextCode)
	}

	payload, ok := token.Claims.(*tokenPayload)
	if !ok || !token.Valid {
		c.logger.Error("TokenCodec verify could not decode claims")
		return nil, ErrTokenInvalid
	}

	claims, ok := claimsFromPayload(payload)
	if !ok {
		c.logger.Error("TokenCodec verify rejected claim shape: %s", string(payload.Kind))
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
