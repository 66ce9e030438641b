package identity

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's role
type Role = string

const (
	// RoleUser is the default role assigned on registration
	RoleUser Role = "user"
	// RoleAdmin is an administrative account
	RoleAdmin Role = "admin"
)

// IsValidRole checks the role against the supported set
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// AccountState is the lifecycle state derived from the stored flags.
// There is no state column; the flags are the source of truth and the
// state is recomputed on every read.
type AccountState string

const (
	// StateUnverified covers freshly registered accounts: no password
	// hash yet, email not verified.
	StateUnverified AccountState = "unverified"
	// StateActive is a verified account with a usable password and no
	// email change in flight.
	StateActive AccountState = "active"
	// StateEmailChangePending is a verified account with a pending
	// address awaiting its verification link.
	StateEmailChangePending AccountState = "email-change-pending"
	// StateUnknown signals a flag combination that violates the model
	// invariants, e.g. verified with no password hash.
	StateUnknown AccountState = "unknown"
)

// Identity is the credential record, one row per account
type Identity struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`

	ID    uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name  string    `bun:"name,notnull" json:"name,omitempty"`
	Email string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Role  Role      `bun:"user_role,notnull" json:"user_role,omitempty"`

	// PendingEmail is set while an email change awaits verification.
	// The account stays reachable under Email until the change lands.
	PendingEmail *string `bun:"pending_email" json:"pending_email,omitempty"`

	// PasswordHash stays nil until the first verification step sets it.
	PasswordHash *string `bun:"password_hash" json:"-"`

	IsVerified bool `bun:"is_verified,notnull" json:"is_verified"`
	IsActive   bool `bun:"is_active,notnull" json:"is_active"`

	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`

	// Bookkeeping copy of the most recently issued email-change token.
	// Verification re-checks PendingEmail and EmailTokenExpiresAt against
	// live state instead of trusting the token claims alone, which is what
	// makes a superseded link fail rather than clobber newer state.
	EmailVerificationToken *string    `bun:"email_verification_token" json:"-"`
	EmailTokenExpiresAt    *time.Time `bun:"email_token_expires_at,nullzero" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	// sanitizedState carries the state derived before Sanitized redacted
	// the hash the derivation depends on. Empty on records read from a
	// store.
	sanitizedState AccountState
}

// State derives the lifecycle state from the stored flags
func (u *Identity) State() AccountState {
	if u == nil {
		return StateUnknown
	}

	if u.sanitizedState != "" {
		return u.sanitizedState
	}

	switch {
	case u.IsVerified && u.PasswordHash == nil:
		// breaches the "no usable password until verified" implication
		return StateUnknown
	case !u.IsVerified:
		// a reset can store a password before first verification; the
		// account still cannot log in, so it stays unverified
		return StateUnverified
	case u.PendingEmail == nil:
		return StateActive
	default:
		return StateEmailChangePending
	}
}

// CheckInvariants verifies the cross-field invariants of the record:
// a nil password hash implies unverified, and a pending email always
// carries an expiry.
func (u *Identity) CheckInvariants() error {
	if u == nil {
		return goerrors.New("identity is nil", goerrors.CategoryInternal)
	}

	if u.PasswordHash == nil && u.IsVerified {
		return goerrors.New("verified identity has no password hash", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"id": u.ID.String()})
	}

	if u.PendingEmail != nil && u.EmailTokenExpiresAt == nil {
		return goerrors.New("pending email has no token expiry", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"id": u.ID.String()})
	}

	return nil
}

// HasPassword reports whether a usable password hash is stored
func (u *Identity) HasPassword() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}

// Sanitized returns a copy safe to hand back to callers: the password
// hash and token bookkeeping are stripped. The state is derived before
// the redaction, so State() on the copy matches the source record.
func (u *Identity) Sanitized() *Identity {
	if u == nil {
		return nil
	}

	clone := *u
	clone.sanitizedState = u.State()
	clone.PasswordHash = nil
	clone.EmailVerificationToken = nil
	return &clone
}

// IdentityUpdate is a partial update of a single row. Unset cells leave
// the column alone; a cell set to a nil pointer clears the column. The
// whole patch must be applied as one atomic row write.
type IdentityUpdate struct {
	Name                   Field[string]
	Email                  Field[string]
	Role                   Field[Role]
	PendingEmail           Field[*string]
	PasswordHash           Field[*string]
	IsVerified             Field[bool]
	IsActive               Field[bool]
	LastLoginAt            Field[*time.Time]
	EmailVerificationToken Field[*string]
	EmailTokenExpiresAt    Field[*time.Time]
}

// IsZero reports whether the update carries no changes
func (p IdentityUpdate) IsZero() bool {
	return !p.Name.Valid() && !p.Email.Valid() && !p.Role.Valid() &&
		!p.PendingEmail.Valid() && !p.PasswordHash.Valid() &&
		!p.IsVerified.Valid() && !p.IsActive.Valid() &&
		!p.LastLoginAt.Valid() && !p.EmailVerificationToken.Valid() &&
		!p.EmailTokenExpiresAt.Valid()
}

// Apply copies the set cells onto the record. Store implementations use
// it to keep in-memory copies consistent with the row they wrote.
func (p IdentityUpdate) Apply(u *Identity) {
	if u == nil {
		return
	}

	if p.Name.Valid() {
		u.Name = p.Name.Value()
	}
	if p.Email.Valid() {
		u.Email = p.Email.Value()
	}
	if p.Role.Valid() {
		u.Role = p.Role.Value()
	}
	if p.PendingEmail.Valid() {
		u.PendingEmail = p.PendingEmail.Value()
	}
	if p.PasswordHash.Valid() {
		u.PasswordHash = p.PasswordHash.Value()
	}
	if p.IsVerified.Valid() {
		u.IsVerified = p.IsVerified.Value()
	}
	if p.IsActive.Valid() {
		u.IsActive = p.IsActive.Value()
	}
	if p.LastLoginAt.Valid() {
		u.LastLoginAt = p.LastLoginAt.Value()
	}
	if p.EmailVerificationToken.Valid() {
		u.EmailVerificationToken = p.EmailVerificationToken.Value()
	}
	if p.EmailTokenExpiresAt.Valid() {
		u.EmailTokenExpiresAt = p.EmailTokenExpiresAt.Value()
	}
}
