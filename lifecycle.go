package identity

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Notification subjects, keyed by flow
const (
	subjectVerifyEmail    = "Verify your email address"
	subjectWelcome        = "Welcome aboard"
	subjectForgotPassword = "Reset your password"
	subjectVerifyNewEmail = "Confirm your new email address"
	subjectEmailChanged   = "Your email address was changed"
	subjectEmailUpdated   = "Email address updated"
)

// Lifecycle orchestrates registration, login, password reset, email
// verification, and email change on top of a CredentialStore, a
// TokenCodec, a PasswordHasher, and a NotificationGateway.
//
// Concurrency: every operation is a short-lived unit of work. Races on
// the same account resolve optimistically; the verification path re-reads
// pending-email state instead of trusting token claims, so a superseded
// link fails rather than corrupting newer state. Every multi-field
// mutation is a single atomic store write, and state changes are durable
// before any notification is attempted.
type Lifecycle struct {
	store            CredentialStore
	gateway          NotificationGateway
	codec            TokenCodec
	hasher           PasswordHasher
	config           Config
	logger           Logger
	activity         ActivitySink
	now              func() time.Time
	deterministicIDs bool
}

// Option customizes a Lifecycle
type Option func(*Lifecycle)

// WithLogger overrides the default logger
func WithLogger(logger Logger) Option {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithActivitySink sets the sink lifecycle events are published to
func WithActivitySink(sink ActivitySink) Option {
	return func(l *Lifecycle) {
		l.activity = normalizeActivitySink(sink)
	}
}

// WithPasswordHasher overrides the bcrypt default
func WithPasswordHasher(hasher PasswordHasher) Option {
	return func(l *Lifecycle) {
		if hasher != nil {
			l.hasher = hasher
		}
	}
}

// WithTokenCodec overrides the JWT codec
func WithTokenCodec(codec TokenCodec) Option {
	return func(l *Lifecycle) {
		if codec != nil {
			l.codec = codec
		}
	}
}

// WithClock injects a custom clock (useful for tests)
func WithClock(clock func() time.Time) Option {
	return func(l *Lifecycle) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithHashidIDs derives registration ids deterministically from the
// email address instead of deferring to the store.
func WithHashidIDs() Option {
	return func(l *Lifecycle) {
		l.deterministicIDs = true
	}
}

// New creates a Lifecycle. A nil gateway drops all notifications, which
// is only useful in development.
func New(store CredentialStore, gateway NotificationGateway, cfg Config, opts ...Option) (*Lifecycle, error) {
	if store == nil {
		return nil, goerrors.New("credential store is required", goerrors.CategoryBadInput)
	}

	if gateway == nil {
		gateway = noopNotificationGateway{}
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid lifecycle configuration")
	}

	l := &Lifecycle{
		store:    store,
		gateway:  gateway,
		config:   cfg,
		hasher:   NewBcryptHasher(0),
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if l.codec == nil {
		l.codec = NewJWTCodec(cfg.Issuer, cfg.Audience,
			WithCodecClock(l.now),
			WithCodecLogger(l.logger),
		)
	}

	return l, nil
}

// Register creates an unverified account with no password and mails the
// verification link. The mail is the deliverable here: a registration
// whose link never reaches the user is pointless, so delivery failure
// fails the operation even though the row was already created.
func (l *Lifecycle) Register(ctx context.Context, name, email string) (*Identity, error) {
	if err := checkCtx(ctx, "registration"); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if _, err := l.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailRegistered
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	record := &Identity{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Role:     RoleUser,
		IsActive: true,
	}

	if l.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			record.ID = id
		}
	}

	created, err := l.store.Create(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create identity")
	}

	token, err := l.codec.Issue(
		RegistrationClaims{Subject: created.ID.String()},
		l.config.RegistrationKey,
		l.config.RegistrationTTL,
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue registration token")
	}

	if err := l.deliver(ctx, created.Email, subjectVerifyEmail, TemplateVerifyEmail, map[string]any{
		"name":  created.Name,
		"token": token,
	}); err != nil {
		return nil, err
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistered,
		Actor:     ActorRef{ID: created.ID.String(), Type: "user"},
		SubjectID: created.ID.String(),
		ToState:   created.State(),
		Metadata:  map[string]any{"email": created.Email},
	})

	return created.Sanitized(), nil
}

// Login validates credentials and mints a session token. Unknown
// accounts, unverified accounts, missing passwords, and wrong passwords
// all collapse into ErrInvalidCredentials; deactivation is only reported
// after the credentials checked out.
func (l *Lifecycle) Login(ctx context.Context, email, password string) (*Identity, string, error) {
	if err := checkCtx(ctx, "login"); err != nil {
		return nil, "", err
	}

	email = normalizeEmail(email)

	user, err := l.store.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			l.emitLoginFailure(ctx, email, "", ErrInvalidCredentials)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	if !user.IsVerified || !user.HasPassword() {
		l.emitLoginFailure(ctx, email, user.ID.String(), ErrInvalidCredentials)
		return nil, "", ErrInvalidCredentials
	}

	if err := l.hasher.ComparePasswordAndHash(password, *user.PasswordHash); err != nil {
		l.emitLoginFailure(ctx, email, user.ID.String(), ErrInvalidCredentials)
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsActive {
		l.emitLoginFailure(ctx, email, user.ID.String(), ErrAccountDeactivated)
		return nil, "", ErrAccountDeactivated
	}

	now := l.now()
	updated, err := l.store.Update(ctx, user.ID, IdentityUpdate{
		LastLoginAt: Set(&now),
	})
	if err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login")
	}

	token, err := l.codec.Issue(
		SessionClaims{Subject: user.ID.String(), Role: user.Role},
		l.config.SessionKey,
		l.config.SessionTTL,
	)
	if err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		SubjectID: user.ID.String(),
	})

	return updated.Sanitized(), token, nil
}

// ForgotPassword mails a short-lived reset link. No state is stored and
// reissuing does not revoke earlier links; each one stands alone until
// its TTL lapses. That is deliberately looser than the email-change
// supersession below, since any valid link already required control of
// the inbox.
func (l *Lifecycle) ForgotPassword(ctx context.Context, email string) error {
	if err := checkCtx(ctx, "password reset request"); err != nil {
		return err
	}

	email = normalizeEmail(email)

	user, err := l.store.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	token, err := l.codec.Issue(
		RegistrationClaims{Subject: user.ID.String()},
		l.config.ResetKey,
		l.config.ResetTTL,
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset token")
	}

	if err := l.deliver(ctx, user.Email, subjectForgotPassword, TemplateForgotPassword, map[string]any{
		"name":  user.Name,
		"token": token,
	}); err != nil {
		return err
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		SubjectID: user.ID.String(),
	})

	return nil
}

// ResetPassword stores a new password hash for the subject. The subject
// id comes from a reset-scoped bearer token already verified by the
// caller's auth gate. Verification status and any pending email change
// are left untouched.
func (l *Lifecycle) ResetPassword(ctx context.Context, subjectID uuid.UUID, newPassword string) error {
	if err := checkCtx(ctx, "password reset"); err != nil {
		return err
	}

	user, err := l.store.FindByID(ctx, subjectID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	hash, err := l.hasher.HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	if _, err := l.store.Update(ctx, user.ID, IdentityUpdate{
		PasswordHash: Set(&hash),
	}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store new password")
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		SubjectID: user.ID.String(),
	})

	return nil
}

// VerifyEmailAndSetPassword serves both mailed set-my-password flows:
// initial registration and email-change completion. The discriminator is
// the claim shape plus a cross-check against live store state, never the
// token's cryptographic validity alone.
func (l *Lifecycle) VerifyEmailAndSetPassword(ctx context.Context, token, password string) (*Identity, error) {
	if err := checkCtx(ctx, "email verification"); err != nil {
		return nil, err
	}

	claims, err := l.codec.Verify(token, l.config.RegistrationKey)
	if err != nil {
		return nil, err
	}

	switch c := claims.(type) {
	case EmailChangeClaims:
		return l.completeEmailChange(ctx, c, password)
	case RegistrationClaims:
		return l.completeRegistration(ctx, c, password)
	default:
		// a session shape on the registration key is never legitimate
		return nil, ErrTokenInvalid
	}
}

func (l *Lifecycle) completeRegistration(ctx context.Context, claims RegistrationClaims, password string) (*Identity, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := l.store.FindByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	hash, err := l.hasher.HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	fromState := user.State()

	updated, err := l.store.Update(ctx, user.ID, IdentityUpdate{
		PasswordHash: Set(&hash),
		IsVerified:   Set(true),
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify identity")
	}

	// verification is durable at this point; the welcome mail is a courtesy
	l.notifyBestEffort(ctx, updated.Email, subjectWelcome, TemplateWelcome, map[string]any{
		"name": updated.Name,
	})

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerificationCompleted,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		SubjectID: user.ID.String(),
		FromState: fromState,
		ToState:   updated.State(),
	})

	return updated.Sanitized(), nil
}

func (l *Lifecycle) completeEmailChange(ctx context.Context, claims EmailChangeClaims, password string) (*Identity, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := l.store.FindByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	// Re-check live state rather than trusting the claims: a token
	// superseded by a newer change request, or past the stored expiry,
	// fails as expired even though its signature is still valid. This is
	// what makes "newest request wins" hold without revocation lists.
	if user.PendingEmail == nil || *user.PendingEmail != claims.NewEmail {
		return nil, ErrTokenExpired
	}

	if user.EmailTokenExpiresAt == nil || l.now().After(*user.EmailTokenExpiresAt) {
		return nil, ErrTokenExpired
	}

	hash, err := l.hasher.HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	oldEmail := user.Email
	newEmail := *user.PendingEmail
	fromState := user.State()

	updated, err := l.store.Update(ctx, user.ID, IdentityUpdate{
		Email:                  Set(newEmail),
		PasswordHash:           Set(&hash),
		IsVerified:             Set(true),
		PendingEmail:           Set[*string](nil),
		EmailVerificationToken: Set[*string](nil),
		EmailTokenExpiresAt:    Set[*time.Time](nil),
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to complete email change")
	}

	// the swap is durable; both confirmations are courtesies
	l.notifyBestEffort(ctx, oldEmail, subjectEmailChanged, TemplateEmailChangedNotification, map[string]any{
		"new_email": newEmail,
	})
	l.notifyBestEffort(ctx, newEmail, subjectEmailUpdated, TemplateEmailUpdateSuccess, map[string]any{
		"name": updated.Name,
	})

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventEmailChangeCompleted,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		SubjectID: user.ID.String(),
		FromState: fromState,
		ToState:   updated.State(),
		Metadata:  map[string]any{"old_email": oldEmail, "new_email": newEmail},
	})

	return updated.Sanitized(), nil
}

// ResendVerification reissues the registration link for an account that
// never completed its initial verification.
func (l *Lifecycle) ResendVerification(ctx context.Context, email string) error {
	if err := checkCtx(ctx, "verification resend"); err != nil {
		return err
	}

	email = normalizeEmail(email)

	user, err := l.store.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	return l.sendRegistrationLink(ctx, user)
}

// UpdateEmail starts an email change for an authenticated subject. The
// account stays fully usable under its old address until the new one is
// verified; issuing the change token supersedes any earlier pending
// change for the account.
func (l *Lifecycle) UpdateEmail(ctx context.Context, subjectID uuid.UUID, currentPassword, newEmail string) error {
	if err := checkCtx(ctx, "email update"); err != nil {
		return err
	}

	newEmail = normalizeEmail(newEmail)
	if err := validateEmail(newEmail); err != nil {
		return err
	}

	user, err := l.store.FindByID(ctx, subjectID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	if !user.HasPassword() {
		return ErrPasswordRequired
	}

	if err := l.hasher.ComparePasswordAndHash(currentPassword, *user.PasswordHash); err != nil {
		return ErrInvalidPassword
	}

	if newEmail == normalizeEmail(user.Email) {
		return ErrEmailUnchanged
	}

	if _, err := l.store.FindByEmail(ctx, newEmail); err == nil {
		return ErrEmailTaken
	} else if !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	return l.sendEmailChangeLink(ctx, user, newEmail)
}

// ResendEmailVerification reissues whichever verification link the
// account is waiting on: the pending email change if one is in flight,
// otherwise the initial registration link.
func (l *Lifecycle) ResendEmailVerification(ctx context.Context, subjectID uuid.UUID) error {
	if err := checkCtx(ctx, "verification resend"); err != nil {
		return err
	}

	user, err := l.store.FindByID(ctx, subjectID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	switch {
	case user.PendingEmail != nil:
		return l.sendEmailChangeLink(ctx, user, *user.PendingEmail)
	case !user.IsVerified:
		return l.sendRegistrationLink(ctx, user)
	default:
		return ErrAlreadyVerified
	}
}

// CurrentUser returns the sanitized record for an authenticated subject
func (l *Lifecycle) CurrentUser(ctx context.Context, subjectID uuid.UUID) (*Identity, error) {
	user, err := l.store.FindByID(ctx, subjectID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity")
	}

	return user.Sanitized(), nil
}

func (l *Lifecycle) sendRegistrationLink(ctx context.Context, user *Identity) error {
	token, err := l.codec.Issue(
		RegistrationClaims{Subject: user.ID.String()},
		l.config.RegistrationKey,
		l.config.RegistrationTTL,
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue registration token")
	}

	return l.deliver(ctx, user.Email, subjectVerifyEmail, TemplateVerifyEmail, map[string]any{
		"name":  user.Name,
		"token": token,
	})
}

func (l *Lifecycle) sendEmailChangeLink(ctx context.Context, user *Identity, newEmail string) error {
	token, err := l.codec.Issue(
		EmailChangeClaims{Subject: user.ID.String(), NewEmail: newEmail},
		l.config.RegistrationKey,
		l.config.RegistrationTTL,
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue email change token")
	}

	// storing the fresh token and expiry supersedes any earlier change
	// request; verification only honors the stored pending address
	expiry := l.now().Add(l.config.RegistrationTTL)
	if _, err := l.store.Update(ctx, user.ID, IdentityUpdate{
		PendingEmail:           Set(&newEmail),
		EmailVerificationToken: Set(&token),
		EmailTokenExpiresAt:    Set(&expiry),
	}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store pending email change")
	}

	if err := l.deliver(ctx, newEmail, subjectVerifyNewEmail, TemplateVerifyNewEmail, map[string]any{
		"name":  user.Name,
		"token": token,
	}); err != nil {
		return err
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventEmailChangeRequested,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		SubjectID: user.ID.String(),
		Metadata:  map[string]any{"new_email": newEmail},
	})

	return nil
}

// deliver sends a notification that IS the deliverable of its flow:
// failure fails the operation.
func (l *Lifecycle) deliver(ctx context.Context, to, subject, templateID string, data map[string]any) error {
	if err := l.gateway.Send(ctx, to, subject, templateID, data); err != nil {
		l.logger.Error("notification delivery failed template=%s to=%s: %v", templateID, to, err)
		return goerrors.Wrap(err, ErrDeliveryUnavailable.Category, ErrDeliveryUnavailable.Message).
			WithTextCode(ErrDeliveryUnavailable.TextCode)
	}
	return nil
}

// notifyBestEffort sends a courtesy notification after a state change
// that already succeeded. Failures are logged and recorded to the
// activity sink without altering the operation's result.
func (l *Lifecycle) notifyBestEffort(ctx context.Context, to, subject, templateID string, data map[string]any) {
	if err := l.gateway.Send(ctx, to, subject, templateID, data); err != nil {
		l.logger.Warn("dropping courtesy notification template=%s to=%s: %v", templateID, to, err)
		l.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventNotificationDropped,
			Actor:     ActorRef{Type: "system"},
			Metadata: map[string]any{
				"template": templateID,
				"to":       to,
				"error":    err.Error(),
			},
		})
	}
}

func (l *Lifecycle) emitLoginFailure(ctx context.Context, email, subjectID string, cause error) {
	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		SubjectID: subjectID,
		Metadata: map[string]any{
			"email": email,
			"error": cause.Error(),
		},
	})
}

func (l *Lifecycle) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now()
	}

	if err := l.activity.Record(ctx, event); err != nil {
		l.logger.Warn("activity sink error for %s: %v", string(event.EventType), err)
	}
}

func checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+op)
	default:
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid email address")
	}
	return nil
}
