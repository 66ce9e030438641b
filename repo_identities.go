package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identities is the bun-backed reference implementation of
// CredentialStore. The lifecycle only ever sees the interface; swap in
// any store that honors the same contract.
type identities struct {
	repository.Repository[*Identity]
	db *bun.DB
}

var _ CredentialStore = (*identities)(nil)

// NewIdentitiesRepository creates a CredentialStore on top of a bun DB
func NewIdentitiesRepository(db *bun.DB) CredentialStore {
	repo := repository.NewRepository[*Identity](db, repository.ModelHandlers[*Identity]{
		NewRecord: func() *Identity { return &Identity{} },
		GetID: func(u *Identity) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *Identity, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

func (s *identities) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	record := &Identity{}

	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (s *identities) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	record := &Identity{}

	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (s *identities) Create(ctx context.Context, record *Identity) (*Identity, error) {
	prepareIdentityDefaults(record)
	return s.Repository.Create(ctx, record)
}

// Update applies the patch as one UPDATE statement, which is what keeps
// multi-field transitions (the email swap in particular) atomic at the
// row level.
func (s *identities) Update(ctx context.Context, id uuid.UUID, patch IdentityUpdate) (*Identity, error) {
	if patch.IsZero() {
		return s.FindByID(ctx, id)
	}

	q := s.db.NewUpdate().
		Model((*Identity)(nil)).
		Where("?TableAlias.id = ?", id).
		Set("updated_at = ?", time.Now())

	if patch.Name.Valid() {
		q.Set("name = ?", patch.Name.Value())
	}
	if patch.Email.Valid() {
		q.Set("email = ?", patch.Email.Value())
	}
	if patch.Role.Valid() {
		q.Set("user_role = ?", patch.Role.Value())
	}
	if patch.PendingEmail.Valid() {
		q.Set("pending_email = ?", patch.PendingEmail.Value())
	}
	if patch.PasswordHash.Valid() {
		q.Set("password_hash = ?", patch.PasswordHash.Value())
	}
	if patch.IsVerified.Valid() {
		q.Set("is_verified = ?", patch.IsVerified.Value())
	}
	if patch.IsActive.Valid() {
		q.Set("is_active = ?", patch.IsActive.Value())
	}
	if patch.LastLoginAt.Valid() {
		q.Set("last_login_at = ?", patch.LastLoginAt.Value())
	}
	if patch.EmailVerificationToken.Valid() {
		q.Set("email_verification_token = ?", patch.EmailVerificationToken.Value())
	}
	if patch.EmailTokenExpiresAt.Valid() {
		q.Set("email_token_expires_at = ?", patch.EmailTokenExpiresAt.Value())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return s.FindByID(ctx, id)
}

func prepareIdentityDefaults(record *Identity) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Role == "" {
		record.Role = RoleUser
	}
}
