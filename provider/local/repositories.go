package local

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identities resolves identifiers by email.
type Identities interface {
	repository.Repository[*IdentityModel]

	TrackSignInTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
	SetPasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string, at time.Time) error
}

type identities struct {
	repository.Repository[*IdentityModel]
}

func NewIdentitiesRepository(db bun.IDB) Identities {
	return &identities{
		Repository: repository.NewRepository[*IdentityModel](db, repository.ModelHandlers[*IdentityModel]{
			NewRecord: func() *IdentityModel { return &IdentityModel{} },
			GetID: func(m *IdentityModel) uuid.UUID {
				if m == nil {
					return uuid.Nil
				}
				return m.ID
			},
			SetID: func(m *IdentityModel, id uuid.UUID) {
				if m != nil {
					m.ID = id
				}
			},
			GetIdentifier: func() string {
				return "email"
			},
		}),
	}
}

func (r *identities) TrackSignInTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*IdentityModel)(nil)).
		Set("last_sign_in_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *identities) SetPasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*IdentityModel)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return repository.SQLExpectedCount(res, 1)
}

// RefreshTokens resolves identifiers by token hash.
type RefreshTokens interface {
	repository.Repository[*RefreshTokenModel]

	RevokeTx(ctx context.Context, tx bun.IDB, tokenHash string, at time.Time) error
	RevokeAllTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, at time.Time) error
}

type refreshTokens struct {
	repository.Repository[*RefreshTokenModel]
}

func NewRefreshTokensRepository(db bun.IDB) RefreshTokens {
	return &refreshTokens{
		Repository: repository.NewRepository[*RefreshTokenModel](db, repository.ModelHandlers[*RefreshTokenModel]{
			NewRecord: func() *RefreshTokenModel { return &RefreshTokenModel{} },
			GetID: func(m *RefreshTokenModel) uuid.UUID {
				if m == nil {
					return uuid.Nil
				}
				return m.ID
			},
			SetID: func(m *RefreshTokenModel, id uuid.UUID) {
				if m != nil {
					m.ID = id
				}
			},
			GetIdentifier: func() string {
				return "token_hash"
			},
		}),
	}
}

func (r *refreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, tokenHash string, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*RefreshTokenModel)(nil)).
		Set("revoked_at = ?", at).
		Where("token_hash = ?", tokenHash).
		Where("revoked_at IS NULL").
		Exec(ctx)
	return err
}

func (r *refreshTokens) RevokeAllTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*RefreshTokenModel)(nil)).
		Set("revoked_at = ?", at).
		Where("identity_id = ?", identityID).
		Where("revoked_at IS NULL").
		Exec(ctx)
	return err
}

// PasswordResets resolves identifiers by token hash.
type PasswordResets interface {
	repository.Repository[*PasswordResetModel]

	ExpirePendingTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, at time.Time) error
	MarkChangedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
}

type passwordResets struct {
	repository.Repository[*PasswordResetModel]
}

func NewPasswordResetsRepository(db bun.IDB) PasswordResets {
	return &passwordResets{
		Repository: repository.NewRepository[*PasswordResetModel](db, repository.ModelHandlers[*PasswordResetModel]{
			NewRecord: func() *PasswordResetModel { return &PasswordResetModel{} },
			GetID: func(m *PasswordResetModel) uuid.UUID {
				if m == nil {
					return uuid.Nil
				}
				return m.ID
			},
			SetID: func(m *PasswordResetModel, id uuid.UUID) {
				if m != nil {
					m.ID = id
				}
			},
			GetIdentifier: func() string {
				return "token_hash"
			},
		}),
	}
}

// ExpirePendingTx invalidates every outstanding reset of an identity.
func (r *passwordResets) ExpirePendingTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*PasswordResetModel)(nil)).
		Set("status = ?", ResetExpiredStatus).
		Set("updated_at = ?", at).
		Where("identity_id = ?", identityID).
		Where("status = ?", ResetRequestedStatus).
		Exec(ctx)
	return err
}

func (r *passwordResets) MarkChangedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*PasswordResetModel)(nil)).
		Set("status = ?", ResetChangedStatus).
		Set("reset_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", ResetRequestedStatus).
		Exec(ctx)
	if err != nil {
		return err
	}
	return repository.SQLExpectedCount(res, 1)
}
