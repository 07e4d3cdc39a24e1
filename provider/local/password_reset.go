package local

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	auth "github.com/goliatone/go-store-auth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const passwordResetTimeout = 10 * time.Second

// PasswordResetTicket carries the raw reset token that has to reach the
// identity owner out of band.
type PasswordResetTicket struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// RequestPasswordReset issues a reset token for email and expires any
// earlier pending one. An unknown email returns a nil ticket and no error.
func (b *Backend) RequestPasswordReset(ctx context.Context, email string) (*PasswordResetTicket, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset request")
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, passwordResetTimeout)
	defer cancel()

	model, err := b.findByEmail(ctx, email)
	if err != nil {
		if auth.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	raw, hash, err := NewOpaqueToken()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	now := b.clock.Now().UTC()
	ticket := &PasswordResetTicket{
		Email:     model.Email,
		Token:     raw,
		ExpiresAt: now.Add(b.resetTTL),
	}

	err = b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := b.resets.ExpirePendingTx(ctx, tx, model.ID, now); err != nil {
			return err
		}
		_, err := b.resets.CreateTx(ctx, tx, &PasswordResetModel{
			ID:         uuid.New(),
			IdentityID: model.ID,
			Email:      model.Email,
			TokenHash:  hash,
			Status:     ResetRequestedStatus,
			ExpiresAt:  ticket.ExpiresAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
	}

	return ticket, nil
}

// ValidateResetToken returns the identity a pending reset token belongs to.
func (b *Backend) ValidateResetToken(ctx context.Context, token string) (*auth.Identity, error) {
	reset, err := b.pendingReset(ctx, b.db, token)
	if err != nil {
		return nil, err
	}

	model, err := b.identities.GetByIDTx(ctx, b.db, reset.IdentityID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrResetTokenInvalid.Clone()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve identity")
	}
	return model.toIdentity(), nil
}

// ResetPassword consumes a reset token and sets a new credential. Every
// refresh token of the identity is revoked and a persisted session of that
// identity is cleared.
func (b *Backend) ResetPassword(ctx context.Context, token, password string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset")
	default:
	}

	if err := validation.Validate(password, validation.Required, validation.Length(6, 100)); err != nil {
		return auth.NewValidationError(err, map[string]string{"password": err.Error()})
	}

	hash, err := auth.HashPasswordWithCost(password, b.bcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	ctx, cancel := context.WithTimeout(ctx, passwordResetTimeout)
	defer cancel()

	now := b.clock.Now().UTC()
	var identityID uuid.UUID

	err = b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reset, err := b.pendingReset(ctx, tx, token)
		if err != nil {
			return err
		}

		if err := b.identities.SetPasswordHashTx(ctx, tx, reset.IdentityID, hash, now); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrResetTokenInvalid.Clone()
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update identity password")
		}

		if err := b.resets.MarkChangedTx(ctx, tx, reset.ID, now); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrResetTokenUsed.Clone()
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password reset status")
		}

		identityID = reset.IdentityID
		return b.refreshTokens.RevokeAllTx(ctx, tx, reset.IdentityID, now)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	b.dropPersistedSession(ctx, identityID.String())
	return nil
}

func (b *Backend) pendingReset(ctx context.Context, db bun.IDB, token string) (*PasswordResetModel, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrResetTokenInvalid.Clone()
	}

	reset, err := b.resets.GetByIdentifierTx(ctx, db, HashOpaqueToken(token))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrResetTokenInvalid.Clone()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset request")
	}

	switch {
	case reset.Status == ResetChangedStatus:
		return nil, ErrResetTokenUsed.Clone()
	case !reset.Pending(b.clock.Now()):
		return nil, ErrResetTokenExpired.Clone()
	}
	return reset, nil
}
