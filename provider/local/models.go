package local

import (
	"time"

	auth "github.com/goliatone/go-store-auth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityModel is the bun model for locally managed identities.
type IdentityModel struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	Email         string         `bun:"email,notnull,unique"`
	Role          string         `bun:"role"`
	PasswordHash  string         `bun:"password_hash,notnull"`
	Metadata      map[string]any `bun:"metadata"`
	LastSignInAt  *time.Time     `bun:"last_sign_in_at,nullzero"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// RefreshTokenModel stores the SHA-256 hash of an issued refresh token.
type RefreshTokenModel struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid"`
	IdentityID    uuid.UUID  `bun:"identity_id,notnull,type:uuid"`
	TokenHash     string     `bun:"token_hash,notnull,unique"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Active reports whether the token can still be exchanged at now.
func (m *RefreshTokenModel) Active(now time.Time) bool {
	return m.RevokedAt == nil && now.Before(m.ExpiresAt)
}

func (m *IdentityModel) toIdentity() *auth.Identity {
	identity := &auth.Identity{
		ID:    m.ID.String(),
		Email: m.Email,
		Role:  m.Role,
	}
	if len(m.Metadata) > 0 {
		identity.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			identity.Metadata[k] = v
		}
	}
	return identity
}

const (
	ResetRequestedStatus = "requested"
	ResetChangedStatus   = "changed"
	ResetExpiredStatus   = "expired"
)

// PasswordResetModel is a pending or consumed password reset. Only the
// SHA-256 hash of the reset token is stored.
type PasswordResetModel struct {
	bun.BaseModel `bun:"table:password_resets,alias:pwr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid"`
	IdentityID    uuid.UUID  `bun:"identity_id,notnull,type:uuid"`
	Email         string     `bun:"email,notnull"`
	TokenHash     string     `bun:"token_hash,notnull,unique"`
	Status        string     `bun:"status,notnull"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull"`
	ResetAt       *time.Time `bun:"reset_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Pending reports whether the reset can still be consumed at now.
func (m *PasswordResetModel) Pending(now time.Time) bool {
	return m.Status == ResetRequestedStatus && now.Before(m.ExpiresAt)
}
