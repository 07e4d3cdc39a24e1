// Package local implements the identity backend on top of a bun database:
// bcrypt credentials, HS256 access tokens and rotating refresh tokens whose
// SHA-256 hashes are persisted.
package local

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	auth "github.com/goliatone/go-store-auth"
	"github.com/goliatone/go-store-auth/sessionstore"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
	DefaultIssuer     = "go-store-auth"
	DefaultResetTTL   = 24 * time.Hour
)

// Option configures a Backend.
type Option func(*Backend)

func WithClock(clock clockwork.Clock) Option {
	return func(b *Backend) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func WithLogger(logger auth.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithAccessTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl > 0 {
			b.accessTTL = ttl
		}
	}
}

func WithRefreshTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl > 0 {
			b.refreshTTL = ttl
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(b *Backend) {
		if issuer != "" {
			b.issuer = issuer
		}
	}
}

// WithResetTTL sets how long a password reset token stays valid.
func WithResetTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl > 0 {
			b.resetTTL = ttl
		}
	}
}

// WithBcryptCost sets the cost used to hash credentials.
func WithBcryptCost(cost int) Option {
	return func(b *Backend) {
		b.bcryptCost = cost
	}
}

// WithSessionStore sets where the current session is persisted.
func WithSessionStore(store sessionstore.Store) Option {
	return func(b *Backend) {
		if store != nil {
			b.sessions = store
		}
	}
}

// WithDeterministicIDs derives identity ids from the email address.
func WithDeterministicIDs() Option {
	return func(b *Backend) {
		b.useHashid = true
	}
}

// Backend implements auth.SessionBackend and auth.IdentityAdmin.
type Backend struct {
	db            *bun.DB
	identities    Identities
	refreshTokens RefreshTokens
	resets        PasswordResets
	signingKey    []byte
	tokens        *TokenService
	sessions      sessionstore.Store
	notifier      *notifier
	clock         clockwork.Clock
	logger        auth.Logger
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	issuer        string
	bcryptCost    int
	useHashid     bool
}

var (
	_ auth.SessionBackend = (*Backend)(nil)
	_ auth.IdentityAdmin  = (*Backend)(nil)
)

func NewBackend(db *bun.DB, signingKey []byte, opts ...Option) *Backend {
	b := &Backend{
		db:            db,
		identities:    NewIdentitiesRepository(db),
		refreshTokens: NewRefreshTokensRepository(db),
		resets:        NewPasswordResetsRepository(db),
		signingKey:    signingKey,
		sessions:      sessionstore.NewMemoryStore(),
		notifier:      newNotifier(),
		clock:         clockwork.NewRealClock(),
		logger:        auth.DefaultLogger(),
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		resetTTL:      DefaultResetTTL,
		issuer:        DefaultIssuer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.tokens = NewTokenService(b.signingKey, b.accessTTL, b.issuer, b.clock, b.logger)
	return b
}

// Migrate creates the identity tables when missing.
func (b *Backend) Migrate(ctx context.Context) error {
	for _, model := range []any{(*IdentityModel)(nil), (*RefreshTokenModel)(nil), (*PasswordResetModel)(nil)} {
		if _, err := b.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to migrate identity tables")
		}
	}
	return nil
}

// Tokens exposes the access token service.
func (b *Backend) Tokens() *TokenService {
	return b.tokens
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	model, err := b.findByEmail(ctx, email)
	if err != nil {
		if auth.IsNotFoundError(err) {
			return nil, auth.ErrMismatchedHashAndPassword.Clone()
		}
		return nil, err
	}

	if err := auth.ComparePasswordAndHash(password, model.PasswordHash); err != nil {
		return nil, err
	}

	session, err := b.issue(ctx, b.db, model.toIdentity())
	if err != nil {
		return nil, err
	}

	if err := b.identities.TrackSignInTx(ctx, b.db, model.ID, session.IssuedAt); err != nil {
		b.logger.Warn("local backend: track sign in for %s failed: %v", model.ID, err)
	}

	b.persist(ctx, session)
	b.notifier.publish(auth.SessionEvent{Type: auth.SessionEventSignedIn, Session: session})
	return session, nil
}

func (b *Backend) SignOut(ctx context.Context, session *auth.Session) error {
	if session == nil {
		return nil
	}

	if err := b.refreshTokens.RevokeTx(ctx, b.db, HashOpaqueToken(session.RefreshToken), b.clock.Now().UTC()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke refresh token")
	}

	if err := b.sessions.Clear(ctx); err != nil {
		b.logger.Warn("local backend: clear persisted session failed: %v", err)
	}

	b.notifier.publish(auth.SessionEvent{Type: auth.SessionEventSignedOut, Session: session})
	return nil
}

func (b *Backend) CurrentSession(ctx context.Context) (*auth.Session, error) {
	return b.sessions.Load(ctx)
}

// RefreshSession exchanges the refresh token for a new session. The old
// refresh token is revoked.
func (b *Backend) RefreshSession(ctx context.Context, session *auth.Session) (*auth.Session, error) {
	if session == nil || session.RefreshToken == "" {
		return nil, ErrRefreshFailed.Clone()
	}

	var next *auth.Session
	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := b.refreshTokens.GetByIdentifierTx(ctx, tx, HashOpaqueToken(session.RefreshToken))
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrRefreshFailed.Clone()
			}
			return err
		}

		if !token.Active(b.clock.Now()) {
			return ErrRefreshFailed.Clone().WithMetadata(map[string]any{"identity_id": token.IdentityID.String()})
		}

		model, err := b.identities.GetByIDTx(ctx, tx, token.IdentityID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrRefreshFailed.Clone()
			}
			return err
		}

		if err := b.refreshTokens.RevokeTx(ctx, tx, token.TokenHash, b.clock.Now().UTC()); err != nil {
			return err
		}

		next, err = b.issue(ctx, tx, model.toIdentity())
		return err
	})
	if err != nil {
		return nil, err
	}

	b.persist(ctx, next)
	b.notifier.publish(auth.SessionEvent{Type: auth.SessionEventTokenRefreshed, Session: next})
	return next, nil
}

func (b *Backend) Subscribe(listener auth.SessionListener) func() {
	return b.notifier.subscribe(listener)
}

// SessionFromToken validates an access token and returns its identity.
func (b *Backend) SessionFromToken(token string) (*auth.Identity, error) {
	claims, err := b.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{
		ID:    claims.UserID(),
		Email: claims.Email,
		Role:  claims.UserRole,
	}, nil
}

func (b *Backend) CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (*auth.Identity, error) {
	email = normalizeEmail(email)

	if _, err := b.findByEmail(ctx, email); err == nil {
		return nil, auth.NewConflictError(nil, email)
	} else if !auth.IsNotFoundError(err) {
		return nil, err
	}

	hash, err := auth.HashPasswordWithCost(password, b.bcryptCost)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := b.clock.Now().UTC()
	model := &IdentityModel{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role, ok := metadata["role"].(string); ok {
		model.Role = role
	}
	if b.useHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			model.ID = id
		}
	}

	if _, err := b.identities.Create(ctx, model); err != nil {
		if _, ferr := b.findByEmail(ctx, email); ferr == nil {
			return nil, auth.NewConflictError(err, email)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create identity")
	}

	return model.toIdentity(), nil
}

// DeleteIdentity removes the identity and revokes its refresh tokens. A
// persisted session of that identity is cleared.
func (b *Backend) DeleteIdentity(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return auth.NewNotFoundError(auth.ErrIdentityNotFound, map[string]any{"id": id})
	}

	err = b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		model, err := b.identities.GetByIDTx(ctx, tx, uid.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return auth.NewNotFoundError(auth.ErrIdentityNotFound, map[string]any{"id": id})
			}
			return err
		}
		if err := b.identities.DeleteTx(ctx, tx, model); err != nil {
			return err
		}
		return b.refreshTokens.RevokeAllTx(ctx, tx, uid, b.clock.Now().UTC())
	})
	if err != nil {
		return err
	}

	b.dropPersistedSession(ctx, id)
	return nil
}

// dropPersistedSession clears the persisted session when it belongs to
// identityID and notifies subscribers.
func (b *Backend) dropPersistedSession(ctx context.Context, identityID string) {
	current, err := b.sessions.Load(ctx)
	if err != nil || current == nil || current.Identity.ID != identityID {
		return
	}
	if err := b.sessions.Clear(ctx); err != nil {
		b.logger.Warn("local backend: clear session of identity %s failed: %v", identityID, err)
	}
	b.notifier.publish(auth.SessionEvent{Type: auth.SessionEventSignedOut, Session: current})
}

func (b *Backend) FindIdentityByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	model, err := b.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return model.toIdentity(), nil
}

func (b *Backend) findByEmail(ctx context.Context, email string) (*IdentityModel, error) {
	model, err := b.identities.GetByIdentifier(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, auth.NewNotFoundError(auth.ErrIdentityNotFound, map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve identity")
	}
	return model, nil
}

func (b *Backend) issue(ctx context.Context, db bun.IDB, identity *auth.Identity) (*auth.Session, error) {
	access, expiresAt, err := b.tokens.Generate(identity)
	if err != nil {
		return nil, err
	}

	raw, hash, err := NewOpaqueToken()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate refresh token")
	}

	identityID, err := uuid.Parse(identity.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid identity id")
	}

	now := b.clock.Now().UTC()
	if _, err := b.refreshTokens.CreateTx(ctx, db, &RefreshTokenModel{
		ID:         uuid.New(),
		IdentityID: identityID,
		TokenHash:  hash,
		ExpiresAt:  now.Add(b.refreshTTL),
		CreatedAt:  now,
	}); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store refresh token")
	}

	return &auth.Session{
		Identity:     *identity,
		AccessToken:  access,
		RefreshToken: raw,
		IssuedAt:     now,
		ExpiresAt:    expiresAt.UTC(),
	}, nil
}

func (b *Backend) persist(ctx context.Context, session *auth.Session) {
	if err := b.sessions.Save(ctx, session); err != nil {
		b.logger.Warn("local backend: persist session failed: %v", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
