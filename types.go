package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the externally managed principal backing a session.
// The login credential never leaves the backend.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Role     string         `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Session is the authenticated context bound to one Identity.
type Session struct {
	Identity     Identity  `json:"identity"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep enough copy for handing out to observers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Identity.Metadata != nil {
		out.Identity.Metadata = make(map[string]any, len(s.Identity.Metadata))
		for k, v := range s.Identity.Metadata {
			out.Identity.Metadata[k] = v
		}
	}
	return &out
}

// SessionEventType enumerates the notifications a backend pushes.
type SessionEventType string

const (
	SessionEventSignedIn       SessionEventType = "SIGNED_IN"
	SessionEventSignedOut      SessionEventType = "SIGNED_OUT"
	SessionEventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
)

// SessionEvent is a backend push notification.
type SessionEvent struct {
	Type    SessionEventType
	Session *Session
}

// SessionListener receives backend notifications. Implementations must not block.
type SessionListener func(SessionEvent)

// SessionBackend is the external identity service used by SessionManager.
type SessionBackend interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignOut revokes the given session remotely.
	SignOut(ctx context.Context, session *Session) error
	// CurrentSession returns the persisted session or nil when there is none.
	CurrentSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context, session *Session) (*Session, error)
	Subscribe(listener SessionListener) (unsubscribe func())
}

// IdentityAdmin manages identities in the external backend.
type IdentityAdmin interface {
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (*Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	FindIdentityByEmail(ctx context.Context, email string) (*Identity, error)
}

// ActingIdentityProvider resolves the identity on whose behalf sagas run.
type ActingIdentityProvider interface {
	ActingIdentity(ctx context.Context) (*Identity, error)
}

// Config holds core options
type Config interface {
	GetRefreshInterval() time.Duration
	GetStepTimeout() time.Duration
	GetLocale() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] STOREAUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] STOREAUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] STOREAUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] STOREAUTH "+newline(format), args...)
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
