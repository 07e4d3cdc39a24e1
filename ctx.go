package auth

import (
	"context"
	"errors"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the acting Identity in the given context
func WithIdentityContext(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the acting identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*Identity)
	return raw, ok && raw != nil
}

// ContextActingIdentity is an ActingIdentityProvider for callers that
// authenticate per call, e.g. with a bearer token, instead of holding a
// SessionManager.
type ContextActingIdentity struct {
	translator *AuthErrorTranslator
}

// NewContextActingIdentity returns a provider reading WithIdentityContext values.
func NewContextActingIdentity(locale string) *ContextActingIdentity {
	return &ContextActingIdentity{translator: NewAuthErrorTranslator(locale)}
}

var _ ActingIdentityProvider = (*ContextActingIdentity)(nil)

func (c *ContextActingIdentity) ActingIdentity(ctx context.Context) (*Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, c.translator.AsError(errors.New(SignatureSessionExpired))
	}
	out := *identity
	return &out, nil
}
