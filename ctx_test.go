package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-store-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityContext(t *testing.T) {
	_, ok := auth.IdentityFromContext(context.Background())
	assert.False(t, ok)

	_, ok = auth.IdentityFromContext(auth.WithIdentityContext(context.Background(), nil))
	assert.False(t, ok)

	identity := &auth.Identity{ID: "id-1", Email: "ana@lojax.ao"}
	ctx := auth.WithIdentityContext(context.Background(), identity)

	got, ok := auth.IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, identity, got)
}

func TestContextActingIdentity(t *testing.T) {
	provider := auth.NewContextActingIdentity("en")

	_, err := provider.ActingIdentity(context.Background())
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeSessionExpired, auth.TextCode(err))

	identity := &auth.Identity{ID: "id-1", Email: "ana@lojax.ao"}
	got, err := provider.ActingIdentity(auth.WithIdentityContext(context.Background(), identity))
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.NotSame(t, identity, got)
}

func TestContextActingIdentityDrivesProducts(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.registerStore(t)

	catalog := auth.NewProductCatalog(auth.NewContextActingIdentity(""), env.repo, env.activities)

	ctx := auth.WithIdentityContext(context.Background(), reg.Identity)
	products, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = catalog.List(context.Background())
	require.Error(t, err)
	assert.True(t, auth.IsAuthError(err))
}
