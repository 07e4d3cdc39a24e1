package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/goliatone/go-store-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStore_Success(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	reg, err := env.registrationSaga().RegisterStore(ctx, validRegistration())
	require.NoError(t, err)
	require.NotNil(t, reg.Identity)
	require.NotNil(t, reg.Store)
	require.NotNil(t, reg.Membership)
	require.NotNil(t, reg.Activity)

	assert.Equal(t, "ana@lojax.ao", reg.Identity.Email)
	assert.Equal(t, auth.RoleStoreOwner, reg.Identity.Role)
	assert.Equal(t, reg.Identity.ID, reg.Store.OwnerID)
	assert.Equal(t, "Loja X", reg.Store.Name)
	assert.Equal(t, "+244923456789", reg.Store.Phone)

	members, err := env.repo.Memberships().ListByStore(ctx, reg.Store.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, auth.RoleAdmin, members[0].Role)
	assert.Equal(t, reg.Identity.ID, members[0].IdentityID)
	assert.Equal(t, "Ana", members[0].Name)

	records, err := env.repo.Activities().Recent(ctx, reg.Store.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, auth.ActionCreate, records[0].ActionType)
	assert.Equal(t, auth.ResourceUser, records[0].ResourceType)
	assert.Equal(t, auth.DescStoreRegistered, records[0].Description)
	assert.Equal(t, reg.Identity.ID, records[0].ActorID)
	assert.Equal(t, "Ana", records[0].ActorName)

	session, err := env.backend.SignIn(ctx, "ana@lojax.ao", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, reg.Identity.ID, session.Identity.ID)
}

func TestRegisterStore_MinimalPayload(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	reg, err := env.registrationSaga().RegisterStore(ctx, auth.RegisterStoreMessage{
		StoreName: "Loja X",
		Email:     "x@x.com",
		Password:  "secret1",
		Province:  "luanda",
		StoreType: "retail",
		Phone:     "+244900000000",
		Latitude:  -8.83,
		Longitude: 13.23,
	})
	require.NoError(t, err)
	assert.Equal(t, "+244900000000", reg.Store.Phone)
	assert.Equal(t, "Loja X", reg.Membership.Name)
	assert.Equal(t, auth.RoleAdmin, reg.Membership.Role)
	assert.Equal(t, auth.ActionCreate, reg.Activity.ActionType)
	assert.Equal(t, auth.ResourceUser, reg.Activity.ResourceType)

	count, err := env.db.NewSelect().Model((*auth.Membership)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterStore_NormalizesEmail(t *testing.T) {
	env := setupTestEnv(t)

	msg := validRegistration()
	msg.Email = "  Ana@LojaX.AO "

	reg, err := env.registrationSaga().RegisterStore(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "ana@lojax.ao", reg.Identity.Email)
	assert.Equal(t, "ana@lojax.ao", reg.Store.Email)
}

func TestRegisterStore_OutsideRegion(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	msg := validRegistration()
	msg.Latitude = 40
	msg.Longitude = -74

	reg, err := env.registrationSaga().RegisterStore(ctx, msg)
	require.Error(t, err)
	assert.Nil(t, reg)
	assert.True(t, auth.IsValidationError(err))
	assert.Equal(t, auth.TextCodeOutsideRegion, auth.TextCode(err))

	_, err = env.backend.FindIdentityByEmail(ctx, msg.Email)
	assert.True(t, auth.IsNotFoundError(err))

	count, err := env.db.NewSelect().Model((*auth.Store)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRegisterStore_InvalidPayload(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*auth.RegisterStoreMessage)
	}{
		{"missing store name", func(m *auth.RegisterStoreMessage) { m.StoreName = "" }},
		{"invalid email", func(m *auth.RegisterStoreMessage) { m.Email = "not-an-email" }},
		{"short password", func(m *auth.RegisterStoreMessage) { m.Password = "123" }},
		{"missing province", func(m *auth.RegisterStoreMessage) { m.Province = "" }},
		{"invalid phone", func(m *auth.RegisterStoreMessage) { m.Phone = "12" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			msg := validRegistration()
			tt.mutate(&msg)

			_, err := env.registrationSaga().RegisterStore(context.Background(), msg)
			require.Error(t, err)
			assert.True(t, auth.IsValidationError(err))
			assert.Equal(t, auth.TextCodeValidationFailed, auth.TextCode(err))

			_, err = env.backend.FindIdentityByEmail(context.Background(), msg.Email)
			assert.Error(t, err)
		})
	}
}

func TestRegisterStore_DuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.registerStore(t)

	msg := validRegistration()
	msg.StoreName = "Loja Y"

	_, err := env.registrationSaga().RegisterStore(ctx, msg)
	require.Error(t, err)
	assert.True(t, auth.IsConflictError(err))
	assert.False(t, auth.IsSagaCompensationError(err))

	count, err := env.db.NewSelect().Model((*auth.Store)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterStore_StoreFailureDeletesIdentity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	cause := errors.New("insert failed")
	repo := repoOverride{
		RepositoryManager: env.repo,
		stores:            failingStores{Stores: env.repo.Stores(), err: cause},
	}
	saga := auth.NewRegistrationSaga(env.backend, repo, env.activities, auth.WithSagaLogger(env.logger))

	_, err := saga.RegisterStore(ctx, validRegistration())
	require.Error(t, err)
	require.True(t, auth.IsSagaCompensationError(err))

	var sagaErr *auth.SagaCompensationError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, "create_store", sagaErr.Step)
	assert.True(t, sagaErr.Compensated())

	_, err = env.backend.FindIdentityByEmail(ctx, "ana@lojax.ao")
	assert.True(t, auth.IsNotFoundError(err))

	_, err = env.backend.SignIn(ctx, "ana@lojax.ao", "segredo1")
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeInvalidCredentials, auth.TextCode(err))
}

func TestRegisterStore_MembershipFailureUndoesStoreAndIdentity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	repo := repoOverride{
		RepositoryManager: env.repo,
		memberships:       failingMemberships{Memberships: env.repo.Memberships(), err: errors.New("boom")},
	}
	saga := auth.NewRegistrationSaga(env.backend, repo, env.activities, auth.WithSagaLogger(env.logger))

	_, err := saga.RegisterStore(ctx, validRegistration())
	require.Error(t, err)

	var sagaErr *auth.SagaCompensationError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, "create_admin_membership", sagaErr.Step)

	count, err := env.db.NewSelect().Model((*auth.Store)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = env.backend.FindIdentityByEmail(ctx, "ana@lojax.ao")
	assert.True(t, auth.IsNotFoundError(err))
}

func TestRegisterStore_ActivityFailureRollsBackEverything(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	activities := auth.NewActivityRecorder(failingActivities{err: errors.New("audit down")})
	saga := auth.NewRegistrationSaga(env.backend, env.repo, activities, auth.WithSagaLogger(env.logger))

	_, err := saga.RegisterStore(ctx, validRegistration())
	require.Error(t, err)

	var sagaErr *auth.SagaCompensationError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, "record_activity", sagaErr.Step)

	stores, err := env.db.NewSelect().Model((*auth.Store)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, stores)

	members, err := env.db.NewSelect().Model((*auth.Membership)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, members)

	_, err = env.backend.FindIdentityByEmail(ctx, "ana@lojax.ao")
	assert.True(t, auth.IsNotFoundError(err))
}

func TestRegisterStore_CancelledContext(t *testing.T) {
	env := setupTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.registrationSaga().RegisterStore(ctx, validRegistration())
	require.Error(t, err)

	_, err = env.backend.FindIdentityByEmail(context.Background(), "ana@lojax.ao")
	assert.True(t, auth.IsNotFoundError(err))
}

func TestRegisterStore_CustomRegion(t *testing.T) {
	env := setupTestEnv(t)

	region := auth.BoundingRegion{
		Name:      "Test",
		SouthWest: auth.LatLng{Lat: 39, Lng: -75},
		NorthEast: auth.LatLng{Lat: 41, Lng: -73},
	}

	msg := validRegistration()
	msg.Latitude = 40
	msg.Longitude = -74
	msg.Phone = "+12125550100"

	reg, err := env.registrationSaga(auth.WithRegion(region), auth.WithSagaStepTimeout(time.Second)).
		RegisterStore(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "+12125550100", reg.Store.Phone)
}
