package auth_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	auth "github.com/goliatone/go-store-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) provisioning(acting *auth.Identity, opts ...auth.SagaOption) *auth.UserProvisioningSaga {
	opts = append([]auth.SagaOption{auth.WithSagaLogger(e.logger)}, opts...)
	return auth.NewUserProvisioningSaga(staticActing{identity: acting}, e.backend, e.repo, e.activities, opts...)
}

func activitiesWithDescription(t *testing.T, env *testEnv, storeID uuid.UUID, description string) []*auth.ActivityRecord {
	t.Helper()
	records, err := env.repo.Activities().Recent(context.Background(), storeID, 0)
	require.NoError(t, err)

	var out []*auth.ActivityRecord
	for _, r := range records {
		if r.Description == description {
			out = append(out, r)
		}
	}
	return out
}

func TestCreateUser_Success(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)

	user, err := env.provisioning(reg.Identity).CreateUser(ctx, auth.UserProfile{
		Name:  "Rui",
		Email: "Rui@LojaX.ao",
	}, auth.RoleStaff)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]{8}$`), user.OneTimePassword)
	assert.Equal(t, "rui@lojax.ao", user.Identity.Email)
	assert.Equal(t, auth.RoleStaff, user.Identity.Role)
	assert.Equal(t, reg.Store.ID.String(), user.Identity.Metadata["store_id"])
	assert.Equal(t, reg.Store.ID, user.Membership.StoreID)
	assert.Equal(t, user.Identity.ID, user.Membership.IdentityID)
	assert.Equal(t, auth.RoleStaff, user.Membership.Role)

	require.NotNil(t, user.Activity)
	assert.Equal(t, `Usuário "Rui" foi criado`, user.Activity.Description)
	assert.Equal(t, reg.Identity.ID, user.Activity.ActorID)
	assert.Equal(t, "Ana", user.Activity.ActorName)
	assert.Equal(t, auth.ActionCreate, user.Activity.ActionType)
	assert.Equal(t, auth.ResourceUser, user.Activity.ResourceType)

	session, err := env.backend.SignIn(ctx, "rui@lojax.ao", user.OneTimePassword)
	require.NoError(t, err)
	assert.Equal(t, user.Identity.ID, session.Identity.ID)
}

func TestCreateUser_FixedPasswordGenerator(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.registerStore(t)

	saga := env.provisioning(reg.Identity, auth.WithPasswordGenerator(func() (string, error) {
		return "temp1234", nil
	}))

	user, err := saga.CreateUser(context.Background(), auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "temp1234", user.OneTimePassword)
	assert.Equal(t, auth.RoleAdmin, user.Membership.Role)
}

func TestCreateUser_Validation(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.registerStore(t)
	saga := env.provisioning(reg.Identity)

	tests := []struct {
		name    string
		profile auth.UserProfile
		role    auth.MembershipRole
	}{
		{"missing name", auth.UserProfile{Email: "rui@lojax.ao"}, auth.RoleStaff},
		{"invalid email", auth.UserProfile{Name: "Rui", Email: "rui"}, auth.RoleStaff},
		{"unknown role", auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := saga.CreateUser(context.Background(), tt.profile, tt.role)
			require.Error(t, err)
			assert.True(t, auth.IsValidationError(err))
		})
	}

	count, err := env.repo.Memberships().CountByStore(context.Background(), reg.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.registerStore(t)

	_, err := env.provisioning(reg.Identity).CreateUser(context.Background(), auth.UserProfile{
		Name:  "Outra Ana",
		Email: "ana@lojax.ao",
	}, auth.RoleStaff)
	require.Error(t, err)
	assert.True(t, auth.IsConflictError(err))

	count, err := env.repo.Memberships().CountByStore(context.Background(), reg.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateUser_MembershipFailureDeletesIdentity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)

	repo := repoOverride{
		RepositoryManager: env.repo,
		memberships:       failingMemberships{Memberships: env.repo.Memberships(), err: errors.New("boom")},
	}
	saga := auth.NewUserProvisioningSaga(staticActing{identity: reg.Identity}, env.backend, repo, env.activities,
		auth.WithSagaLogger(env.logger))

	_, err := saga.CreateUser(ctx, auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, auth.RoleStaff)
	require.Error(t, err)
	assert.True(t, auth.IsSagaCompensationError(err))

	_, err = env.backend.FindIdentityByEmail(ctx, "rui@lojax.ao")
	assert.True(t, auth.IsNotFoundError(err))

	assert.Empty(t, activitiesWithDescription(t, env, reg.Store.ID, `Usuário "Rui" foi criado`))
}

func TestCreateUser_RequiresOwnedStore(t *testing.T) {
	env := setupTestEnv(t)
	env.registerStore(t)

	stranger := &auth.Identity{ID: uuid.NewString(), Email: "x@y.ao"}
	_, err := env.provisioning(stranger).CreateUser(context.Background(), auth.UserProfile{
		Name:  "Rui",
		Email: "rui@lojax.ao",
	}, auth.RoleStaff)
	require.Error(t, err)
	assert.True(t, auth.IsNotFoundError(err))
	assert.Equal(t, auth.TextCodeStoreNotFound, auth.TextCode(err))
}

func TestCreateUser_Unauthenticated(t *testing.T) {
	env := setupTestEnv(t)
	env.registerStore(t)

	expected := errors.New("no session")
	saga := auth.NewUserProvisioningSaga(staticActing{err: expected}, env.backend, env.repo, env.activities,
		auth.WithSagaLogger(env.logger))

	_, err := saga.CreateUser(context.Background(), auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, auth.RoleStaff)
	assert.ErrorIs(t, err, expected)
}

func TestUpdateUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)
	saga := env.provisioning(reg.Identity)

	user, err := saga.CreateUser(ctx, auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, auth.RoleStaff)
	require.NoError(t, err)

	name := "Rui Costa"
	role := auth.RoleAdmin
	updated, err := saga.UpdateUser(ctx, user.Membership.ID, auth.UserPatch{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Rui Costa", updated.Name)
	assert.Equal(t, auth.RoleAdmin, updated.Role)
	assert.Equal(t, "rui@lojax.ao", updated.Email)

	assert.Len(t, activitiesWithDescription(t, env, reg.Store.ID, `Usuário "Rui Costa" foi atualizado`), 1)

	badRole := "root"
	_, err = saga.UpdateUser(ctx, user.Membership.ID, auth.UserPatch{Role: &badRole})
	assert.True(t, auth.IsValidationError(err))

	_, err = saga.UpdateUser(ctx, uuid.New(), auth.UserPatch{Name: &name})
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeUserNotFound, auth.TextCode(err))
}

func TestDeleteUser_RecordsCapturedName(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)
	saga := env.provisioning(reg.Identity)

	user, err := saga.CreateUser(ctx, auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, auth.RoleStaff)
	require.NoError(t, err)

	require.NoError(t, saga.DeleteUser(ctx, user.Membership.ID))

	_, err = env.repo.Memberships().GetInStore(ctx, reg.Store.ID, user.Membership.ID)
	assert.Error(t, err)

	_, err = env.backend.FindIdentityByEmail(ctx, "rui@lojax.ao")
	assert.True(t, auth.IsNotFoundError(err))

	deleted := activitiesWithDescription(t, env, reg.Store.ID, `Usuário "Rui" foi removido`)
	require.Len(t, deleted, 1)
	assert.Equal(t, auth.ActionDelete, deleted[0].ActionType)
	assert.Equal(t, "Ana", deleted[0].ActorName)

	err = saga.DeleteUser(ctx, user.Membership.ID)
	require.Error(t, err)
	assert.True(t, auth.IsNotFoundError(err))
	assert.Len(t, activitiesWithDescription(t, env, reg.Store.ID, `Usuário "Rui" foi removido`), 1)
}

// lookupFailingAdmin fails identity lookups and passes the rest through.
type lookupFailingAdmin struct {
	auth.IdentityAdmin
	err error
}

func (a lookupFailingAdmin) FindIdentityByEmail(context.Context, string) (*auth.Identity, error) {
	return nil, a.err
}

// stalledAdmin blocks identity lookups until the caller gives up.
type stalledAdmin struct {
	auth.IdentityAdmin
}

func (a stalledAdmin) FindIdentityByEmail(ctx context.Context, _ string) (*auth.Identity, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func warnings(env *testEnv, fragment string) int {
	n := 0
	for _, line := range env.logger.Lines() {
		if strings.HasPrefix(line, "WRN ") && strings.Contains(line, fragment) {
			n++
		}
	}
	return n
}

func TestDeleteUser_WithoutBackingIdentity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)

	orphan, err := env.repo.Memberships().Create(ctx, &auth.Membership{
		StoreID: reg.Store.ID,
		Name:    "Sem Conta",
		Email:   "sem-conta@lojax.ao",
		Role:    auth.RoleStaff,
	})
	require.NoError(t, err)

	require.NoError(t, env.provisioning(reg.Identity).DeleteUser(ctx, orphan.ID))

	_, err = env.repo.Memberships().GetInStore(ctx, reg.Store.ID, orphan.ID)
	assert.Error(t, err)

	deleted := activitiesWithDescription(t, env, reg.Store.ID, `Usuário "Sem Conta" foi removido`)
	require.Len(t, deleted, 1)
	assert.Equal(t, auth.ActionDelete, deleted[0].ActionType)
	assert.Zero(t, warnings(env, "sem-conta@lojax.ao"))
}

func TestDeleteUser_IdentityLookupFailureIsLogged(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)

	user, err := env.provisioning(reg.Identity).CreateUser(ctx, auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, auth.RoleStaff)
	require.NoError(t, err)

	admin := lookupFailingAdmin{IdentityAdmin: env.backend, err: errors.New("connection reset")}
	saga := auth.NewUserProvisioningSaga(staticActing{identity: reg.Identity}, admin, env.repo, env.activities,
		auth.WithSagaLogger(env.logger))

	require.NoError(t, saga.DeleteUser(ctx, user.Membership.ID))

	_, err = env.repo.Memberships().GetInStore(ctx, reg.Store.ID, user.Membership.ID)
	assert.Error(t, err)
	assert.Equal(t, 1, warnings(env, "lookup of identity rui@lojax.ao"))
	assert.Len(t, activitiesWithDescription(t, env, reg.Store.ID, `Usuário "Rui" foi removido`), 1)

	_, err = env.backend.FindIdentityByEmail(ctx, "rui@lojax.ao")
	assert.NoError(t, err)
}

func TestDeleteUser_IdentityLookupIsBounded(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)

	user, err := env.provisioning(reg.Identity).CreateUser(ctx, auth.UserProfile{Name: "Rui", Email: "rui@lojax.ao"}, auth.RoleStaff)
	require.NoError(t, err)

	saga := auth.NewUserProvisioningSaga(staticActing{identity: reg.Identity}, stalledAdmin{IdentityAdmin: env.backend}, env.repo, env.activities,
		auth.WithSagaLogger(env.logger), auth.WithSagaStepTimeout(50*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- saga.DeleteUser(ctx, user.Membership.ID) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("DeleteUser did not return after the step timeout")
	}

	assert.Equal(t, 1, warnings(env, "lookup of identity rui@lojax.ao"))
	assert.Len(t, activitiesWithDescription(t, env, reg.Store.ID, `Usuário "Rui" foi removido`), 1)
}

func TestDeleteUser_OwnerIsProtected(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)

	err := env.provisioning(reg.Identity).DeleteUser(ctx, reg.Membership.ID)
	require.Error(t, err)
	assert.True(t, auth.IsValidationError(err))

	count, err := env.repo.Memberships().CountByStore(ctx, reg.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteUser_OtherStoreIsNotVisible(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	first := env.registerStore(t)

	msg := validRegistration()
	msg.StoreName = "Loja Y"
	msg.OwnerName = "Beto"
	msg.Email = "beto@lojay.ao"
	second, err := env.registrationSaga().RegisterStore(ctx, msg)
	require.NoError(t, err)

	user, err := env.provisioning(second.Identity).CreateUser(ctx, auth.UserProfile{
		Name:  "Carla",
		Email: "carla@lojay.ao",
	}, auth.RoleStaff)
	require.NoError(t, err)

	err = env.provisioning(first.Identity).DeleteUser(ctx, user.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeUserNotFound, auth.TextCode(err))

	_, err = env.repo.Memberships().GetInStore(ctx, second.Store.ID, user.Membership.ID)
	assert.NoError(t, err)
}

func TestListUsers_OrderedByName(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reg := env.registerStore(t)
	saga := env.provisioning(reg.Identity)

	for _, p := range []auth.UserProfile{
		{Name: "Zeca", Email: "zeca@lojax.ao"},
		{Name: "Bruno", Email: "bruno@lojax.ao"},
	} {
		_, err := saga.CreateUser(ctx, p, auth.RoleStaff)
		require.NoError(t, err)
	}

	users, err := saga.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Ana", users[0].Name)
	assert.Equal(t, "Bruno", users[1].Name)
	assert.Equal(t, "Zeca", users[2].Name)
}
