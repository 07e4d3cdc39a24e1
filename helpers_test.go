package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	auth "github.com/goliatone/go-store-auth"
	"github.com/goliatone/go-store-auth/provider/local"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "test-signing-key-with-32-characters!"

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) log(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *testLogger) Debug(format string, args ...any) { l.log("DBG", format, args...) }
func (l *testLogger) Info(format string, args ...any)  { l.log("INF", format, args...) }
func (l *testLogger) Warn(format string, args ...any)  { l.log("WRN", format, args...) }
func (l *testLogger) Error(format string, args ...any) { l.log("ERR", format, args...) }

func (l *testLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

type staticActing struct {
	identity *auth.Identity
	err      error
}

func (s staticActing) ActingIdentity(context.Context) (*auth.Identity, error) {
	return s.identity, s.err
}

type testEnv struct {
	db         *bun.DB
	repo       auth.RepositoryManager
	backend    *local.Backend
	activities auth.ActivityRecorder
	logger     *testLogger
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db := newTestDB(t)
	logger := &testLogger{}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()
	require.NoError(t, repo.Migrate(ctx))

	backend := local.NewBackend(db, []byte(testSigningKey),
		local.WithBcryptCost(bcrypt.MinCost),
		local.WithLogger(logger),
	)
	require.NoError(t, backend.Migrate(ctx))

	return &testEnv{
		db:         db,
		repo:       repo,
		backend:    backend,
		activities: auth.NewActivityRecorder(repo.Activities(), auth.WithActivityLogger(logger)),
		logger:     logger,
	}
}

func validRegistration() auth.RegisterStoreMessage {
	return auth.RegisterStoreMessage{
		StoreName: "Loja X",
		OwnerName: "Ana",
		Email:     "ana@lojax.ao",
		Password:  "segredo1",
		Province:  "Luanda",
		StoreType: "Padaria",
		Phone:     "923456789",
		Latitude:  -8.83,
		Longitude: 13.23,
	}
}

func (e *testEnv) registrationSaga(opts ...auth.SagaOption) *auth.RegistrationSaga {
	opts = append([]auth.SagaOption{auth.WithSagaLogger(e.logger)}, opts...)
	return auth.NewRegistrationSaga(e.backend, e.repo, e.activities, opts...)
}

// registerStore registers the default store and returns the owner identity
// with the display name populated the way a signed in session carries it.
func (e *testEnv) registerStore(t *testing.T) *auth.Registration {
	t.Helper()
	reg, err := e.registrationSaga().RegisterStore(context.Background(), validRegistration())
	require.NoError(t, err)
	return reg
}

// repoOverride replaces selected repositories of a RepositoryManager.
type repoOverride struct {
	auth.RepositoryManager
	stores      auth.Stores
	memberships auth.Memberships
	activities  auth.Activities
	products    auth.Products
}

func (r repoOverride) Stores() auth.Stores {
	if r.stores != nil {
		return r.stores
	}
	return r.RepositoryManager.Stores()
}

func (r repoOverride) Memberships() auth.Memberships {
	if r.memberships != nil {
		return r.memberships
	}
	return r.RepositoryManager.Memberships()
}

func (r repoOverride) Activities() auth.Activities {
	if r.activities != nil {
		return r.activities
	}
	return r.RepositoryManager.Activities()
}

func (r repoOverride) Products() auth.Products {
	if r.products != nil {
		return r.products
	}
	return r.RepositoryManager.Products()
}

type failingStores struct {
	auth.Stores
	err error
}

func (f failingStores) Create(context.Context, *auth.Store) (*auth.Store, error) {
	return nil, f.err
}

type failingMemberships struct {
	auth.Memberships
	err error
}

func (f failingMemberships) Create(context.Context, *auth.Membership) (*auth.Membership, error) {
	return nil, f.err
}

type failingActivities struct {
	auth.Activities
	err error
}

func (f failingActivities) Append(context.Context, *auth.ActivityRecord) (*auth.ActivityRecord, error) {
	return nil, f.err
}
