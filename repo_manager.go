package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Migrate(ctx context.Context) error
	Stores() Stores
	Memberships() Memberships
	Activities() Activities
	Products() Products
}

type mngr struct {
	db          *bun.DB
	stores      Stores
	memberships Memberships
	activities  Activities
	products    Products
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		stores:      NewStoresRepository(db),
		memberships: NewMembershipsRepository(db),
		activities:  NewActivitiesRepository(db),
		products:    NewProductsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.stores == nil {
		return errors.New("repository stores should be initialized")
	}

	if m.memberships == nil {
		return errors.New("repository memberships should be initialized")
	}

	if m.activities == nil {
		return errors.New("repository activities should be initialized")
	}

	if m.products == nil {
		return errors.New("repository products should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate creates the store tables when missing.
func (m mngr) Migrate(ctx context.Context) error {
	models := []any{
		(*Store)(nil),
		(*Membership)(nil),
		(*ActivityRecord)(nil),
		(*Product)(nil),
	}
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m mngr) Stores() Stores {
	return m.stores
}

func (m mngr) Memberships() Memberships {
	return m.memberships
}

func (m mngr) Activities() Activities {
	return m.activities
}

func (m mngr) Products() Products {
	return m.products
}

func byStore(storeID uuid.UUID) repository.SelectCriteria {
	return repository.SelectBy("store_id", "=", storeID.String())
}

// unpaged clears the default page size applied by List.
func unpaged() repository.SelectCriteria {
	return repository.Paginate(0, 0)
}

func recordNotFound(err error, table string, meta map[string]any) error {
	if !repository.IsRecordNotFound(err) {
		return err
	}
	md := map[string]any{"table": table}
	for k, v := range meta {
		md[k] = v
	}
	return goerrors.Wrap(repository.ErrRecordNotFound, goerrors.CategoryNotFound, "record not found").
		WithMetadata(md)
}
