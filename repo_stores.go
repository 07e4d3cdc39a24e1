package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// storeProfileColumns are written by Update. OwnerID is never reassigned.
var storeProfileColumns = []string{
	"name", "email", "province", "store_type", "phone",
	"description", "latitude", "longitude", "updated_at",
}

type Stores interface {
	repository.Repository[*Store]

	ListByOwner(ctx context.Context, ownerID string) ([]*Store, error)
	ListByOwnerTx(ctx context.Context, tx bun.IDB, ownerID string) ([]*Store, error)
}

type stores struct {
	repository.Repository[*Store]
	db bun.IDB
}

var (
	_ Stores                        = (*stores)(nil)
	_ repository.Repository[*Store] = (*stores)(nil)
)

func NewStoresRepository(db bun.IDB) Stores {
	repo := repository.NewRepository[*Store](db, repository.ModelHandlers[*Store]{
		NewRecord: func() *Store { return &Store{} },
		GetID: func(s *Store) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Store, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "owner_id"
		},
	})
	return &stores{Repository: repo, db: db}
}

func (r *stores) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Store, error) {
	return r.GetByIDTx(ctx, r.db, id, criteria...)
}

func (r *stores) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*Store, error) {
	store, err := r.Repository.GetByIDTx(ctx, tx, id, criteria...)
	if err != nil {
		return nil, recordNotFound(err, "stores", map[string]any{"id": id})
	}
	return store, nil
}

func (r *stores) ListByOwner(ctx context.Context, ownerID string) ([]*Store, error) {
	return r.ListByOwnerTx(ctx, r.db, ownerID)
}

func (r *stores) ListByOwnerTx(ctx context.Context, tx bun.IDB, ownerID string) ([]*Store, error) {
	records, _, err := r.ListTx(ctx, tx,
		repository.SelectBy("owner_id", "=", ownerID),
		repository.SelectOrderAsc("created_at"),
		unpaged(),
	)
	return records, err
}

func (r *stores) Update(ctx context.Context, store *Store, criteria ...repository.UpdateCriteria) (*Store, error) {
	return r.UpdateTx(ctx, r.db, store, criteria...)
}

// UpdateTx writes the profile columns, zero values included.
func (r *stores) UpdateTx(ctx context.Context, tx bun.IDB, store *Store, criteria ...repository.UpdateCriteria) (*Store, error) {
	q := tx.NewUpdate().
		Model(store).
		Column(storeProfileColumns...).
		WherePK()
	for _, c := range criteria {
		q.Apply(c)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		return nil, recordNotFound(err, "stores", map[string]any{"id": store.ID.String()})
	}
	return r.GetByIDTx(ctx, tx, store.ID.String())
}
