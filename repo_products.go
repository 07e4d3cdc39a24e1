package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Products interface {
	repository.Repository[*Product]

	GetInStore(ctx context.Context, storeID, id uuid.UUID) (*Product, error)
	GetInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) (*Product, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Product, error)
	ListByStoreTx(ctx context.Context, tx bun.IDB, storeID uuid.UUID) ([]*Product, error)
	CountByStore(ctx context.Context, storeID uuid.UUID) (int, error)
	DeleteInStore(ctx context.Context, storeID, id uuid.UUID) error
	DeleteInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) error
}

type products struct {
	repository.Repository[*Product]
	db bun.IDB
}

var (
	_ Products                        = (*products)(nil)
	_ repository.Repository[*Product] = (*products)(nil)
)

func NewProductsRepository(db bun.IDB) Products {
	repo := repository.NewRepository[*Product](db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})
	return &products{Repository: repo, db: db}
}

func (r *products) GetInStore(ctx context.Context, storeID, id uuid.UUID) (*Product, error) {
	return r.GetInStoreTx(ctx, r.db, storeID, id)
}

func (r *products) GetInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) (*Product, error) {
	product, err := r.GetByIDTx(ctx, tx, id.String(), byStore(storeID))
	if err != nil {
		return nil, recordNotFound(err, "products", map[string]any{
			"id":       id.String(),
			"store_id": storeID.String(),
		})
	}
	return product, nil
}

// ListByStore returns the newest products first.
func (r *products) ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Product, error) {
	return r.ListByStoreTx(ctx, r.db, storeID)
}

func (r *products) ListByStoreTx(ctx context.Context, tx bun.IDB, storeID uuid.UUID) ([]*Product, error) {
	records, _, err := r.ListTx(ctx, tx,
		byStore(storeID),
		repository.SelectOrderDesc("created_at"),
		unpaged(),
	)
	return records, err
}

func (r *products) CountByStore(ctx context.Context, storeID uuid.UUID) (int, error) {
	_, total, err := r.List(ctx, byStore(storeID), repository.Paginate(1, 0))
	return total, err
}

func (r *products) DeleteInStore(ctx context.Context, storeID, id uuid.UUID) error {
	return r.DeleteInStoreTx(ctx, r.db, storeID, id)
}

func (r *products) DeleteInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) error {
	product, err := r.GetInStoreTx(ctx, tx, storeID, id)
	if err != nil {
		return err
	}
	return r.DeleteTx(ctx, tx, product)
}

func (r *products) Update(ctx context.Context, product *Product, criteria ...repository.UpdateCriteria) (*Product, error) {
	return r.UpdateTx(ctx, r.db, product, criteria...)
}

func (r *products) UpdateTx(ctx context.Context, tx bun.IDB, product *Product, criteria ...repository.UpdateCriteria) (*Product, error) {
	q := tx.NewUpdate().
		Model(product).
		Column("name", "description", "price", "image_urls", "updated_at").
		WherePK().
		Where("?TableAlias.store_id = ?", product.StoreID)
	for _, c := range criteria {
		q.Apply(c)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		return nil, recordNotFound(err, "products", map[string]any{"id": product.ID.String()})
	}
	return r.GetInStoreTx(ctx, tx, product.StoreID, product.ID)
}
