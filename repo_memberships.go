package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Memberships scopes every store query by store id.
type Memberships interface {
	repository.Repository[*Membership]

	GetInStore(ctx context.Context, storeID, id uuid.UUID) (*Membership, error)
	GetInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) (*Membership, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Membership, error)
	ListByStoreTx(ctx context.Context, tx bun.IDB, storeID uuid.UUID) ([]*Membership, error)
	CountByStore(ctx context.Context, storeID uuid.UUID) (int, error)
	DeleteInStore(ctx context.Context, storeID, id uuid.UUID) error
	DeleteInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) error

	TrackLogin(ctx context.Context, identityID string, at time.Time) error
	TrackLoginTx(ctx context.Context, tx bun.IDB, identityID string, at time.Time) error
}

type memberships struct {
	repository.Repository[*Membership]
	db bun.IDB
}

var (
	_ Memberships                        = (*memberships)(nil)
	_ repository.Repository[*Membership] = (*memberships)(nil)
)

func NewMembershipsRepository(db bun.IDB) Memberships {
	repo := repository.NewRepository[*Membership](db, repository.ModelHandlers[*Membership]{
		NewRecord: func() *Membership { return &Membership{} },
		GetID: func(m *Membership) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Membership, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
	return &memberships{Repository: repo, db: db}
}

func (r *memberships) GetInStore(ctx context.Context, storeID, id uuid.UUID) (*Membership, error) {
	return r.GetInStoreTx(ctx, r.db, storeID, id)
}

func (r *memberships) GetInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) (*Membership, error) {
	membership, err := r.GetByIDTx(ctx, tx, id.String(), byStore(storeID))
	if err != nil {
		return nil, recordNotFound(err, "store_users", map[string]any{
			"id":       id.String(),
			"store_id": storeID.String(),
		})
	}
	return membership, nil
}

func (r *memberships) ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Membership, error) {
	return r.ListByStoreTx(ctx, r.db, storeID)
}

func (r *memberships) ListByStoreTx(ctx context.Context, tx bun.IDB, storeID uuid.UUID) ([]*Membership, error) {
	records, _, err := r.ListTx(ctx, tx,
		byStore(storeID),
		repository.SelectOrderAsc("name"),
		unpaged(),
	)
	return records, err
}

func (r *memberships) CountByStore(ctx context.Context, storeID uuid.UUID) (int, error) {
	_, total, err := r.List(ctx, byStore(storeID), repository.Paginate(1, 0))
	return total, err
}

func (r *memberships) DeleteInStore(ctx context.Context, storeID, id uuid.UUID) error {
	return r.DeleteInStoreTx(ctx, r.db, storeID, id)
}

func (r *memberships) DeleteInStoreTx(ctx context.Context, tx bun.IDB, storeID, id uuid.UUID) error {
	membership, err := r.GetInStoreTx(ctx, tx, storeID, id)
	if err != nil {
		return err
	}
	return r.DeleteTx(ctx, tx, membership)
}

func (r *memberships) Update(ctx context.Context, membership *Membership, criteria ...repository.UpdateCriteria) (*Membership, error) {
	return r.UpdateTx(ctx, r.db, membership, criteria...)
}

// UpdateTx writes name, email and role within the membership's store.
func (r *memberships) UpdateTx(ctx context.Context, tx bun.IDB, membership *Membership, criteria ...repository.UpdateCriteria) (*Membership, error) {
	q := tx.NewUpdate().
		Model(membership).
		Column("name", "email", "role", "updated_at").
		WherePK().
		Where("?TableAlias.store_id = ?", membership.StoreID)
	for _, c := range criteria {
		q.Apply(c)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		return nil, recordNotFound(err, "store_users", map[string]any{"id": membership.ID.String()})
	}
	return r.GetInStoreTx(ctx, tx, membership.StoreID, membership.ID)
}

func (r *memberships) TrackLogin(ctx context.Context, identityID string, at time.Time) error {
	return r.TrackLoginTx(ctx, r.db, identityID, at)
}

// TrackLoginTx stamps every membership backed by identityID.
func (r *memberships) TrackLoginTx(ctx context.Context, tx bun.IDB, identityID string, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*Membership)(nil)).
		Set("last_login_at = ?", at.UTC()).
		Where("identity_id = ?", identityID).
		Exec(ctx)
	return err
}
