package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Activities is append-only: there is no update or delete.
type Activities interface {
	Append(ctx context.Context, record *ActivityRecord) (*ActivityRecord, error)
	AppendTx(ctx context.Context, tx bun.IDB, record *ActivityRecord) (*ActivityRecord, error)
	Recent(ctx context.Context, storeID uuid.UUID, limit int) ([]*ActivityRecord, error)
	RecentTx(ctx context.Context, tx bun.IDB, storeID uuid.UUID, limit int) ([]*ActivityRecord, error)
	CountByStore(ctx context.Context, storeID uuid.UUID) (int, error)
}

type activities struct {
	records repository.Repository[*ActivityRecord]
	db      bun.IDB
}

func NewActivitiesRepository(db bun.IDB) Activities {
	records := repository.NewRepository[*ActivityRecord](db, repository.ModelHandlers[*ActivityRecord]{
		NewRecord: func() *ActivityRecord { return &ActivityRecord{} },
		GetID: func(a *ActivityRecord) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *ActivityRecord, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "store_id"
		},
	})
	return &activities{records: records, db: db}
}

func (r *activities) Append(ctx context.Context, record *ActivityRecord) (*ActivityRecord, error) {
	return r.AppendTx(ctx, r.db, record)
}

// AppendTx assigns an id and timestamp when the record has none.
func (r *activities) AppendTx(ctx context.Context, tx bun.IDB, record *ActivityRecord) (*ActivityRecord, error) {
	return r.records.CreateTx(ctx, tx, record)
}

// Recent returns the newest records first. A limit <= 0 returns all of them.
func (r *activities) Recent(ctx context.Context, storeID uuid.UUID, limit int) ([]*ActivityRecord, error) {
	return r.RecentTx(ctx, r.db, storeID, limit)
}

func (r *activities) RecentTx(ctx context.Context, tx bun.IDB, storeID uuid.UUID, limit int) ([]*ActivityRecord, error) {
	if limit < 0 {
		limit = 0
	}
	records, _, err := r.records.ListTx(ctx, tx,
		byStore(storeID),
		repository.SelectOrderDesc("created_at"),
		repository.Paginate(limit, 0),
	)
	return records, err
}

func (r *activities) CountByStore(ctx context.Context, storeID uuid.UUID) (int, error) {
	_, total, err := r.records.List(ctx, byStore(storeID), repository.Paginate(1, 0))
	return total, err
}
