package auth

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RecentActivityLimit is the number of records shown on the dashboard.
const RecentActivityLimit = 10

// DashboardStats summarizes a store.
type DashboardStats struct {
	TotalProducts    int
	ActiveUsers      int
	RecentActivities []*ActivityRecord
}

// Dashboard aggregates read-only store statistics.
type Dashboard struct {
	resolver *StoreResolver
	repo     RepositoryManager
}

// NewDashboard returns a Dashboard scoped to the store of the acting identity.
func NewDashboard(sessions ActingIdentityProvider, repo RepositoryManager) *Dashboard {
	return &Dashboard{
		resolver: NewStoreResolver(sessions, repo.Stores()),
		repo:     repo,
	}
}

// Stats runs the three reads concurrently.
func (d *Dashboard) Stats(ctx context.Context) (*DashboardStats, error) {
	_, store, err := d.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := d.repo.Products().CountByStore(gctx, store.ID)
		stats.TotalProducts = n
		return err
	})

	g.Go(func() error {
		n, err := d.repo.Memberships().CountByStore(gctx, store.ID)
		stats.ActiveUsers = n
		return err
	})

	g.Go(func() error {
		records, err := d.repo.Activities().Recent(gctx, store.ID, RecentActivityLimit)
		stats.RecentActivities = records
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
