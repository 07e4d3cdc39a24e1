package auth

import (
	"context"
)

// StoreResolver maps the acting identity to the store it owns.
type StoreResolver struct {
	sessions ActingIdentityProvider
	stores   Stores
}

// NewStoreResolver returns a resolver that maps the acting identity to the
// store it owns.
func NewStoreResolver(sessions ActingIdentityProvider, stores Stores) *StoreResolver {
	return &StoreResolver{sessions: sessions, stores: stores}
}

// Resolve requires an authenticated identity owning exactly one store.
func (r *StoreResolver) Resolve(ctx context.Context) (*Identity, *Store, error) {
	identity, err := r.sessions.ActingIdentity(ctx)
	if err != nil {
		return nil, nil, err
	}

	owned, err := r.stores.ListByOwner(ctx, identity.ID)
	if err != nil {
		return nil, nil, err
	}

	if len(owned) != 1 {
		return nil, nil, NewNotFoundError(ErrStoreNotFound, map[string]any{
			"owner_id": identity.ID,
			"matches":  len(owned),
		})
	}

	return identity, owned[0], nil
}

func actorFor(identity *Identity) Actor {
	actor := ActorFromIdentity(identity)
	if identity != nil {
		if name, ok := identity.Metadata["name"].(string); ok && name != "" {
			actor.Name = name
		}
	}
	return actor
}
