package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActionType is the kind of mutation an ActivityRecord describes
type ActionType = string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// ResourceType is the kind of resource an ActivityRecord refers to
type ResourceType = string

const (
	ResourceProduct ResourceType = "product"
	ResourceUser    ResourceType = "user"
)

// Store is a tenant. OwnerID is set once at registration.
type Store struct {
	bun.BaseModel `bun:"table:stores,alias:st"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       string    `bun:"owner_id,notnull,unique" json:"owner_id,omitempty"`
	Name          string    `bun:"name,notnull" json:"name,omitempty"`
	Email         string    `bun:"email,notnull" json:"email,omitempty"`
	Province      string    `bun:"province,notnull" json:"province,omitempty"`
	StoreType     string    `bun:"store_type,notnull" json:"store_type,omitempty"`
	Phone         string    `bun:"phone" json:"phone,omitempty"`
	Description   string    `bun:"description" json:"description,omitempty"`
	Latitude      float64   `bun:"latitude" json:"latitude"`
	Longitude     float64   `bun:"longitude" json:"longitude"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Membership links a user to exactly one store with a role.
type Membership struct {
	bun.BaseModel `bun:"table:store_users,alias:su"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	StoreID       uuid.UUID      `bun:"store_id,notnull,type:uuid" json:"store_id,omitempty"`
	IdentityID    string         `bun:"identity_id,nullzero" json:"identity_id,omitempty"`
	Name          string         `bun:"name,notnull" json:"name,omitempty"`
	Email         string         `bun:"email,notnull" json:"email,omitempty"`
	Role          MembershipRole `bun:"role,notnull" json:"role,omitempty"`
	LastLoginAt   *time.Time     `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// ActivityRecord is an append-only audit entry.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activities,alias:act"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	StoreID       uuid.UUID    `bun:"store_id,notnull,type:uuid" json:"store_id,omitempty"`
	ActorID       string       `bun:"actor_id,notnull" json:"actor_id,omitempty"`
	ActorName     string       `bun:"actor_name,notnull" json:"actor_name,omitempty"`
	ActionType    ActionType   `bun:"action_type,notnull" json:"action_type,omitempty"`
	ResourceType  ResourceType `bun:"resource_type,notnull" json:"resource_type,omitempty"`
	Description   string       `bun:"description,notnull" json:"description,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// Product belongs to one store.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	StoreID       uuid.UUID `bun:"store_id,notnull,type:uuid" json:"store_id,omitempty"`
	CreatedBy     string    `bun:"created_by" json:"created_by,omitempty"`
	Name          string    `bun:"name,notnull" json:"name,omitempty"`
	Description   string    `bun:"description" json:"description,omitempty"`
	Price         float64   `bun:"price,notnull" json:"price"`
	ImageURLs     []string  `bun:"image_urls" json:"image_urls,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

var (
	_ bun.BeforeAppendModelHook = (*Store)(nil)
	_ bun.BeforeAppendModelHook = (*Membership)(nil)
	_ bun.BeforeAppendModelHook = (*Product)(nil)
	_ bun.BeforeAppendModelHook = (*ActivityRecord)(nil)
)

func (s *Store) BeforeAppendModel(_ context.Context, query bun.Query) error {
	stampTimestamps(query, &s.CreatedAt, &s.UpdatedAt)
	return nil
}

func (m *Membership) BeforeAppendModel(_ context.Context, query bun.Query) error {
	stampTimestamps(query, &m.CreatedAt, &m.UpdatedAt)
	return nil
}

func (p *Product) BeforeAppendModel(_ context.Context, query bun.Query) error {
	stampTimestamps(query, &p.CreatedAt, &p.UpdatedAt)
	return nil
}

func (a *ActivityRecord) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func stampTimestamps(query bun.Query, createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if createdAt.IsZero() {
			*createdAt = now
		}
		*updatedAt = now
	case *bun.UpdateQuery:
		*updatedAt = now
	}
}

// Actor identifies who performed a mutation.
type Actor struct {
	ID   string
	Name string
}

// ActorFromIdentity builds an Actor using the identity email as display name.
func ActorFromIdentity(identity *Identity) Actor {
	if identity == nil {
		return Actor{}
	}
	return Actor{ID: identity.ID, Name: identity.Email}
}
