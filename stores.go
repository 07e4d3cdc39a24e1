package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// StoreProfileMessage holds the editable store attributes.
type StoreProfileMessage struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Province    string  `json:"province"`
	StoreType   string  `json:"store_type"`
	Phone       string  `json:"phone"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (e StoreProfileMessage) Type() string { return "store.update" }

// Validate will validate the payload
func (e StoreProfileMessage) Validate(phoneRegion string) error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), EmailRule),
		validation.Field(&e.Province, validation.Required),
		validation.Field(&e.StoreType, validation.Required),
		validation.Field(&e.Phone, validation.Required, validation.By(ValidatePhone(phoneRegion))),
		validation.Field(&e.Description, validation.Length(0, 1000)),
	)
}

// StoreDirectory reads and edits the acting identity's store.
type StoreDirectory struct {
	resolver   *StoreResolver
	repo       RepositoryManager
	activities ActivityRecorder
	opts       sagaOptions
}

func NewStoreDirectory(sessions ActingIdentityProvider, repo RepositoryManager, activities ActivityRecorder, opts ...SagaOption) *StoreDirectory {
	return &StoreDirectory{
		resolver:   NewStoreResolver(sessions, repo.Stores()),
		repo:       repo,
		activities: activities,
		opts:       applySagaOptions(opts),
	}
}

// CurrentStore returns the store owned by the acting identity.
func (d *StoreDirectory) CurrentStore(ctx context.Context) (*Store, error) {
	_, store, err := d.resolver.Resolve(ctx)
	return store, err
}

// UpdateStore edits the store profile. The owner and location region rules
// of registration still apply.
func (d *StoreDirectory) UpdateStore(ctx context.Context, msg StoreProfileMessage) (*Store, error) {
	msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))
	if err := msg.Validate(d.opts.phoneRegion); err != nil {
		return nil, NewValidationError(err, validationFields(err))
	}
	if err := d.opts.region.Validate(msg.Latitude, msg.Longitude); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(msg.Phone, d.opts.phoneRegion)
	if err != nil {
		return nil, NewValidationError(err, map[string]string{"phone": err.Error()})
	}

	acting, store, err := d.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	store.Name = strings.TrimSpace(msg.Name)
	store.Email = msg.Email
	store.Province = msg.Province
	store.StoreType = msg.StoreType
	store.Phone = phone
	store.Description = msg.Description
	store.Latitude = msg.Latitude
	store.Longitude = msg.Longitude

	updated, err := d.repo.Stores().Update(ctx, store)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, NewNotFoundError(ErrStoreNotFound, map[string]any{"id": store.ID.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not update store")
	}

	recordCtx, cancel := d.opts.step(ctx)
	defer cancel()

	actor := actorFor(acting)
	appendActivity(recordCtx, d.activities, d.opts.logger, ActivityRecord{
		StoreID:      updated.ID,
		ActorID:      actor.ID,
		ActorName:    actor.Name,
		ActionType:   ActionUpdate,
		ResourceType: ResourceUser,
		Description:  DescStoreUpdated,
	})

	return updated, nil
}
