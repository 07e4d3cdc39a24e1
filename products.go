package auth

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// ProductMessage holds the editable product attributes.
type ProductMessage struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	ImageURLs   []string `json:"image_urls"`
}

func (e ProductMessage) Type() string { return "product.save" }

// Validate will validate the payload
func (e ProductMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Description, validation.Length(0, 2000)),
		validation.Field(&e.Price, validation.Min(0.0)),
	)
}

// ProductCatalog manages the products of the acting identity's store. Every
// mutation is followed by an activity record.
type ProductCatalog struct {
	resolver   *StoreResolver
	repo       RepositoryManager
	activities ActivityRecorder
	opts       sagaOptions
}

func NewProductCatalog(sessions ActingIdentityProvider, repo RepositoryManager, activities ActivityRecorder, opts ...SagaOption) *ProductCatalog {
	return &ProductCatalog{
		resolver:   NewStoreResolver(sessions, repo.Stores()),
		repo:       repo,
		activities: activities,
		opts:       applySagaOptions(opts),
	}
}

func (c *ProductCatalog) List(ctx context.Context) ([]*Product, error) {
	_, store, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return c.repo.Products().ListByStore(ctx, store.ID)
}

func (c *ProductCatalog) Create(ctx context.Context, msg ProductMessage) (*Product, error) {
	if err := msg.Validate(); err != nil {
		return nil, NewValidationError(err, validationFields(err))
	}

	acting, store, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	product, err := c.repo.Products().Create(ctx, &Product{
		StoreID:     store.ID,
		CreatedBy:   acting.ID,
		Name:        strings.TrimSpace(msg.Name),
		Description: msg.Description,
		Price:       msg.Price,
		ImageURLs:   msg.ImageURLs,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create product")
	}

	c.record(ctx, store, acting, ActionCreate, fmt.Sprintf(descProductCreated, product.Name))
	return product, nil
}

func (c *ProductCatalog) Update(ctx context.Context, id uuid.UUID, msg ProductMessage) (*Product, error) {
	if err := msg.Validate(); err != nil {
		return nil, NewValidationError(err, validationFields(err))
	}

	acting, store, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	product, err := c.product(ctx, store, id)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(msg.Name)
	product.Description = msg.Description
	product.Price = msg.Price
	product.ImageURLs = msg.ImageURLs

	updated, err := c.repo.Products().Update(ctx, product)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, NewNotFoundError(ErrProductNotFound, map[string]any{"id": id.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not update product")
	}

	c.record(ctx, store, acting, ActionUpdate, fmt.Sprintf(descProductUpdated, updated.Name))
	return updated, nil
}

// Delete removes a product, recording its name as it was before removal.
func (c *ProductCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	acting, store, err := c.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	product, err := c.product(ctx, store, id)
	if err != nil {
		return err
	}

	if err := c.repo.Products().DeleteInStore(ctx, store.ID, product.ID); err != nil {
		if repository.IsRecordNotFound(err) {
			return NewNotFoundError(ErrProductNotFound, map[string]any{"id": id.String()})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not delete product")
	}

	c.record(ctx, store, acting, ActionDelete, fmt.Sprintf(descProductDeleted, product.Name))
	return nil
}

func (c *ProductCatalog) product(ctx context.Context, store *Store, id uuid.UUID) (*Product, error) {
	product, err := c.repo.Products().GetInStore(ctx, store.ID, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, NewNotFoundError(ErrProductNotFound, map[string]any{
				"id":       id.String(),
				"store_id": store.ID.String(),
			})
		}
		return nil, err
	}
	return product, nil
}

func (c *ProductCatalog) record(ctx context.Context, store *Store, acting *Identity, action ActionType, description string) {
	ctx, cancel := c.opts.step(ctx)
	defer cancel()

	actor := actorFor(acting)
	appendActivity(ctx, c.activities, c.opts.logger, ActivityRecord{
		StoreID:      store.ID,
		ActorID:      actor.ID,
		ActorName:    actor.Name,
		ActionType:   action,
		ResourceType: ResourceProduct,
		Description:  description,
	})
}
