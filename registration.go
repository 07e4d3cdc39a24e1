package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// RegisterStoreMessage is the store sign up payload.
type RegisterStoreMessage struct {
	StoreName   string  `json:"store_name"`
	OwnerName   string  `json:"owner_name"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Province    string  `json:"province"`
	StoreType   string  `json:"store_type"`
	Phone       string  `json:"phone"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (e RegisterStoreMessage) Type() string { return "store.register" }

// Validate will validate the payload
func (e RegisterStoreMessage) Validate(phoneRegion string) error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.StoreName, validation.Required, validation.Length(2, 120)),
		validation.Field(&e.OwnerName, validation.Required, validation.Length(2, 120)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), EmailRule),
		validation.Field(&e.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&e.Province, validation.Required),
		validation.Field(&e.StoreType, validation.Required),
		validation.Field(&e.Phone, validation.Required, validation.By(ValidatePhone(phoneRegion))),
		validation.Field(&e.Description, validation.Length(0, 1000)),
	)
}

// Registration is the outcome of a successful RegisterStore.
type Registration struct {
	Identity   *Identity
	Store      *Store
	Membership *Membership
	Activity   *ActivityRecord
}

// SagaOption configures the provisioning sagas.
type SagaOption func(*sagaOptions)

type sagaOptions struct {
	logger      Logger
	stepTimeout time.Duration
	region      BoundingRegion
	phoneRegion string
	password    func() (string, error)
}

func defaultSagaOptions() sagaOptions {
	return sagaOptions{
		logger:      defLogger{},
		stepTimeout: DefaultStepTimeout,
		region:      AngolaBounds,
		phoneRegion: DefaultPhoneRegion,
		password:    GenerateOneTimePassword,
	}
}

// step bounds a single backend or repository call by the step timeout.
func (o sagaOptions) step(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.stepTimeout)
}

func applySagaOptions(opts []SagaOption) sagaOptions {
	o := defaultSagaOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithSagaLogger sets the saga logger.
func WithSagaLogger(logger Logger) SagaOption {
	return func(o *sagaOptions) {
		o.logger = normalizeLogger(logger)
	}
}

// WithSagaStepTimeout bounds every saga step.
func WithSagaStepTimeout(d time.Duration) SagaOption {
	return func(o *sagaOptions) {
		if d > 0 {
			o.stepTimeout = d
		}
	}
}

// WithRegion sets the area registered stores must be located in.
func WithRegion(region BoundingRegion) SagaOption {
	return func(o *sagaOptions) {
		o.region = region
	}
}

// WithPhoneRegion sets the default region for phone parsing.
func WithPhoneRegion(region string) SagaOption {
	return func(o *sagaOptions) {
		if region != "" {
			o.phoneRegion = region
		}
	}
}

// WithPasswordGenerator sets the generator for one-time credentials.
func WithPasswordGenerator(fn func() (string, error)) SagaOption {
	return func(o *sagaOptions) {
		if fn != nil {
			o.password = fn
		}
	}
}

// RegistrationSaga creates an owner identity, its store, the admin
// membership and the audit record as one all-or-nothing operation.
type RegistrationSaga struct {
	identities IdentityAdmin
	repo       RepositoryManager
	activities ActivityRecorder
	opts       sagaOptions
}

// NewRegistrationSaga returns a saga that creates an owner identity, its
// store and the owner membership.
func NewRegistrationSaga(identities IdentityAdmin, repo RepositoryManager, activities ActivityRecorder, opts ...SagaOption) *RegistrationSaga {
	return &RegistrationSaga{
		identities: identities,
		repo:       repo,
		activities: activities,
		opts:       applySagaOptions(opts),
	}
}

// RegisterStore validates the payload and then runs the saga. Validation
// failures return a ValidationError before any side effect. A duplicate
// email returns a ConflictError. Failures after the identity exists return
// a SagaCompensationError wrapping the original cause.
func (h *RegistrationSaga) RegisterStore(ctx context.Context, msg RegisterStoreMessage) (*Registration, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during store registration",
		)
	default:
		return h.execute(ctx, msg)
	}
}

func (h *RegistrationSaga) execute(ctx context.Context, msg RegisterStoreMessage) (*Registration, error) {
	msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))
	msg.StoreName = strings.TrimSpace(msg.StoreName)
	msg.OwnerName = strings.TrimSpace(msg.OwnerName)
	if msg.OwnerName == "" {
		msg.OwnerName = msg.StoreName
	}

	if err := msg.Validate(h.opts.phoneRegion); err != nil {
		return nil, NewValidationError(err, validationFields(err))
	}

	if err := h.opts.region.Validate(msg.Latitude, msg.Longitude); err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(msg.Phone, h.opts.phoneRegion)
	if err != nil {
		return nil, NewValidationError(err, map[string]string{"phone": err.Error()})
	}

	out := &Registration{}

	saga := NewSaga("store.register", h.opts.stepTimeout, h.opts.logger).
		Step("create_identity",
			func(ctx context.Context) error {
				identity, err := h.identities.CreateIdentity(ctx, msg.Email, msg.Password, map[string]any{
					"role": RoleStoreOwner,
					"name": msg.OwnerName,
				})
				if err != nil {
					return err
				}
				out.Identity = identity
				return nil
			},
			func(ctx context.Context) error {
				return h.identities.DeleteIdentity(ctx, out.Identity.ID)
			},
		).
		Step("create_store",
			func(ctx context.Context) error {
				store, err := h.repo.Stores().Create(ctx, &Store{
					OwnerID:     out.Identity.ID,
					Name:        msg.StoreName,
					Email:       msg.Email,
					Province:    msg.Province,
					StoreType:   msg.StoreType,
					Phone:       phone,
					Description: msg.Description,
					Latitude:    msg.Latitude,
					Longitude:   msg.Longitude,
				})
				if err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create store")
				}
				out.Store = store
				return nil
			},
			func(ctx context.Context) error {
				return h.repo.Stores().Delete(ctx, out.Store)
			},
		).
		Step("create_admin_membership",
			func(ctx context.Context) error {
				membership, err := h.repo.Memberships().Create(ctx, &Membership{
					StoreID:    out.Store.ID,
					IdentityID: out.Identity.ID,
					Name:       msg.OwnerName,
					Email:      msg.Email,
					Role:       RoleAdmin,
				})
				if err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create admin membership")
				}
				out.Membership = membership
				return nil
			},
			func(ctx context.Context) error {
				return h.repo.Memberships().DeleteInStore(ctx, out.Store.ID, out.Membership.ID)
			},
		).
		Step("record_activity",
			func(ctx context.Context) error {
				record, err := h.activities.Append(ctx, ActivityRecord{
					StoreID:      out.Store.ID,
					ActorID:      out.Identity.ID,
					ActorName:    msg.OwnerName,
					ActionType:   ActionCreate,
					ResourceType: ResourceUser,
					Description:  DescStoreRegistered,
				})
				if err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record registration activity")
				}
				out.Activity = record
				return nil
			},
			nil,
		)

	if err := saga.Run(ctx); err != nil {
		return nil, err
	}

	h.opts.logger.Info("store %s registered for identity %s", out.Store.ID, out.Identity.ID)
	return out, nil
}
