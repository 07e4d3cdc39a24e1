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

// UserProfile holds the attributes of a new store user.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate will validate the payload
func (p UserProfile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&p.Email, validation.Required, validation.Length(6, 100), EmailRule),
	)
}

// UserPatch holds the fields to change on a membership. Nil fields are kept.
type UserPatch struct {
	Name  *string         `json:"name,omitempty"`
	Email *string         `json:"email,omitempty"`
	Role  *MembershipRole `json:"role,omitempty"`
}

// Validate will validate the payload
func (p UserPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(2, 120)),
		validation.Field(&p.Email, validation.NilOrNotEmpty, validation.Length(6, 100), EmailRule),
		validation.Field(&p.Role, validation.NilOrNotEmpty, validation.In(assignableRoles...)),
	)
}

// ProvisionedUser is the outcome of CreateUser. OneTimePassword must be
// delivered to the user out of band.
type ProvisionedUser struct {
	Identity        *Identity
	Membership      *Membership
	OneTimePassword string
	Activity        *ActivityRecord
}

// UserProvisioningSaga manages the users of the acting identity's store.
type UserProvisioningSaga struct {
	resolver   *StoreResolver
	identities IdentityAdmin
	repo       RepositoryManager
	activities ActivityRecorder
	opts       sagaOptions
}

// NewUserProvisioningSaga returns a saga that manages the users of the store
// owned by the identity sessions resolves.
func NewUserProvisioningSaga(sessions ActingIdentityProvider, identities IdentityAdmin, repo RepositoryManager, activities ActivityRecorder, opts ...SagaOption) *UserProvisioningSaga {
	return &UserProvisioningSaga{
		resolver:   NewStoreResolver(sessions, repo.Stores()),
		identities: identities,
		repo:       repo,
		activities: activities,
		opts:       applySagaOptions(opts),
	}
}

// CreateUser creates a backing identity with a one-time credential and the
// store membership. If the membership cannot be created the identity is
// deleted again.
func (s *UserProvisioningSaga) CreateUser(ctx context.Context, profile UserProfile, role MembershipRole) (*ProvisionedUser, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))

	if err := profile.Validate(); err != nil {
		return nil, NewValidationError(err, validationFields(err))
	}
	if err := validation.Validate(role, validation.Required, validation.In(assignableRoles...)); err != nil {
		return nil, NewValidationError(err, map[string]string{"role": err.Error()})
	}

	acting, store, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	password, err := s.opts.password()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not generate credential")
	}

	out := &ProvisionedUser{OneTimePassword: password}

	saga := NewSaga("store.user.create", s.opts.stepTimeout, s.opts.logger).
		Step("create_identity",
			func(ctx context.Context) error {
				identity, err := s.identities.CreateIdentity(ctx, profile.Email, password, map[string]any{
					"role":     role,
					"store_id": store.ID.String(),
					"name":     profile.Name,
				})
				if err != nil {
					return err
				}
				out.Identity = identity
				return nil
			},
			func(ctx context.Context) error {
				return s.identities.DeleteIdentity(ctx, out.Identity.ID)
			},
		).
		Step("create_membership",
			func(ctx context.Context) error {
				membership, err := s.repo.Memberships().Create(ctx, &Membership{
					StoreID:    store.ID,
					IdentityID: out.Identity.ID,
					Name:       profile.Name,
					Email:      profile.Email,
					Role:       role,
				})
				if err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create membership")
				}
				out.Membership = membership
				return nil
			},
			nil,
		)

	if err := saga.Run(ctx); err != nil {
		return nil, err
	}

	out.Activity = s.record(ctx, store, acting, ActionCreate, fmt.Sprintf(descUserCreated, profile.Name))
	return out, nil
}

// UpdateUser applies patch to a membership of the acting store.
func (s *UserProvisioningSaga) UpdateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (*Membership, error) {
	if err := patch.Validate(); err != nil {
		return nil, NewValidationError(err, validationFields(err))
	}

	acting, store, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	membership, err := s.membership(ctx, store, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		membership.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		membership.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	if patch.Role != nil {
		membership.Role = *patch.Role
	}

	stepCtx, cancel := s.opts.step(ctx)
	updated, err := s.repo.Memberships().Update(stepCtx, membership)
	cancel()
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, NewNotFoundError(ErrUserNotFound, map[string]any{"id": id.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not update membership")
	}

	s.record(ctx, store, acting, ActionUpdate, fmt.Sprintf(descUserUpdated, updated.Name))
	return updated, nil
}

// DeleteUser removes a membership of the acting store and, best effort,
// its backing identity. The store owner cannot be removed.
func (s *UserProvisioningSaga) DeleteUser(ctx context.Context, id uuid.UUID) error {
	acting, store, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	membership, err := s.membership(ctx, store, id)
	if err != nil {
		return err
	}

	if membership.IdentityID == store.OwnerID || strings.EqualFold(membership.Email, acting.Email) {
		return NewValidationError(nil, map[string]string{"id": "the store owner cannot be removed"})
	}

	name := membership.Name

	stepCtx, cancel := s.opts.step(ctx)
	err = s.repo.Memberships().DeleteInStore(stepCtx, store.ID, membership.ID)
	cancel()
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return NewNotFoundError(ErrUserNotFound, map[string]any{"id": id.String()})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not delete membership")
	}

	s.deleteBackingIdentity(ctx, membership.Email)

	s.record(ctx, store, acting, ActionDelete, fmt.Sprintf(descUserDeleted, name))
	return nil
}

// ListUsers returns the memberships of the acting store ordered by name.
func (s *UserProvisioningSaga) ListUsers(ctx context.Context) ([]*Membership, error) {
	_, store, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Memberships().ListByStore(ctx, store.ID)
}

func (s *UserProvisioningSaga) membership(ctx context.Context, store *Store, id uuid.UUID) (*Membership, error) {
	ctx, cancel := s.opts.step(ctx)
	defer cancel()

	membership, err := s.repo.Memberships().GetInStore(ctx, store.ID, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, NewNotFoundError(ErrUserNotFound, map[string]any{
				"id":       id.String(),
				"store_id": store.ID.String(),
			})
		}
		return nil, err
	}
	return membership, nil
}

func (s *UserProvisioningSaga) deleteBackingIdentity(ctx context.Context, email string) {
	lookupCtx, cancel := s.opts.step(ctx)
	identity, err := s.identities.FindIdentityByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		if !IsNotFoundError(err) {
			s.opts.logger.Warn("lookup of identity %s for removed user failed: %v", email, err)
		}
		return
	}
	if identity == nil {
		return
	}
	deleteCtx, cancel := s.opts.step(ctx)
	defer cancel()
	if err := s.identities.DeleteIdentity(deleteCtx, identity.ID); err != nil {
		s.opts.logger.Warn("delete of identity %s for removed user failed: %v", identity.ID, err)
	}
}

func (s *UserProvisioningSaga) record(ctx context.Context, store *Store, acting *Identity, action ActionType, description string) *ActivityRecord {
	ctx, cancel := s.opts.step(ctx)
	defer cancel()

	actor := actorFor(acting)
	return appendActivity(ctx, s.activities, s.opts.logger, ActivityRecord{
		StoreID:      store.ID,
		ActorID:      actor.ID,
		ActorName:    actor.Name,
		ActionType:   action,
		ResourceType: ResourceUser,
		Description:  description,
	})
}
