package auth

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidationFailed     = "VALIDATION_FAILED"
	TextCodeOutsideRegion        = "LOCATION_OUTSIDE_REGION"
	TextCodeStoreNotFound        = "STORE_NOT_FOUND"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	TextCodeIdentityNotFound     = "IDENTITY_NOT_FOUND"
	TextCodeEmailExists          = "EMAIL_ALREADY_EXISTS"
	TextCodeSessionAlreadyActive = "SESSION_ALREADY_ACTIVE"
	TextCodeManagerClosed        = "SESSION_MANAGER_CLOSED"
	TextCodeSagaCompensated      = "SAGA_COMPENSATED"
)

// ErrValidation is returned when a payload fails validation before any side effect.
var ErrValidation = goerrors.New("validation failed", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrOutsideRegion is returned when a coordinate is outside the supported region.
var ErrOutsideRegion = goerrors.New("location is outside the supported region", goerrors.CategoryValidation).
	WithTextCode(TextCodeOutsideRegion).
	WithCode(goerrors.CodeBadRequest)

// ErrStoreNotFound is returned when the acting identity owns no store.
var ErrStoreNotFound = goerrors.New("store not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeStoreNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUserNotFound is returned when a membership does not exist in the acting store.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrProductNotFound is returned when a product does not exist in the acting store.
var ErrProductNotFound = goerrors.New("product not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeProductNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrEmailAlreadyExists is returned when an identity with the email already exists.
var ErrEmailAlreadyExists = goerrors.New("email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(goerrors.CodeConflict)

// ErrSessionAlreadyActive is returned by SignIn while a session is current.
var ErrSessionAlreadyActive = goerrors.New("a session is already active, sign out first", goerrors.CategoryConflict).
	WithTextCode(TextCodeSessionAlreadyActive).
	WithCode(goerrors.CodeConflict)

// ErrManagerClosed is returned when a torn down SessionManager is used.
var ErrManagerClosed = goerrors.New("session manager has been torn down", goerrors.CategoryOperation).
	WithTextCode(TextCodeManagerClosed)

// ErrNoEmptyString is returned when hashing an empty credential.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a credential does not match its hash.
var ErrMismatchedHashAndPassword = goerrors.New(SignatureInvalidCredentials, goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// NewValidationError builds a ValidationError carrying per-field messages.
func NewValidationError(err error, fields map[string]string) error {
	meta := map[string]any{}
	for k, v := range fields {
		meta[k] = v
	}
	clone := ErrValidation.Clone()
	if err != nil {
		clone.Source = err
	}
	return clone.WithMetadata(meta)
}

// NewNotFoundError clones the given not found sentinel attaching metadata.
func NewNotFoundError(base *goerrors.Error, meta map[string]any) error {
	if base == nil {
		base = ErrUserNotFound
	}
	return base.Clone().WithMetadata(meta)
}

// NewConflictError wraps err as a ConflictError for the given email.
func NewConflictError(err error, email string) error {
	clone := ErrEmailAlreadyExists.Clone()
	if err != nil {
		clone.Source = err
	}
	return clone.WithMetadata(map[string]any{"email": email})
}

// SagaCompensationError reports a saga step failure after compensation ran.
// Cause is always the original step error.
type SagaCompensationError struct {
	Saga          string
	Step          string
	Cause         error
	Compensations []error
}

func (e *SagaCompensationError) Error() string {
	msg := fmt.Sprintf("%s: step %q failed: %v", e.Saga, e.Step, e.Cause)
	if len(e.Compensations) > 0 {
		parts := make([]string, 0, len(e.Compensations))
		for _, c := range e.Compensations {
			parts = append(parts, c.Error())
		}
		msg += fmt.Sprintf(" (compensation errors: %s)", strings.Join(parts, "; "))
	}
	return msg
}

func (e *SagaCompensationError) Unwrap() error {
	return e.Cause
}

// Compensated reports whether every compensation succeeded.
func (e *SagaCompensationError) Compensated() bool {
	return len(e.Compensations) == 0
}

func hasCategory(err error, category goerrors.Category) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == category
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	return hasCategory(err, goerrors.CategoryValidation)
}

// IsNotFoundError reports whether err is a NotFoundError.
func IsNotFoundError(err error) bool {
	return hasCategory(err, goerrors.CategoryNotFound)
}

// IsConflictError reports whether err is a ConflictError.
func IsConflictError(err error) bool {
	return hasCategory(err, goerrors.CategoryConflict)
}

// IsAuthError reports whether err is a translated AuthError.
func IsAuthError(err error) bool {
	return hasCategory(err, goerrors.CategoryAuth)
}

// IsSagaCompensationError reports whether err came out of a compensated saga.
func IsSagaCompensationError(err error) bool {
	var sagaErr *SagaCompensationError
	return errors.As(err, &sagaErr)
}

// TextCode returns the go-errors text code of err, if any.
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
