package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Activity descriptions written by the provisioning flows.
const (
	DescStoreRegistered = "Loja criada e administrador configurado"
	DescStoreUpdated    = "Informações da loja atualizadas"
	descUserCreated     = "Usuário \"%s\" foi criado"
	descUserUpdated     = "Usuário \"%s\" foi atualizado"
	descUserDeleted     = "Usuário \"%s\" foi removido"
	descProductCreated  = "Produto \"%s\" foi criado"
	descProductUpdated  = "Produto \"%s\" foi atualizado"
	descProductDeleted  = "Produto \"%s\" foi removido"
)

// ActivityRecorder appends audit records. Records are never mutated or removed.
type ActivityRecorder interface {
	Append(ctx context.Context, record ActivityRecord) (*ActivityRecord, error)
}

// ActivitySink consumes stored activity records for fan-out purposes.
type ActivitySink interface {
	Record(ctx context.Context, record ActivityRecord) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, record ActivityRecord) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, record ActivityRecord) error {
	if f == nil {
		return nil
	}
	return f(ctx, record)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityRecord) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// ActivityRecorderOption configures the default recorder.
type ActivityRecorderOption func(*activityRecorder)

// WithActivitySink adds a sink notified after each successful append.
func WithActivitySink(sink ActivitySink) ActivityRecorderOption {
	return func(r *activityRecorder) {
		r.sinks = append(r.sinks, normalizeActivitySink(sink))
	}
}

// WithActivityClock sets the clock used to stamp records.
func WithActivityClock(clock clockwork.Clock) ActivityRecorderOption {
	return func(r *activityRecorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithActivityLogger sets the recorder logger.
func WithActivityLogger(logger Logger) ActivityRecorderOption {
	return func(r *activityRecorder) {
		r.logger = normalizeLogger(logger)
	}
}

type activityRecorder struct {
	repo   Activities
	sinks  []ActivitySink
	clock  clockwork.Clock
	logger Logger
}

// NewActivityRecorder returns a recorder persisting to repo.
func NewActivityRecorder(repo Activities, opts ...ActivityRecorderOption) ActivityRecorder {
	r := &activityRecorder{
		repo:   repo,
		clock:  clockwork.NewRealClock(),
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Append assigns the id and timestamp, persists the record and then
// forwards it to the sinks. Sink failures are logged only.
func (r *activityRecorder) Append(ctx context.Context, record ActivityRecord) (*ActivityRecord, error) {
	if err := validateActivity(record); err != nil {
		return nil, err
	}

	record.ID = uuid.New()
	record.CreatedAt = r.clock.Now().UTC()

	stored, err := r.repo.Append(ctx, &record)
	if err != nil {
		return nil, err
	}

	for _, sink := range r.sinks {
		if err := sink.Record(ctx, *stored); err != nil {
			r.logger.Warn("activity sink failed for record %s: %v", stored.ID, err)
		}
	}

	return stored, nil
}

func validateActivity(record ActivityRecord) error {
	err := validation.ValidateStruct(&record,
		validation.Field(&record.StoreID, validation.By(requireUUID)),
		validation.Field(&record.ActorID, validation.Required),
		validation.Field(&record.ActionType, validation.Required, validation.In(ActionCreate, ActionUpdate, ActionDelete)),
		validation.Field(&record.ResourceType, validation.Required, validation.In(ResourceProduct, ResourceUser)),
		validation.Field(&record.Description, validation.Required),
	)
	if err != nil {
		return NewValidationError(err, validationFields(err))
	}
	return nil
}

// appendActivity runs after a committed mutation. A failure is logged and
// does not undo the mutation.
func appendActivity(ctx context.Context, recorder ActivityRecorder, logger Logger, record ActivityRecord) *ActivityRecord {
	stored, err := recorder.Append(ctx, record)
	if err != nil {
		logger.Error("activity append failed for store %s (%s %s): %v",
			record.StoreID, record.ActionType, record.ResourceType, err)
		return nil
	}
	return stored
}
