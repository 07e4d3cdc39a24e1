package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SagaAction performs or undoes one step of a saga.
type SagaAction func(ctx context.Context) error

// SagaStep is a named action with an optional compensating action.
type SagaStep struct {
	Name       string
	Action     SagaAction
	Compensate SagaAction
}

// Saga runs steps strictly in order. When a step fails the compensations of
// the already completed steps run in reverse order and the original failure
// is returned inside a SagaCompensationError. A failing first step is
// returned unchanged since nothing needs undoing.
type Saga struct {
	name        string
	steps       []SagaStep
	stepTimeout time.Duration
	logger      Logger
}

// NewSaga creates an empty saga.
func NewSaga(name string, stepTimeout time.Duration, logger Logger) *Saga {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Saga{
		name:        name,
		stepTimeout: stepTimeout,
		logger:      normalizeLogger(logger),
	}
}

// Step appends a step. compensate may be nil.
func (s *Saga) Step(name string, action, compensate SagaAction) *Saga {
	s.steps = append(s.steps, SagaStep{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
	return s
}

// Run executes the saga.
func (s *Saga) Run(ctx context.Context) error {
	completed := make([]SagaStep, 0, len(s.steps))

	for i, step := range s.steps {
		err := s.runStep(ctx, step)
		if err == nil {
			completed = append(completed, step)
			continue
		}

		s.logger.Warn("saga %s: step %q failed: %v", s.name, step.Name, err)

		if i == 0 {
			return err
		}

		return &SagaCompensationError{
			Saga:          s.name,
			Step:          step.Name,
			Cause:         err,
			Compensations: s.compensate(ctx, completed),
		}
	}

	return nil
}

func (s *Saga) runStep(ctx context.Context, step SagaStep) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled before saga step").
			WithMetadata(map[string]any{"saga": s.name, "step": step.Name})
	default:
	}

	stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	err := step.Action(stepCtx)
	if err == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		err = goerrors.Wrap(stepCtx.Err(), goerrors.CategoryOperation, "saga step timed out").
			WithMetadata(map[string]any{"saga": s.name, "step": step.Name})
	}
	return err
}

// compensate undoes completed steps on a context detached from the caller's
// cancellation so cleanup still runs after a timeout.
func (s *Saga) compensate(ctx context.Context, completed []SagaStep) []error {
	base := context.WithoutCancel(ctx)
	var errs []error

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		stepCtx, cancel := context.WithTimeout(base, s.stepTimeout)
		err := step.Compensate(stepCtx)
		cancel()

		if err != nil {
			s.logger.Error("saga %s: compensation of %q failed: %v", s.name, step.Name, err)
			errs = append(errs, goerrors.Wrap(err, goerrors.CategoryInternal, "compensation failed").
				WithMetadata(map[string]any{"saga": s.name, "step": step.Name}))
			continue
		}
		s.logger.Debug("saga %s: compensated %q", s.name, step.Name)
	}

	return errs
}
