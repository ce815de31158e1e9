package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
)

// step is one action of a lifecycle operation paired with the action that
// undoes it. compensate may be nil for irreversible steps.
type step struct {
	name       string
	action     func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// CompensationError is returned when a step failed and undoing the completed
// steps failed as well. It unwraps to the step failure.
type CompensationError struct {
	Step         string
	Err          error
	Compensation error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("%v (compensation after %s failed: %v)", e.Err, e.Step, e.Compensation)
}

func (e *CompensationError) Unwrap() error { return e.Err }

// saga runs steps in order. With compensate set, a failing step triggers the
// compensations of the completed steps in reverse order.
type saga struct {
	operation  string
	steps      []step
	compensate bool
	logger     *slog.Logger
	recorder   Recorder
}

func (s *saga) add(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, step{name: name, action: action, compensate: compensate})
}

func (s *saga) run(ctx context.Context) error {
	done := make([]step, 0, len(s.steps))
	for _, st := range s.steps {
		s.logger.Debug("lifecycle step", "operation", s.operation, "step", st.name)
		if err := st.action(ctx); err != nil {
			s.logger.Error("lifecycle step failed", "operation", s.operation, "step", st.name, "error", err)
			if !s.compensate || len(done) == 0 {
				return err
			}
			if cerr := s.rollback(ctx, done); cerr != nil {
				return &CompensationError{Step: st.name, Err: err, Compensation: cerr}
			}
			return err
		}
		done = append(done, st)
	}
	return nil
}

// rollback undoes done in reverse order. It keeps going past failures so that
// as much as possible is undone. The caller's cancellation does not apply.
func (s *saga) rollback(ctx context.Context, done []step) error {
	ctx = context.WithoutCancel(ctx)

	var result *multierror.Error
	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.compensate == nil {
			continue
		}
		if err := st.compensate(ctx); err != nil {
			s.logger.Error("compensation failed", "operation", s.operation, "step", st.name, "error", err)
			s.recorder.ObserveCompensation(s.operation, st.name, OutcomeFailure)
			result = multierror.Append(result, fmt.Errorf("undo %s: %w", st.name, err))
			continue
		}
		s.logger.Info("compensated", "operation", s.operation, "step", st.name)
		s.recorder.ObserveCompensation(s.operation, st.name, OutcomeSuccess)
	}
	return result.ErrorOrNil()
}
