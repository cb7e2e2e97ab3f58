// package batch throttles and chunks bulk operations so external rate
// limits are respected and partial failure is survivable.
//
// Execution is sequential: the pause between groups exists to be polite to
// the external services, not for throughput.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
	"golang.org/x/time/rate"
)

// Unit is one schedulable piece of work, e.g. a single playlist's full
// create/update pipeline.
type Unit struct {
	Name string
	Work func(ctx context.Context) (models.OutcomeStatus, error)
}

// Scheduler partitions units into consecutive groups and runs them with an
// inter-group delay. A unit's failure is isolated: it is recorded as a
// failed outcome and its siblings proceed.
type Scheduler struct {
	Size  int           // max units per group
	Delay time.Duration // pause between groups (not after the last)

	// Sleep is the delay policy; it defaults to time.Sleep and is
	// injectable so tests run without timing flakiness.
	Sleep func(d time.Duration)

	// Limiter optionally rate-limits individual units on top of the
	// inter-group delay.
	Limiter *rate.Limiter

	Logger *log.Logger
}

// NewScheduler creates a Scheduler with the given group size and delay.
func NewScheduler(size int, delay time.Duration, logger *log.Logger) *Scheduler {
	if size <= 0 {
		size = 5
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Scheduler{
		Size:   size,
		Delay:  delay,
		Sleep:  time.Sleep,
		Logger: logger,
	}
}

// Run processes every unit and returns exactly one outcome per unit, in
// input order. Cancelling ctx stops scheduling; unprocessed units are marked
// skipped so the caller still gets a full accounting. A zero or negative
// Size falls back to the default group size.
func (s *Scheduler) Run(ctx context.Context, units []Unit) []models.Outcome {
	outcomes := make([]models.Outcome, len(units))
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	size := s.Size
	if size <= 0 {
		size = 5
	}
	if s.Logger == nil {
		s.Logger = shared.NewLogger(nil)
	}

	cancelled := false

	for i, unit := range units {
		if i > 0 && i%size == 0 && !cancelled {
			s.Logger.Info("batch boundary, pausing", "processed", i, "delay", s.Delay)
			sleep(s.Delay)
		}

		if !cancelled {
			select {
			case <-ctx.Done():
				cancelled = true
			default:
			}
		}

		if cancelled {
			outcomes[i] = models.Outcome{
				Unit:   unit.Name,
				Status: models.StatusSkipped,
				Err:    ctx.Err(),
			}
			continue
		}

		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				cancelled = true
				outcomes[i] = models.Outcome{Unit: unit.Name, Status: models.StatusSkipped, Err: err}
				continue
			}
		}

		outcomes[i] = s.runOne(ctx, unit)
	}

	return outcomes
}

// runOne executes a single unit, converting panics and errors into a failed
// outcome instead of aborting the batch.
func (s *Scheduler) runOne(ctx context.Context, unit Unit) (outcome models.Outcome) {
	outcome.Unit = unit.Name

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = models.StatusFailed
			outcome.Err = fmt.Errorf("unit panicked: %v", r)
			s.Logger.Error("work unit panicked", "unit", unit.Name, "panic", r)
		}
	}()

	status, err := unit.Work(ctx)
	outcome.Status = status
	outcome.Err = err

	if err != nil {
		outcome.Status = models.StatusFailed
		s.Logger.Warn("work unit failed", "unit", unit.Name, "err", err)
	}

	return outcome
}

// Summarize tallies outcomes by status for end-of-run reporting.
func Summarize(outcomes []models.Outcome) (succeeded, skipped, failed int) {
	for _, o := range outcomes {
		switch o.Status {
		case models.StatusSuccess:
			succeeded++
		case models.StatusSkipped:
			skipped++
		case models.StatusFailed:
			failed++
		}
	}
	return succeeded, skipped, failed
}
