// Package sweep runs the periodic escalation and reminder passes over pending approvals.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultPageSize = 200

const (
	KindEscalation = "escalation"
	KindReminder   = "reminder"
)

var ErrScheduleRequired = errors.New("sweep schedule is required")

// Engine is the part of the approval engine the sweeps drive.
type Engine interface {
	CheckEscalation(ctx context.Context, approvalID string) (bool, error)
	SendReminder(ctx context.Context, approvalID string) (bool, error)
}

// Result summarizes one pass.
type Result struct {
	Kind    string
	Scanned int
	Acted   int
	Failed  int
}

// Sweeper pages through PENDING approval records and hands each one to the engine.
// Every engine call is its own unit of work, so a pass may overlap with decisions
// and with other passes.
type Sweeper struct {
	engine    Engine
	approvals persistence.ApprovalRepository
	logger    *slog.Logger
	tracer    trace.Tracer
	pageSize  int
	cron      *cron.Cron
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithPageSize sets how many records are loaded per page.
func WithPageSize(size int) Option {
	return func(s *Sweeper) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithTracer sets the tracer used for pass spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Sweeper) {
		s.tracer = tracer
	}
}

func NewSweeper(engine Engine, approvals persistence.ApprovalRepository, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		engine:    engine,
		approvals: approvals,
		logger:    logger.With("module", "sweeper"),
		tracer:    otelhelper.NoopTracer(),
		pageSize:  DefaultPageSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RunEscalationPass calls CheckEscalation for every PENDING record.
func (s *Sweeper) RunEscalationPass(ctx context.Context) (Result, error) {
	return s.pass(ctx, KindEscalation, s.engine.CheckEscalation)
}

// RunReminderPass calls SendReminder for every PENDING record.
func (s *Sweeper) RunReminderPass(ctx context.Context) (Result, error) {
	return s.pass(ctx, KindReminder, s.engine.SendReminder)
}

// RunOnce runs the escalation pass followed by the reminder pass.
func (s *Sweeper) RunOnce(ctx context.Context) ([]Result, error) {
	escalations, err := s.RunEscalationPass(ctx)
	if err != nil {
		return []Result{escalations}, err
	}

	reminders, err := s.RunReminderPass(ctx)

	return []Result{escalations, reminders}, err
}

func (s *Sweeper) pass(
	ctx context.Context,
	kind string,
	handle func(ctx context.Context, approvalID string) (bool, error),
) (Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "sweep."+kind,
		attribute.String(otelhelper.SweepKindKey, kind),
	)
	defer span.End()

	result := Result{Kind: kind}
	afterID := ""

	for {
		page, err := s.approvals.PendingApprovals(ctx, afterID, s.pageSize)
		if err != nil {
			otelhelper.SetError(span, err)

			return result, fmt.Errorf("failed to load pending approvals after %q: %w", afterID, err)
		}

		for _, record := range page {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			result.Scanned++

			acted, err := handle(ctx, record.ID)
			if err != nil {
				result.Failed++

				s.logger.ErrorContext(ctx, "sweep failed for approval",
					"kind", kind,
					"approval_id", record.ID,
					"document_id", record.DocumentID,
					"error", err,
				)

				continue
			}

			if acted {
				result.Acted++
			}
		}

		if len(page) < s.pageSize {
			break
		}

		afterID = lastID(page)
	}

	span.SetAttributes(
		attribute.Int("docflow.sweep.scanned", result.Scanned),
		attribute.Int("docflow.sweep.acted", result.Acted),
	)

	s.logger.InfoContext(ctx, "sweep pass finished",
		"kind", kind,
		"scanned", result.Scanned,
		"acted", result.Acted,
		"failed", result.Failed,
	)

	return result, nil
}

func lastID(page []*models.ApprovalRecord) string {
	return page[len(page)-1].ID
}

// ValidateSchedule checks a standard five field cron expression.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return ErrScheduleRequired
	}

	_, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

// Start schedules both passes on their cron expressions. An empty expression
// disables that pass. Overlapping runs of the same pass are skipped.
func (s *Sweeper) Start(ctx context.Context, escalationSchedule, reminderSchedule string) error {
	if escalationSchedule == "" && reminderSchedule == "" {
		return ErrScheduleRequired
	}

	logger := cronLogger{logger: s.logger}

	s.cron = cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	jobs := []struct {
		schedule string
		run      func(context.Context) (Result, error)
		kind     string
	}{
		{escalationSchedule, s.RunEscalationPass, KindEscalation},
		{reminderSchedule, s.RunReminderPass, KindReminder},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}

		if err := ValidateSchedule(job.schedule); err != nil {
			return fmt.Errorf("%s schedule: %w", job.kind, err)
		}

		id, err := s.cron.AddFunc(job.schedule, func() {
			if _, err := job.run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep pass aborted", "kind", job.kind, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s pass: %w", job.kind, err)
		}

		s.logger.InfoContext(ctx, "scheduled sweep pass", "kind", job.kind, "schedule", job.schedule, "entry_id", id)
	}

	s.cron.Start()

	return nil
}

// Stop stops scheduling and waits for running passes until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "stopping sweeper")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
