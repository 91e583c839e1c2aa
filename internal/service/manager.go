// Package service runs the lifecycle rules against the store. Every
// mutating operation loads what it needs, asks package lifecycle for the
// new state and writes the result in one transaction.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/storage"
	"scrumboard/internal/telemetry"
)

const scopeName = "scrumboard/service"

// Manager exposes one method per board operation.
type Manager struct {
	store    storage.Store
	logger   *slog.Logger
	now      func() time.Time
	calendar lifecycle.Calendar
	planner  lifecycle.Planner
	ledger   lifecycle.Ledger

	tracer trace.Tracer
	ops    metric.Int64Counter
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCalendar sets the calendar that decides what "today" is.
func WithCalendar(c lifecycle.Calendar) Option {
	return func(m *Manager) { m.calendar = c }
}

// New builds a Manager over store.
func New(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		calendar: lifecycle.MustCalendar(lifecycle.DefaultTimezone),
		tracer:   telemetry.Tracer(scopeName),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.planner = lifecycle.Planner{Calendar: m.calendar}
	m.ledger = lifecycle.Ledger{Calendar: m.calendar}
	m.ops, _ = telemetry.Meter(scopeName).Int64Counter("scrumboard.operations",
		metric.WithDescription("Board operations by name and outcome"),
	)
	return m
}

func (m *Manager) today() time.Time {
	return m.calendar.Today(m.now())
}

// observe wraps fn in a span and counts its outcome. Rule violations are
// logged at debug level, anything else as an error.
func (m *Manager) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := m.tracer.Start(ctx, "service."+op)
	defer span.End()

	err := fn(ctx)
	outcome := lifecycle.KindName(err)
	m.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if outcome == "internal" {
		m.logger.Error("operation failed", "op", op, "error", err)
	} else {
		m.logger.Debug("operation rejected", "op", op, "kind", outcome, "error", err)
	}
	return err
}

// tx runs fn inside one store transaction.
func (m *Manager) tx(ctx context.Context, op string, fn func(ctx context.Context, q storage.Queries) error) error {
	return m.observe(ctx, op, func(ctx context.Context) error {
		return m.store.RunInTx(ctx, func(q storage.Queries) error {
			return fn(ctx, q)
		})
	})
}

// read runs fn against the store outside a transaction.
func (m *Manager) read(ctx context.Context, op string, fn func(ctx context.Context, q storage.Queries) error) error {
	return m.observe(ctx, op, func(ctx context.Context) error {
		return fn(ctx, m.store)
	})
}

// actor resolves the authenticated person. Unknown ids are refused.
func actor(ctx context.Context, q storage.Queries, actorID int64) (models.Person, error) {
	p, err := q.GetPerson(ctx, actorID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return models.Person{}, lifecycle.Forbidden("unknown user")
	}
	return p, err
}

// rolesIn loads the actor and the project and computes the actor's roles.
func rolesIn(ctx context.Context, q storage.Queries, actorID, projectID int64) (lifecycle.Roles, models.Project, error) {
	person, err := actor(ctx, q, actorID)
	if err != nil {
		return lifecycle.Roles{}, models.Project{}, err
	}
	project, err := q.GetProject(ctx, projectID)
	if err != nil {
		return lifecycle.Roles{}, models.Project{}, err
	}
	return lifecycle.RolesFor(person, project.Members), project, nil
}
