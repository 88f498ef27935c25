package core

import (
	"context"
	"time"

	"rostercore/internal/export"
	"rostercore/internal/infra/persistence/memory"
	"rostercore/internal/query"
)

// Service exposes higher-level transactional operations over the roster
// store plus the pure derivations (views, stats, export) computed from it.
type Service struct {
	store   PersistentStore
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithClock overrides the time source used for audit timestamps. When the
// backing store is the in-memory implementation, record timestamps follow
// the same clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger installs a structured logger. Defaults to a no-op.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder installs a metrics recorder. Defaults to a no-op.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer installs a tracer. Defaults to a no-op.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder installs an audit recorder. Defaults to a no-op.
func WithAuditRecorder(audit AuditRecorder) Option {
	return func(s *Service) {
		if audit != nil {
			s.audit = audit
		}
	}
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if ms, ok := store.(*memory.Store); ok {
		ms.SetNowFunc(s.clock.Now)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. A nil engine gets the default roster rules.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// run wraps an operation with tracing, metrics, audit, and logging. The
// returned finish function must be called exactly once.
func (s *Service) run(ctx context.Context, op string) (context.Context, func(entityID string, res Result, err error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(entityID string, res Result, err error) {
		duration := time.Since(started)
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil, duration)
		entry := AuditEntry{
			Operation:  op,
			EntityID:   entityID,
			Status:     AuditStatusSuccess,
			Violations: len(res.Violations),
			Duration:   duration,
			OccurredAt: s.clock.Now(),
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
		switch {
		case err != nil:
			s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
		case len(res.Violations) > 0:
			s.logger.Warn("operation completed with violations", "operation", op, "entity_id", entityID, "violations", len(res.Violations))
		default:
			s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", duration)
		}
	}
}

// CreateEmployee persists a new employee record.
func (s *Service) CreateEmployee(ctx context.Context, employee Employee) (Employee, Result, error) {
	ctx, finish := s.run(ctx, "create_employee")
	var created Employee
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateEmployee(employee)
		return err
	})
	finish(created.ID, res, err)
	return created, res, err
}

// UpdateEmployee mutates an employee using the provided mutator.
func (s *Service) UpdateEmployee(ctx context.Context, id string, mutator func(*Employee) error) (Employee, Result, error) {
	ctx, finish := s.run(ctx, "update_employee")
	var updated Employee
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateEmployee(id, mutator)
		return err
	})
	finish(id, res, err)
	return updated, res, err
}

// DeleteEmployee removes an employee record.
func (s *Service) DeleteEmployee(ctx context.Context, id string) (Result, error) {
	ctx, finish := s.run(ctx, "delete_employee")
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteEmployee(id)
	})
	finish(id, res, err)
	return res, err
}

// GetEmployee retrieves an employee by ID.
func (s *Service) GetEmployee(ctx context.Context, id string) (Employee, bool) {
	_, finish := s.run(ctx, "get_employee")
	employee, ok := s.store.GetEmployee(id)
	finish(id, Result{}, nil)
	return employee, ok
}

// ListEmployees returns the full record set in stable base order.
func (s *Service) ListEmployees(ctx context.Context) []Employee {
	_, finish := s.run(ctx, "list_employees")
	employees := s.store.ListEmployees()
	finish("", Result{}, nil)
	return employees
}

// DeriveView computes the filtered, sorted view for the given query.
func (s *Service) DeriveView(ctx context.Context, q query.Query) []Employee {
	_, finish := s.run(ctx, "derive_view")
	view := query.DeriveView(s.store.ListEmployees(), q)
	finish("", Result{}, nil)
	return view
}

// Stats computes aggregate statistics over the unfiltered record set.
func (s *Service) Stats(ctx context.Context) query.Summary {
	_, finish := s.run(ctx, "stats")
	summary := query.Stats(s.store.ListEmployees())
	finish("", Result{}, nil)
	return summary
}

// ExportCSV renders the derived view for q as a CSV document. The query
// filters apply; sort order determines row order. Zero matching records
// refuse the export with export.ErrEmptyInput.
func (s *Service) ExportCSV(ctx context.Context, q query.Query) ([]byte, error) {
	_, finish := s.run(ctx, "export_csv")
	data, err := export.CSV(query.DeriveView(s.store.ListEmployees(), q))
	finish("", Result{}, err)
	return data, err
}
