package monitor

//go:generate mockgen -source=manager.go -destination=mocks/mocks.go -package=mocks Registry,Prober

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"webring/internal/health"
	"webring/internal/members"
	"webring/pkg/platform/sentinel"
)

const (
	DefaultInterval    = 60 * time.Second
	DefaultConcurrency = 8
)

// Registry yields the current member list.
type Registry interface {
	Load(ctx context.Context) ([]members.Member, error)
}

// Prober classifies one member page.
type Prober interface {
	Check(ctx context.Context, url, slug string) health.Status
}

// Entry pairs a member with its last published health. Health is nil while the
// member has not been covered by a completed cycle.
type Entry struct {
	Member members.Member `json:"member"`
	Health *health.Status `json:"health"`
}

// Manager owns the member list and the slug→status mapping. Both are replaced
// wholesale; readers see either the previous or the next value, never a mix.
// The status mapping is written only by Cycle, once per completed batch. The
// member list is swapped by both Cycle and Snapshot after a successful
// registry read, so a request can observe membership newer than the last cycle.
type Manager struct {
	registry    Registry
	prober      Prober
	interval    time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer

	membersMu sync.RWMutex
	members   []members.Member
	loaded    bool

	healthMu  sync.RWMutex
	health    map[string]health.Status
	published bool
}

type Option func(*Manager)

func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithConcurrency caps in-flight probes per cycle.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// New constructs a Manager. Nothing is probed until Run or Cycle is called.
func New(registry Registry, prober Prober, opts ...Option) *Manager {
	m := &Manager{
		registry:    registry,
		prober:      prober,
		interval:    DefaultInterval,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		tracer:      otel.Tracer("webring/internal/monitor"),
		health:      map[string]health.Status{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot re-reads the registry so that added or removed members show up
// immediately, then joins against the last completed health mapping. Health
// may be up to one interval stale; membership is always fresh.
//
// If the registry read fails, the last successfully loaded list is used. An
// error is returned only when no list has ever loaded.
func (m *Manager) Snapshot(ctx context.Context) ([]Entry, error) {
	current, err := m.registry.Load(ctx)
	if err != nil {
		m.membersMu.RLock()
		cached, loaded := m.members, m.loaded
		m.membersMu.RUnlock()
		if !loaded {
			return nil, fmt.Errorf("read members: %w: %w", sentinel.ErrUnavailable, err)
		}
		m.logger.WarnContext(ctx, "member registry read failed, serving last known members",
			"error", err,
		)
		return m.join(cached), nil
	}

	m.setMembers(current)
	return m.join(current), nil
}

func (m *Manager) join(current []members.Member) []Entry {
	m.healthMu.RLock()
	defer m.healthMu.RUnlock()

	entries := make([]Entry, 0, len(current))
	for _, member := range current {
		entry := Entry{Member: member}
		if s, ok := m.health[member.Slug]; ok {
			entry.Health = &s
		}
		entries = append(entries, entry)
	}
	return entries
}

// Ready reports whether at least one cycle has been published.
func (m *Manager) Ready() bool {
	m.healthMu.RLock()
	defer m.healthMu.RUnlock()
	return m.published
}

// Run drives the periodic health check until ctx is cancelled. The first cycle
// starts immediately. A failed cycle is not retried early.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	first := true
	m.logger.InfoContext(ctx, "performing first health check")

	for {
		err := m.Cycle(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			m.logger.ErrorContext(ctx, "health check cycle skipped", "error", err)
		case first:
			m.logger.InfoContext(ctx, "first health check completed")
			first = false
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle refreshes the registry, probes every member with bounded fan-out and
// publishes the full result set. A cancelled batch is discarded so the
// previously published mapping stays intact.
func (m *Manager) Cycle(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "health.cycle")
	defer span.End()
	start := time.Now()

	current, err := m.registry.Load(ctx)
	if err != nil {
		m.metrics.incRegistryFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry load failed")
		return fmt.Errorf("refresh registry: %w", err)
	}
	m.setMembers(current)
	span.SetAttributes(attribute.Int("webring.members", len(current)))

	results := m.probeAll(ctx, current)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cycle cancelled")
		return fmt.Errorf("health cycle cancelled: %w", err)
	}

	m.healthMu.Lock()
	m.health = results
	m.published = true
	m.healthMu.Unlock()

	m.metrics.observePublish(results, time.Since(start))
	return nil
}

func (m *Manager) probeAll(ctx context.Context, current []members.Member) map[string]health.Status {
	type result struct {
		slug   string
		status health.Status
	}

	done := make(chan result, len(current))
	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for _, member := range current {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			done <- result{slug: member.Slug, status: m.probe(ctx, member)}
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	results := make(map[string]health.Status, len(current))
	for r := range done {
		results[r.slug] = r.status
	}
	return results
}

func (m *Manager) probe(ctx context.Context, member members.Member) health.Status {
	ctx, span := m.tracer.Start(ctx, "health.probe", trace.WithAttributes(
		attribute.String("webring.slug", member.Slug),
		attribute.String("url.full", member.URL),
	))
	defer span.End()

	status := m.prober.Check(ctx, member.URL, member.Slug)
	span.SetAttributes(attribute.String("webring.health", status.Kind.String()))
	if status.Kind != health.KindOk {
		m.logger.DebugContext(ctx, "member failed health check",
			"slug", member.Slug,
			"status", status.String(),
		)
	}
	m.metrics.observeProbe(status)
	return status
}

func (m *Manager) setMembers(current []members.Member) {
	m.membersMu.Lock()
	m.members = current
	m.loaded = true
	m.membersMu.Unlock()
}

// ErrNotReady is returned by readiness checks before the first publish.
var ErrNotReady = errors.New("health check not yet completed")
