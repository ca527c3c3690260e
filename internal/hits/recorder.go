package hits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"webring/pkg/requestcontext"
)

// ErrBotSkipped marks a view that was deliberately not recorded because the user
// agent identifies a crawler.
var ErrBotSkipped = errors.New("bot user agent")

// Appender is the write half of Store.
type Appender interface {
	Append(ctx context.Context, slug, visitorHash string, ts time.Time) error
}

// Recorder turns an embed view into a hit.
type Recorder struct {
	store   Appender
	logger  *slog.Logger
	metrics *Metrics
}

type RecorderOption func(*Recorder)

func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func NewRecorder(store Appender, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends a hit for slug using the request-scoped time. Crawlers are
// skipped with ErrBotSkipped. A store failure is returned, never swallowed.
func (r *Recorder) Record(ctx context.Context, slug, clientAddr, userAgent string) error {
	if userAgent != "" && useragent.New(userAgent).Bot() {
		r.skip("bot")
		return ErrBotSkipped
	}

	visitor, err := HashVisitor(clientAddr)
	if err != nil {
		r.skip("bad_address")
		return err
	}

	start := time.Now()
	err = r.store.Append(ctx, slug, visitor, requestcontext.Now(ctx).UTC())
	if r.metrics != nil {
		r.metrics.AppendDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.AppendFailures.Inc()
		}
		r.logger.ErrorContext(ctx, "failed to record hit",
			"slug", slug,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return fmt.Errorf("append hit: %w", err)
	}
	if r.metrics != nil {
		r.metrics.Recorded.Inc()
	}
	return nil
}

func (r *Recorder) skip(reason string) {
	if r.metrics != nil {
		r.metrics.Skipped.WithLabelValues(reason).Inc()
	}
}
