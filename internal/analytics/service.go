package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"webring/internal/hits"
)

// HitReader is the read half of hits.Store.
type HitReader interface {
	All(ctx context.Context) ([]hits.Hit, error)
}

// Report is the stats page payload.
type Report struct {
	Rows    []SiteStats `json:"rows"`
	Summary Summary     `json:"summary"`
}

// Service recomputes stats from the full hit log on every call.
type Service struct {
	hits   HitReader
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(reader HitReader, opts ...Option) *Service {
	s := &Service{
		hits:   reader,
		logger: slog.Default(),
		tracer: otel.Tracer("webring/internal/analytics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns one row per slug, zero-filled, plus totals over those rows.
func (s *Service) Stats(ctx context.Context, slugs []string) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.stats")
	defer span.End()

	start := time.Now()
	log, err := s.hits.All(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query hits: %w", err)
	}
	span.SetAttributes(attribute.Int("webring.hits", len(log)))

	rows := ForSlugs(ComputeStats(log), slugs)
	s.logger.DebugContext(ctx, "computed stats",
		"hits", len(log),
		"members", len(slugs),
		"duration", time.Since(start),
	)
	return &Report{Rows: rows, Summary: Summarize(rows)}, nil
}
