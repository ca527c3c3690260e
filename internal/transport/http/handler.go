package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Members,Recorder,Stats

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"webring/internal/analytics"
	"webring/internal/health"
	"webring/internal/hits"
	"webring/internal/members"
	"webring/internal/monitor"
	"webring/internal/ring"
	dErrors "webring/pkg/domain-errors"
	"webring/pkg/platform/httputil"
	"webring/pkg/platform/sentinel"
	"webring/pkg/requestcontext"
)

const (
	defaultFontStack = "monospace"
	defaultFontSize  = "initial"
)

// Members is the monitor's read surface.
type Members interface {
	Snapshot(ctx context.Context) ([]monitor.Entry, error)
	Ready() bool
}

// Recorder appends a hit for an embed view.
type Recorder interface {
	Record(ctx context.Context, slug, clientAddr, userAgent string) error
}

// Stats builds the analytics report for a set of member slugs.
type Stats interface {
	Stats(ctx context.Context, slugs []string) (*analytics.Report, error)
}

// Handler serves the ring's JSON surface.
type Handler struct {
	members  Members
	recorder Recorder
	stats    Stats
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithRand fixes the source used by /rand.
func WithRand(rng *rand.Rand) Option {
	return func(h *Handler) {
		h.rng = rng
	}
}

func NewHandler(members Members, recorder Recorder, stats Stats, opts ...Option) *Handler {
	h := &Handler{
		members:  members,
		recorder: recorder,
		stats:    stats,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the ring endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/members.json", h.HandleMembers)
	r.Get("/directory", h.HandleDirectory)
	r.Get("/rand", h.HandleRandom)
	r.Get("/embed/{slug}", h.HandleEmbed)
	r.Get("/stats", h.HandleStats)
	r.Get("/healthz", h.HandleHealthz)
	r.Get("/readyz", h.HandleReadyz)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) ([]monitor.Entry, bool) {
	entries, err := h.members.Snapshot(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "member snapshot failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "member registry unavailable"))
		return nil, false
	}
	return entries, true
}

// HandleMembers handles GET /members.json. Pending members carry a null health.
func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

type unhealthyMember struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type directoryResponse struct {
	Alive     []members.Member  `json:"alive"`
	Unhealthy []unhealthyMember `json:"unhealthy"`
}

// HandleDirectory handles GET /directory.
func (h *Handler) HandleDirectory(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	resp := directoryResponse{
		Alive:     ring.Healthy(entries),
		Unhealthy: []unhealthyMember{},
	}
	if resp.Alive == nil {
		resp.Alive = []members.Member{}
	}
	for _, e := range ring.Unhealthy(entries) {
		resp.Unhealthy = append(resp.Unhealthy, unhealthyMember{
			Name:   e.Member.Name,
			URL:    e.Member.URL,
			Reason: health.Reason(e.Health),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRandom handles GET /rand, redirecting to a healthy member other than
// the one the visitor came from.
func (h *Handler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	exclude := ring.SlugFromReferer(r.Referer())
	h.rngMu.Lock()
	member, err := ring.Random(entries, exclude, h.rng)
	h.rngMu.Unlock()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "no healthy members"))
		return
	}
	http.Redirect(w, r, member.URL, http.StatusFound)
}

type embedResponse struct {
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	PrevURL     string         `json:"prev_url"`
	NextURL     string         `json:"next_url"`
	Colors      members.Colors `json:"colors"`
	FontStack   string         `json:"font_stack"`
	FontSize    string         `json:"font_size"`
	Stylesheets []string       `json:"stylesheets"`
}

// HandleEmbed handles GET /embed/{slug}: records the view and returns the
// widget's navigation and styling. Query parameters override the member's
// colors and font size for this response only.
func (h *Handler) HandleEmbed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	slug := chi.URLParam(r, "slug")

	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	prev, next, err := ring.Neighbors(entries, slug)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown member"))
		return
	}
	var member members.Member
	for _, e := range entries {
		if e.Member.Slug == slug {
			member = e.Member
			break
		}
	}

	err = h.recorder.Record(ctx, slug, requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx))
	switch {
	case err == nil, errors.Is(err, hits.ErrBotSkipped):
	case errors.Is(err, sentinel.ErrInvalidInput):
		h.logger.WarnContext(ctx, "embed view not recorded",
			"request_id", requestID,
			"slug", slug,
			"error", err,
		)
	default:
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record visit"))
		return
	}

	query := r.URL.Query()
	colors := member.Colors
	override(&colors.Text, query.Get("text_color"))
	override(&colors.Border, query.Get("border_color"))
	override(&colors.Links, query.Get("link_color"))
	override(&colors.OnLinks, query.Get("on_link_color"))

	fontStack := defaultFontStack
	if member.FontStack != nil {
		fontStack = *member.FontStack
	}
	fontSize := defaultFontSize
	if member.FontSize != nil {
		fontSize = *member.FontSize
	}
	override(&fontSize, query.Get("font_size"))

	httputil.WriteJSON(w, http.StatusOK, embedResponse{
		Slug:        member.Slug,
		Name:        member.Name,
		URL:         member.URL,
		PrevURL:     prev.URL,
		NextURL:     next.URL,
		Colors:      colors,
		FontStack:   fontStack,
		FontSize:    fontSize,
		Stylesheets: member.Stylesheets,
	})
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// HandleStats handles GET /stats. Only healthy members are reported.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	healthy := ring.Healthy(entries)
	slugs := make([]string, 0, len(healthy))
	for _, m := range healthy {
		slugs = append(slugs, m.Slug)
	}

	report, err := h.stats.Stats(ctx, slugs)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute stats"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleHealthz reports process liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadyz reports ready once the first health check has been published.
func (h *Handler) HandleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !h.members.Ready() {
		httputil.WriteError(w, dErrors.Wrap(monitor.ErrNotReady, dErrors.CodeUnavailable, "health check not yet completed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
