package members

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Order selects how Load arranges members.
type Order string

const (
	// OrderSlug sorts members by slug.
	OrderSlug Order = "slug"
	// OrderDaily shuffles members with a seed derived from the UTC date, so
	// every process agrees on the ring order for a given day.
	OrderDaily Order = "daily"
)

// LoadError reports that the registry directory itself could not be read.
// Individual malformed member files are skipped, not reported.
type LoadError struct {
	Dir string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load members from %s: %v", e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// memberFile is the on-disk YAML shape of one member.
type memberFile struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Colors *struct {
		Text    string `yaml:"text"`
		Border  string `yaml:"border"`
		Links   string `yaml:"links"`
		OnLinks string `yaml:"on_links"`
	} `yaml:"colors"`
	FontStack   *string  `yaml:"font_stack"`
	FontSize    *string  `yaml:"font_size"`
	Stylesheets []string `yaml:"stylesheets"`
}

// Loader reads member definitions from a directory of YAML files. The slug of
// each member is its file name up to the first dot. Loader keeps no state
// between calls, so concurrent Loads are safe.
type Loader struct {
	dir    string
	order  Order
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Loader)

func WithOrder(order Order) Option {
	return func(l *Loader) {
		l.order = order
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithClock overrides the clock used to seed daily ordering.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

// NewLoader constructs a Loader rooted at dir.
func NewLoader(dir string, opts ...Option) *Loader {
	l := &Loader{
		dir:    dir,
		order:  OrderSlug,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the current member list.
func (l *Loader) Load(ctx context.Context) ([]Member, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, &LoadError{Dir: l.dir, Err: err}
	}

	members := make([]Member, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{Dir: l.dir, Err: err}
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		member, err := l.readMember(entry.Name())
		if err != nil {
			l.logger.WarnContext(ctx, "skipping member due to format error",
				"file", entry.Name(),
				"error", err,
			)
			continue
		}
		if _, dup := seen[member.Slug]; dup {
			l.logger.WarnContext(ctx, "skipping member with duplicate slug",
				"file", entry.Name(),
				"slug", member.Slug,
			)
			continue
		}
		seen[member.Slug] = struct{}{}
		members = append(members, member)
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Slug < members[j].Slug })
	if l.order == OrderDaily {
		shuffleForDay(members, l.now())
	}
	return members, nil
}

func (l *Loader) readMember(fileName string) (Member, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, fileName))
	if err != nil {
		return Member{}, err
	}

	var parsed memberFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Member{}, err
	}
	if parsed.Name == "" || parsed.URL == "" {
		return Member{}, fmt.Errorf("name and url are required")
	}

	slug, _, _ := strings.Cut(fileName, ".")
	member := Member{
		Slug:        slug,
		Name:        parsed.Name,
		URL:         parsed.URL,
		FontStack:   parsed.FontStack,
		FontSize:    parsed.FontSize,
		Stylesheets: parsed.Stylesheets,
	}
	if parsed.Colors != nil {
		member.Colors = Colors{
			Text:    parsed.Colors.Text,
			Border:  parsed.Colors.Border,
			Links:   parsed.Colors.Links,
			OnLinks: parsed.Colors.OnLinks,
		}
	}
	member.Colors = member.Colors.withDefaults()
	if member.Stylesheets == nil {
		member.Stylesheets = []string{}
	}
	return member, nil
}

// shuffleForDay permutes members deterministically for the UTC calendar day
// of now. Input must already be in a stable order.
func shuffleForDay(members []Member, now time.Time) {
	y, m, d := now.UTC().Date()
	seed := uint64(y)*10000 + uint64(m)*100 + uint64(d)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
}
