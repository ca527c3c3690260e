package health

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultEmbedPrefix is the embed URL every member page must contain.
	DefaultEmbedPrefix = "https://overengineering.kognise.dev/embed/"
	// DefaultTimeout bounds one probe end to end.
	DefaultTimeout = 5 * time.Second

	maxSlugFragment = 64
	maxBodyBytes    = 4 << 20
)

// Checker probes a member page once and classifies the result. It holds no
// state besides its HTTP client and is safe for concurrent use.
type Checker struct {
	client *http.Client
	prefix string
}

type Option func(*Checker)

func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.client.Timeout = d
	}
}

func WithEmbedPrefix(prefix string) Option {
	return func(c *Checker) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithTransport swaps the round tripper, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Checker) {
		c.client.Transport = rt
	}
}

func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client: &http.Client{Timeout: DefaultTimeout},
		prefix: DefaultEmbedPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check issues a single GET to url and scans the body for the embed. Any
// transport failure, timeout or undecodable body is Unreachable. No retries.
func (c *Checker) Check(ctx context.Context, url, slug string) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Unreachable()
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Unreachable()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Unreachable()
	}
	if len(body) > maxBodyBytes {
		body = trimPartialRune(body[:maxBodyBytes])
	}
	if !utf8.Valid(body) {
		return Unreachable()
	}
	return ScanEmbed(string(body), c.prefix, slug)
}

// trimPartialRune drops a multibyte character cut short at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			break
		}
	}
	return b
}

// ScanEmbed looks at every occurrence of prefix in body. The fragment after
// each occurrence ends at a quote, a '?', or 64 bytes. The first fragment that
// differs from slug decides the result. An empty prefix matches nothing.
func ScanEmbed(body, prefix, slug string) Status {
	if prefix == "" {
		return EmbedMissing()
	}
	found := 0
	rest := body
	for {
		idx := strings.Index(rest, prefix)
		if idx < 0 {
			break
		}
		rest = rest[idx+len(prefix):]

		fragment := slugFragment(rest)
		if fragment != slug {
			return SlugMismatch(fragment)
		}
		found++
	}

	if found == 0 {
		return EmbedMissing()
	}
	return Ok()
}

func slugFragment(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\'' || r == '"' || r == '?' || b.Len() >= maxSlugFragment {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
