package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "https://ring.example/embed/"

func TestScanEmbed(t *testing.T) {
	tests := []struct {
		name string
		body string
		slug string
		want Status
	}{
		{
			name: "single matching embed",
			body: `<iframe src="https://ring.example/embed/my-slug"></iframe>`,
			slug: "my-slug",
			want: Ok(),
		},
		{
			name: "query string terminates slug",
			body: `<iframe src='https://ring.example/embed/my-slug?text_color=red'></iframe>`,
			slug: "my-slug",
			want: Ok(),
		},
		{
			name: "single quote terminates mismatching slug",
			body: `<iframe src='https://ring.example/embed/other-slug'></iframe>`,
			slug: "my-slug",
			want: SlugMismatch("other-slug"),
		},
		{
			name: "no embed",
			body: `<html><body>hello</body></html>`,
			slug: "my-slug",
			want: EmbedMissing(),
		},
		{
			name: "empty body",
			body: "",
			slug: "my-slug",
			want: EmbedMissing(),
		},
		{
			name: "first mismatch wins",
			body: `"https://ring.example/embed/my-slug" "https://ring.example/embed/first-bad" "https://ring.example/embed/second-bad"`,
			slug: "my-slug",
			want: SlugMismatch("first-bad"),
		},
		{
			name: "all occurrences matching",
			body: `"https://ring.example/embed/my-slug" and 'https://ring.example/embed/my-slug?x=1'`,
			slug: "my-slug",
			want: Ok(),
		},
		{
			name: "fragment capped at 64 bytes",
			body: `"https://ring.example/embed/` + strings.Repeat("a", 100) + `"`,
			slug: "my-slug",
			want: SlugMismatch(strings.Repeat("a", 64)),
		},
		{
			name: "prefix at end of body yields empty fragment",
			body: `see https://ring.example/embed/`,
			slug: "my-slug",
			want: SlugMismatch(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScanEmbed(tt.body, prefix, tt.slug))
		})
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("page with matching embed is ok", func(t *testing.T) {
		srv := serve(t, `<iframe src="https://ring.example/embed/alice"></iframe>`)
		c := NewChecker(WithEmbedPrefix(prefix))
		assert.Equal(t, Ok(), c.Check(ctx, srv.URL, "alice"))
	})

	t.Run("status code is not inspected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<iframe src="https://ring.example/embed/alice"></iframe>`))
		}))
		t.Cleanup(srv.Close)
		c := NewChecker(WithEmbedPrefix(prefix))
		assert.Equal(t, Ok(), c.Check(ctx, srv.URL, "alice"))
	})

	t.Run("page without embed", func(t *testing.T) {
		srv := serve(t, `<p>nothing here</p>`)
		c := NewChecker(WithEmbedPrefix(prefix))
		assert.Equal(t, EmbedMissing(), c.Check(ctx, srv.URL, "alice"))
	})

	t.Run("connection refused is unreachable", func(t *testing.T) {
		srv := serve(t, "")
		url := srv.URL
		srv.Close()
		c := NewChecker(WithEmbedPrefix(prefix))
		assert.Equal(t, Unreachable(), c.Check(ctx, url, "alice"))
	})

	t.Run("timeout is unreachable", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		c := NewChecker(WithEmbedPrefix(prefix), WithTimeout(50*time.Millisecond))
		assert.Equal(t, Unreachable(), c.Check(ctx, srv.URL, "alice"))
	})

	t.Run("invalid utf-8 body is unreachable", func(t *testing.T) {
		srv := serve(t, "\xff\xfe"+`https://ring.example/embed/alice"`)
		c := NewChecker(WithEmbedPrefix(prefix))
		assert.Equal(t, Unreachable(), c.Check(ctx, srv.URL, "alice"))
	})

	t.Run("malformed url is unreachable", func(t *testing.T) {
		c := NewChecker()
		assert.Equal(t, Unreachable(), c.Check(ctx, "://nope", "alice"))
	})

	t.Run("oversized page split inside a character is still scanned", func(t *testing.T) {
		head := `<iframe src='https://ring.example/embed/alice'></iframe>`
		// "é" is two bytes; its first byte is the last one kept.
		body := head + strings.Repeat("a", maxBodyBytes-len(head)-1) + "é" + "tail"
		require.True(t, len(body) > maxBodyBytes)

		srv := serve(t, body)
		c := NewChecker(WithEmbedPrefix(prefix))
		assert.Equal(t, Ok(), c.Check(ctx, srv.URL, "alice"))
	})
}

func TestScanEmbedEmptyPrefix(t *testing.T) {
	assert.Equal(t, EmbedMissing(), ScanEmbed("x", "", "x"))
	assert.Equal(t, EmbedMissing(), ScanEmbed("", "", ""))
}

func TestTrimPartialRune(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii untouched", in: "abc", want: "abc"},
		{name: "complete rune untouched", in: "abé", want: "abé"},
		{name: "cut two-byte rune dropped", in: "ab\xc3", want: "ab"},
		{name: "cut four-byte rune dropped", in: "ab\xf0\x9f\x98", want: "ab"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(trimPartialRune([]byte(tt.in))))
		})
	}
}

func TestStatusJSON(t *testing.T) {
	t.Run("slug mismatch keeps observed fragment", func(t *testing.T) {
		raw, err := json.Marshal(SlugMismatch("bob"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"kind":"slug_mismatch","observed":"bob"}`, string(raw))

		var back Status
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, SlugMismatch("bob"), back)
	})

	t.Run("pending is null and distinct from every kind", func(t *testing.T) {
		var pending *Status
		raw, err := json.Marshal(struct {
			Health *Status `json:"health"`
		}{Health: pending})
		require.NoError(t, err)
		assert.JSONEq(t, `{"health":null}`, string(raw))
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		var s Status
		assert.Error(t, json.Unmarshal([]byte(`{"kind":"sideways"}`), &s))
	})
}

func TestReason(t *testing.T) {
	assert.Equal(t, "healthcheck pending...", Reason(nil))
	unreachable := Unreachable()
	assert.Equal(t, "site unreachable", Reason(&unreachable))
	missing := EmbedMissing()
	assert.Equal(t, "embed missing from site", Reason(&missing))
	mismatch := SlugMismatch("x")
	assert.Equal(t, "embed url has wrong slug", Reason(&mismatch))
	assert.False(t, IsOk(nil))
	ok := Ok()
	assert.True(t, IsOk(&ok))
}

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}
