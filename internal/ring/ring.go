// Package ring answers navigation questions over a monitor snapshot.
package ring

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"webring/internal/health"
	"webring/internal/members"
	"webring/internal/monitor"
	"webring/pkg/platform/sentinel"
)

// Healthy returns the members whose last published status is Ok, in snapshot
// order.
func Healthy(entries []monitor.Entry) []members.Member {
	var out []members.Member
	for _, e := range entries {
		if health.IsOk(e.Health) {
			out = append(out, e.Member)
		}
	}
	return out
}

// Unhealthy returns every entry that is not Ok. Pending members are included.
func Unhealthy(entries []monitor.Entry) []monitor.Entry {
	var out []monitor.Entry
	for _, e := range entries {
		if !health.IsOk(e.Health) {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the previous and next member around slug. The ring is the
// Ok members plus slug itself, so an unhealthy member can still link out. With
// a ring of one, both neighbours are the member itself.
func Neighbors(entries []monitor.Entry, slug string) (prev, next members.Member, err error) {
	var cycle []members.Member
	pos := -1
	for _, e := range entries {
		switch {
		case e.Member.Slug == slug:
			pos = len(cycle)
		case health.IsOk(e.Health):
		default:
			continue
		}
		cycle = append(cycle, e.Member)
	}
	if pos < 0 {
		return members.Member{}, members.Member{}, fmt.Errorf("member %q: %w", slug, sentinel.ErrNotFound)
	}
	n := len(cycle)
	return cycle[(pos-1+n)%n], cycle[(pos+1)%n], nil
}

// Random picks an Ok member uniformly, never exclude.
func Random(entries []monitor.Entry, exclude string, rng *rand.Rand) (members.Member, error) {
	var candidates []members.Member
	for _, m := range Healthy(entries) {
		if m.Slug != exclude {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return members.Member{}, fmt.Errorf("no healthy member to pick: %w", sentinel.ErrNotFound)
	}
	if rng == nil {
		return candidates[rand.IntN(len(candidates))], nil
	}
	return candidates[rng.IntN(len(candidates))], nil
}

// SlugFromReferer returns the last non-empty path segment of referer, or ""
// if it is absent or unparseable. Clicking "random" inside an embed sends the
// embed URL as referer, which ends in the member's slug.
func SlugFromReferer(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
