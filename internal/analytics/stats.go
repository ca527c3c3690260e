// Package analytics derives per-member funnel statistics from the hit log.
package analytics

import (
	"math"
	"sort"

	"webring/internal/hits"
)

// SiteStats is the funnel for one member, counted over unique visitors.
type SiteStats struct {
	Slug                string `json:"slug"`
	FirstVisitUsers     int    `json:"first_visit_users"`
	ReturningUsers      int    `json:"returning_users"`
	TotalUniqueVisitors int    `json:"total_unique_visitors"`
	DrivenToOthers      int    `json:"driven_to_others"`
}

// Zero is the record for a member nobody has visited.
func Zero(slug string) SiteStats {
	return SiteStats{Slug: slug}
}

type visitor struct {
	entry      hits.Hit
	entryIndex int
	slugs      map[string]struct{}
}

// earlier orders hits by insertion: lower ID first, then earlier timestamp,
// then position in the input.
func earlier(a hits.Hit, ai int, b hits.Hit, bi int) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return ai < bi
}

// ComputeStats aggregates the full hit log. A visitor's entry slug is the slug
// of their earliest hit; repeat visits to the same slug count once. Slugs
// without hits are absent from the result, which is sorted by slug.
func ComputeStats(log []hits.Hit) []SiteStats {
	visitors := map[string]*visitor{}
	for i, h := range log {
		v, ok := visitors[h.VisitorHash]
		if !ok {
			visitors[h.VisitorHash] = &visitor{
				entry:      h,
				entryIndex: i,
				slugs:      map[string]struct{}{h.Slug: {}},
			}
			continue
		}
		v.slugs[h.Slug] = struct{}{}
		if earlier(h, i, v.entry, v.entryIndex) {
			v.entry, v.entryIndex = h, i
		}
	}

	bySlug := map[string]*SiteStats{}
	for _, v := range visitors {
		for slug := range v.slugs {
			s, ok := bySlug[slug]
			if !ok {
				s = &SiteStats{Slug: slug}
				bySlug[slug] = s
			}
			if v.entry.Slug == slug {
				s.FirstVisitUsers++
				if len(v.slugs) > 1 {
					s.DrivenToOthers++
				}
			} else {
				s.ReturningUsers++
			}
			s.TotalUniqueVisitors++
		}
	}

	out := make([]SiteStats, 0, len(bySlug))
	for _, s := range bySlug {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// ForSlugs picks one record per requested slug, in the requested order,
// substituting Zero for slugs with no hits.
func ForSlugs(stats []SiteStats, slugs []string) []SiteStats {
	index := make(map[string]SiteStats, len(stats))
	for _, s := range stats {
		index[s.Slug] = s
	}
	out := make([]SiteStats, 0, len(slugs))
	for _, slug := range slugs {
		if s, ok := index[slug]; ok {
			out = append(out, s)
		} else {
			out = append(out, Zero(slug))
		}
	}
	return out
}

// Summary totals a set of rows. Visitors are summed per member, so a visitor
// seen at two members counts twice.
type Summary struct {
	Visitors       int `json:"visitors"`
	FromOthers     int `json:"from_others"`
	FirstSite      int `json:"first_site"`
	DrivenToOthers int `json:"driven_to_others"`
	// DrivenPercent is the share of visits that arrived from another member.
	DrivenPercent int `json:"driven_percent"`
}

func Summarize(rows []SiteStats) Summary {
	var sum Summary
	for _, r := range rows {
		sum.Visitors += r.TotalUniqueVisitors
		sum.FromOthers += r.ReturningUsers
		sum.FirstSite += r.FirstVisitUsers
		sum.DrivenToOthers += r.DrivenToOthers
	}
	if sum.Visitors > 0 {
		sum.DrivenPercent = int(math.Round(100 * float64(sum.FromOthers) / float64(sum.Visitors)))
	}
	return sum
}
