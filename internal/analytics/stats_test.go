package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webring/internal/analytics"
	"webring/internal/hits"
	"webring/pkg/testutil"
)

var t0 = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

// logOf builds a hit log with IDs in slice order, one second apart.
func logOf(pairs ...[2]string) []hits.Hit {
	out := make([]hits.Hit, len(pairs))
	for i, p := range pairs {
		out[i] = hits.Hit{
			ID:          int64(i + 1),
			Slug:        p[0],
			VisitorHash: p[1],
			Timestamp:   t0.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

func statsBySlug(rows []analytics.SiteStats) map[string]analytics.SiteStats {
	out := map[string]analytics.SiteStats{}
	for _, r := range rows {
		out[r.Slug] = r
	}
	return out
}

func TestComputeStats(t *testing.T) {
	testutil.Given(t, "a visitor who enters at A", func(t *testing.T) {
		testutil.When(t, "they move on to B", func(t *testing.T) {
			stats := statsBySlug(analytics.ComputeStats(logOf(
				[2]string{"a", "v1"},
				[2]string{"b", "v1"},
			)))

			testutil.Then(t, "A drove them on and B saw a returning visitor", func(t *testing.T) {
				assert.Equal(t, analytics.SiteStats{Slug: "a", FirstVisitUsers: 1, TotalUniqueVisitors: 1, DrivenToOthers: 1}, stats["a"])
				assert.Equal(t, analytics.SiteStats{Slug: "b", ReturningUsers: 1, TotalUniqueVisitors: 1}, stats["b"])
			})
		})

		testutil.When(t, "they hit A again", func(t *testing.T) {
			rows := analytics.ComputeStats(logOf(
				[2]string{"a", "v1"},
				[2]string{"a", "v1"},
			))

			testutil.Then(t, "the repeat collapses to one unique pair", func(t *testing.T) {
				require.Len(t, rows, 1)
				assert.Equal(t, analytics.SiteStats{Slug: "a", FirstVisitUsers: 1, TotalUniqueVisitors: 1}, rows[0])
			})
		})
	})

	testutil.Given(t, "an empty log", func(t *testing.T) {
		testutil.Then(t, "there are no rows", func(t *testing.T) {
			assert.Empty(t, analytics.ComputeStats(nil))
		})
	})
}

func TestComputeStatsEntryFollowsInsertionOrder(t *testing.T) {
	// The log arrives shuffled; the lowest ID still decides the entry slug.
	log := []hits.Hit{
		{ID: 7, Slug: "b", VisitorHash: "v1", Timestamp: t0},
		{ID: 3, Slug: "a", VisitorHash: "v1", Timestamp: t0.Add(time.Hour)},
	}

	stats := statsBySlug(analytics.ComputeStats(log))

	assert.Equal(t, 1, stats["a"].FirstVisitUsers)
	assert.Equal(t, 1, stats["b"].ReturningUsers)
}

func TestComputeStatsEqualIDsFallBackToTimestampThenPosition(t *testing.T) {
	t.Run("earlier timestamp wins", func(t *testing.T) {
		log := []hits.Hit{
			{Slug: "b", VisitorHash: "v1", Timestamp: t0.Add(time.Minute)},
			{Slug: "a", VisitorHash: "v1", Timestamp: t0},
		}
		assert.Equal(t, 1, statsBySlug(analytics.ComputeStats(log))["a"].FirstVisitUsers)
	})

	t.Run("input position breaks a full tie", func(t *testing.T) {
		log := []hits.Hit{
			{Slug: "b", VisitorHash: "v1", Timestamp: t0},
			{Slug: "a", VisitorHash: "v1", Timestamp: t0},
		}
		assert.Equal(t, 1, statsBySlug(analytics.ComputeStats(log))["b"].FirstVisitUsers)
	})
}

func TestComputeStatsSortedBySlug(t *testing.T) {
	rows := analytics.ComputeStats(logOf(
		[2]string{"zed", "v1"},
		[2]string{"amy", "v2"},
		[2]string{"kim", "v3"},
	))

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"amy", "kim", "zed"}, []string{rows[0].Slug, rows[1].Slug, rows[2].Slug})
}

func TestForSlugsZeroFills(t *testing.T) {
	rows := analytics.ComputeStats(logOf([2]string{"a", "v1"}))

	got := analytics.ForSlugs(rows, []string{"c", "a"})

	require.Len(t, got, 2)
	assert.Equal(t, analytics.Zero("c"), got[0])
	assert.Equal(t, "a", got[1].Slug)
	assert.Equal(t, 1, got[1].TotalUniqueVisitors)
}

func TestSummarize(t *testing.T) {
	t.Run("zero denominator", func(t *testing.T) {
		sum := analytics.Summarize([]analytics.SiteStats{analytics.Zero("a"), analytics.Zero("b")})
		assert.Equal(t, analytics.Summary{}, sum)
	})

	t.Run("rounds the driven share", func(t *testing.T) {
		sum := analytics.Summarize([]analytics.SiteStats{
			{Slug: "a", FirstVisitUsers: 2, ReturningUsers: 1, TotalUniqueVisitors: 3, DrivenToOthers: 1},
			{Slug: "b", FirstVisitUsers: 0, ReturningUsers: 0, TotalUniqueVisitors: 0},
		})
		assert.Equal(t, 3, sum.Visitors)
		assert.Equal(t, 1, sum.FromOthers)
		assert.Equal(t, 2, sum.FirstSite)
		assert.Equal(t, 1, sum.DrivenToOthers)
		assert.Equal(t, 33, sum.DrivenPercent)
	})

	t.Run("half rounds up", func(t *testing.T) {
		sum := analytics.Summarize([]analytics.SiteStats{
			{Slug: "a", ReturningUsers: 1, TotalUniqueVisitors: 8},
		})
		assert.Equal(t, 13, sum.DrivenPercent)
	})
}
