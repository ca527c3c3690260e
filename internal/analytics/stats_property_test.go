package analytics_test

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"webring/internal/analytics"
	"webring/internal/hits"
)

// randomLog draws a hit log over a small slug and visitor space so repeats and
// multi-member visitors are common.
func randomLog(rng *rand.Rand) []hits.Hit {
	n := rng.IntN(200)
	slugs := 1 + rng.IntN(8)
	visitors := 1 + rng.IntN(40)
	out := make([]hits.Hit, n)
	for i := range out {
		out[i] = hits.Hit{
			ID:          int64(i + 1),
			Slug:        fmt.Sprintf("s%d", rng.IntN(slugs)),
			VisitorHash: fmt.Sprintf("v%d", rng.IntN(visitors)),
			Timestamp:   time.Unix(int64(rng.IntN(1000)), 0),
		}
	}
	return out
}

func TestStatsProperties(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		log := randomLog(rng)
		rows := analytics.ComputeStats(log)

		distinct := map[string]bool{}
		for _, h := range log {
			distinct[h.VisitorHash] = true
		}

		firstSum := 0
		for _, r := range rows {
			firstSum += r.FirstVisitUsers
			if r.TotalUniqueVisitors != r.FirstVisitUsers+r.ReturningUsers {
				t.Fatalf("seed %d slug %s: total %d != first %d + returning %d",
					seed, r.Slug, r.TotalUniqueVisitors, r.FirstVisitUsers, r.ReturningUsers)
			}
			if r.DrivenToOthers > r.FirstVisitUsers {
				t.Fatalf("seed %d slug %s: driven %d > first %d",
					seed, r.Slug, r.DrivenToOthers, r.FirstVisitUsers)
			}
			if r.TotalUniqueVisitors == 0 {
				t.Fatalf("seed %d slug %s: row present without hits", seed, r.Slug)
			}
		}
		if firstSum != len(distinct) {
			t.Fatalf("seed %d: sum(first) %d != distinct visitors %d", seed, firstSum, len(distinct))
		}
	}
}

// Hits can come back from a store in any order; only IDs define insertion.
func TestStatsIgnoreInputOrder(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewPCG(seed, 7))
		log := randomLog(rng)

		shuffled := append([]hits.Hit(nil), log...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		want := analytics.ComputeStats(log)
		got := analytics.ComputeStats(shuffled)
		if fmt.Sprint(want) != fmt.Sprint(got) {
			t.Fatalf("seed %d: stats depend on input order\nwant %v\ngot  %v", seed, want, got)
		}
	}
}
