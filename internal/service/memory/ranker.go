package memory

import (
	"math"
	"sort"
	"time"

	"github.com/peachbot/peachbot/internal/core"
)

// RetrievalConfig tunes how candidates are filtered and ordered. Zero values
// for optional fields mean "disabled".
type RetrievalConfig struct {
	TopK            int
	MinImportance   int
	ScoreThreshold  float64
	BoostRecent     bool
	BoostImportance bool
	// DiversityPenalty is declared for API compatibility but not consulted by
	// the ranking; do not assign semantics to it without product direction.
	DiversityPenalty float64
}

// DefaultRetrievalConfig mirrors the storage-time defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:            5,
		MinImportance:   5,
		BoostRecent:     true,
		BoostImportance: true,
	}
}

// Scored pairs a fragment with its final ranking score.
type Scored struct {
	Fragment core.Fragment
	Score    float64
}

const (
	similarityWeight = 0.7
	importanceWeight = 0.3

	// boost_importance flips to an even split; a binary mode, not a dial.
	boostedSimilarityWeight = 0.5
	boostedImportanceWeight = 0.5

	decayFreeDays = 7
	dailyDecay    = 0.95
)

// Rank orders similarity-search hits by a blend of semantic similarity,
// importance and recency, returning at most cfg.TopK entries. An empty
// candidate set yields an empty result, never an error.
func Rank(now time.Time, hits []core.MemoryHit, cfg RetrievalConfig) []Scored {
	scored := make([]Scored, 0, len(hits))

	for _, hit := range hits {
		if hit.Fragment.Importance < cfg.MinImportance {
			continue
		}

		similarity := 1.0 / (1.0 + hit.Distance)
		if cfg.ScoreThreshold > 0 && similarity < cfg.ScoreThreshold {
			continue
		}

		importance := float64(hit.Fragment.Importance) / 10.0
		score := similarity*similarityWeight + importance*importanceWeight
		if cfg.BoostImportance {
			score = similarity*boostedSimilarityWeight + importance*boostedImportanceWeight
		}

		if cfg.BoostRecent {
			score *= recencyDecay(now, hit.Fragment.Timestamp)
		}

		scored = append(scored, Scored{Fragment: hit.Fragment, Score: score})
	}

	// Stable sort keeps input order for equal scores; ties carry no other
	// break rule.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if cfg.TopK > 0 && len(scored) > cfg.TopK {
		scored = scored[:cfg.TopK]
	}
	return scored
}

// recencyDecay returns 1.0 for fragments up to a week old, then shaves 5% per
// additional day. A missing timestamp contributes no decay.
func recencyDecay(now time.Time, ts time.Time) float64 {
	if ts.IsZero() || ts.After(now) {
		return 1.0
	}
	daysAgo := int(now.Sub(ts).Hours() / 24)
	if daysAgo <= decayFreeDays {
		return 1.0
	}
	return math.Pow(dailyDecay, float64(daysAgo-decayFreeDays))
}
