package memory

import (
	"math"
	"testing"
	"time"

	"github.com/peachbot/peachbot/internal/core"
	"github.com/stretchr/testify/assert"
)

func hit(content string, importance int, distance float64, age time.Duration, now time.Time) core.MemoryHit {
	return core.MemoryHit{
		Fragment: core.Fragment{
			Content:    content,
			Importance: importance,
			Timestamp:  now.Add(-age),
		},
		Distance: distance,
	}
}

func TestRank_EmptyCandidates(t *testing.T) {
	got := Rank(time.Now(), nil, DefaultRetrievalConfig())
	assert.Empty(t, got)
}

func TestRank_MinImportanceIsHardFilter(t *testing.T) {
	now := time.Now()
	hits := []core.MemoryHit{
		hit("low", 2, 0.0, 0, now),
		hit("high", 8, 5.0, 0, now),
	}
	got := Rank(now, hits, RetrievalConfig{TopK: 10, MinImportance: 5})
	assert.Len(t, got, 1)
	assert.Equal(t, "high", got[0].Fragment.Content)
}

func TestRank_SimilarityTransform(t *testing.T) {
	now := time.Now()
	hits := []core.MemoryHit{hit("a", 10, 1.0, 0, now)}
	got := Rank(now, hits, RetrievalConfig{TopK: 1})
	// similarity = 1/(1+1) = 0.5; score = 0.5*0.7 + 1.0*0.3
	assert.InDelta(t, 0.5*0.7+0.3, got[0].Score, 1e-9)
}

func TestRank_ScoreThreshold(t *testing.T) {
	now := time.Now()
	hits := []core.MemoryHit{
		hit("near", 5, 0.1, 0, now), // similarity ~0.909
		hit("far", 5, 10.0, 0, now), // similarity ~0.091
	}
	got := Rank(now, hits, RetrievalConfig{TopK: 10, ScoreThreshold: 0.5})
	assert.Len(t, got, 1)
	assert.Equal(t, "near", got[0].Fragment.Content)
}

func TestRank_EqualImportanceOrdersBySimilarity(t *testing.T) {
	now := time.Now()
	hits := []core.MemoryHit{
		hit("far", 5, 3.0, 0, now),
		hit("near", 5, 0.5, 0, now),
		hit("mid", 5, 1.0, 0, now),
	}
	got := Rank(now, hits, RetrievalConfig{TopK: 3})
	assert.Equal(t, "near", got[0].Fragment.Content)
	assert.Equal(t, "mid", got[1].Fragment.Content)
	assert.Equal(t, "far", got[2].Fragment.Content)
}

func TestRank_BoostImportanceReweights(t *testing.T) {
	now := time.Now()
	hits := []core.MemoryHit{hit("a", 10, 1.0, 0, now)}

	plain := Rank(now, hits, RetrievalConfig{TopK: 1})
	boosted := Rank(now, hits, RetrievalConfig{TopK: 1, BoostImportance: true})

	assert.InDelta(t, 0.5*0.7+0.3, plain[0].Score, 1e-9)
	assert.InDelta(t, 0.5*0.5+0.5, boosted[0].Score, 1e-9)
}

func TestRank_StableOnTies(t *testing.T) {
	now := time.Now()
	hits := []core.MemoryHit{
		hit("first", 5, 1.0, 0, now),
		hit("second", 5, 1.0, 0, now),
		hit("third", 5, 1.0, 0, now),
	}
	got := Rank(now, hits, RetrievalConfig{TopK: 3})
	assert.Equal(t, "first", got[0].Fragment.Content)
	assert.Equal(t, "second", got[1].Fragment.Content)
	assert.Equal(t, "third", got[2].Fragment.Content)
}

func TestRank_TopKTruncates(t *testing.T) {
	now := time.Now()
	var hits []core.MemoryHit
	for i := 0; i < 10; i++ {
		hits = append(hits, hit("c", 5, float64(i), 0, now))
	}
	got := Rank(now, hits, RetrievalConfig{TopK: 3})
	assert.Len(t, got, 3)
}

func TestRecencyDecay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"fresh", 0, 1.0},
		{"exactly seven days", 7 * 24 * time.Hour, 1.0},
		{"eight days", 8 * 24 * time.Hour, 0.95},
		{"fourteen days", 14 * 24 * time.Hour, math.Pow(0.95, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recencyDecay(now, now.Add(-tt.age))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRecencyDecay_UnparseableTimestamp(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 1.0, recencyDecay(now, time.Time{}))
}

func TestRank_DecayAppliedAfterBaseScore(t *testing.T) {
	now := time.Now()
	hits := []core.MemoryHit{hit("old", 10, 1.0, 8*24*time.Hour, now)}
	got := Rank(now, hits, RetrievalConfig{TopK: 1, BoostRecent: true})
	assert.InDelta(t, (0.5*0.7+0.3)*0.95, got[0].Score, 1e-9)
}
