package memory

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/peachbot/peachbot/internal/core"
)

const (
	defaultScore = 5
	minScore     = 1
	maxScore     = 10

	defaultConfidence = 0.8
)

// Validate turns raw extraction output into a well-formed Fragment. It is a
// total function: malformed speakers, scores, types and sentiments are
// absorbed into defaults, never surfaced as errors.
func Validate(raw core.RawFragment) core.Fragment {
	speaker := resolveSpeaker(raw)
	score := coerceScore(raw.Importance)
	score = correctScore(speaker, score, raw.Reasoning, raw.Content)

	return core.Fragment{
		Content:    raw.Content,
		Timestamp:  time.Now(),
		Speaker:    speaker,
		Type:       resolveType(raw.Type),
		Sentiment:  resolveSentiment(raw.Sentiment),
		Importance: score,
		Confidence: defaultConfidence,
		Metadata:   map[string]any{"reasoning": raw.Reasoning},
	}
}

// resolveSpeaker defaults to user, unless the content itself is marked as an
// assistant utterance.
func resolveSpeaker(raw core.RawFragment) core.Speaker {
	switch raw.Speaker {
	case string(core.SpeakerUser):
		return core.SpeakerUser
	case string(core.SpeakerAssistant):
		return core.SpeakerAssistant
	}

	head := raw.Content
	if len(head) > 20 {
		head = head[:20]
	}
	if strings.HasPrefix(strings.TrimSpace(raw.Content), "assistant:") || strings.Contains(head, "assistant:") {
		return core.SpeakerAssistant
	}
	return core.SpeakerUser
}

// coerceScore accepts an integer, a float, or a numeric string. Anything else
// falls back to the default. The result is always clamped to [1,10].
func coerceScore(raw json.RawMessage) int {
	score := defaultScore

	if len(raw) > 0 {
		var f float64
		var s string
		if err := json.Unmarshal(raw, &f); err == nil {
			score = toScore(f)
		} else if err := json.Unmarshal(raw, &s); err == nil {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				score = toScore(parsed)
			}
		}
	}

	return clampScore(score)
}

// toScore converts a parsed number, absorbing NaN and infinities into the
// default since int conversion of those is unspecified.
func toScore(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultScore
	}
	return int(f)
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// correctScore applies the speaker-conditioned floor/ceiling rules. Floors
// never lower a score that already clears them; the single reduction rule for
// generic knowledge is the only rule that can drag a score down.
func correctScore(speaker core.Speaker, score int, reasoning, content string) int {
	switch speaker {
	case core.SpeakerUser:
		if containsAny(reasoning, intensityMarkers) && score < 7 {
			score = 7
		}
		if containsAny(reasoning, depthMarkers) && score < 7 {
			score = 7
		}
		if containsAny(reasoning+content, preferenceMarkers) && score < 5 {
			score = 5
		}
		if containsAny(reasoning, genericMarkers) && score > 2 {
			score = clampScore(score - 2)
		}

	case core.SpeakerAssistant:
		if containsAny(reasoning+content, commitmentMarkers) && score < 6 {
			score = 6
		}
		if containsAny(reasoning, adviceMarkers) && score < 5 {
			score = 5
		}
		if containsAny(reasoning+content, supportMarkers) && score < 6 {
			score = 6
		}
		if IsFillerAck(content) && score > 2 {
			score = 2
		}
	}

	return score
}

func resolveType(t string) core.FragmentType {
	switch core.FragmentType(t) {
	case core.TypePreference, core.TypeEvent, core.TypeFact, core.TypeRelationship:
		return core.FragmentType(t)
	}
	return core.TypeFact
}

func resolveSentiment(s string) core.Sentiment {
	switch core.Sentiment(s) {
	case core.SentimentPositive, core.SentimentNeutral, core.SentimentNegative:
		return core.Sentiment(s)
	}
	return core.SentimentNeutral
}
