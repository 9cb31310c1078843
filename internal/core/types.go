package core

import (
	"encoding/json"
	"time"
)

const (
	PeachName    = "PeachBot"
	PeachVersion = "0.1.0"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type FragmentType string

const (
	TypeEvent        FragmentType = "event"
	TypePreference   FragmentType = "preference"
	TypeFact         FragmentType = "fact"
	TypeRelationship FragmentType = "relationship"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Fragment is an atomic unit of remembered information derived from
// conversation. Fragments are immutable once persisted; a correction is a new
// fragment, never an update in place.
type Fragment struct {
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Speaker    Speaker        `json:"speaker"`
	Type       FragmentType   `json:"type"`
	Entities   []string       `json:"entities,omitempty"`
	Topics     []string       `json:"topics,omitempty"`
	Sentiment  Sentiment      `json:"sentiment"`
	Importance int            `json:"importance_score"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RawFragment is what the extraction model actually returns. Every field may
// be missing or malformed; the scorer turns it into a well-formed Fragment.
type RawFragment struct {
	Content    string          `json:"content"`
	Speaker    string          `json:"speaker"`
	Type       string          `json:"type"`
	Sentiment  string          `json:"sentiment"`
	Importance json.RawMessage `json:"importance_score"`
	Reasoning  string          `json:"reasoning"`
}

// Turn is a single buffered conversation turn. Buffers live in process memory
// only and are never persisted.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
