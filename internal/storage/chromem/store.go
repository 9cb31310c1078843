package chromem

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/peachbot/peachbot/internal/core"
	"github.com/peachbot/peachbot/pkg/log"
)

// listProbe is the query text used when listing a collection without a real
// search query. With nResults equal to the collection size every document
// comes back regardless of similarity.
const listProbe = "记忆"

// Store persists memory fragments in an embedded chromem-go vector database.
// Each session key maps to its own collection.
type Store struct {
	db       *chromem.DB
	embedder core.Embedder
}

func New(path string, embedder core.Embedder) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory db: %w", err)
	}
	return &Store{db: db, embedder: embedder}, nil
}

func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

func (s *Store) collection(key core.SessionKey) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(key.Collection(), nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", key.Collection(), err)
	}
	return col, nil
}

// Store embeds and persists the given fragments, returning their assigned IDs.
func (s *Store) Store(ctx context.Context, key core.SessionKey, fragments []core.Fragment) ([]string, error) {
	if len(fragments) == 0 {
		return nil, nil
	}

	col, err := s.collection(key)
	if err != nil {
		return nil, err
	}

	logger := log.FromCtx(ctx)
	ids := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		id := uuid.NewString()
		doc := chromem.Document{
			ID:       id,
			Content:  frag.Content,
			Metadata: encodeMetadata(frag),
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return ids, fmt.Errorf("failed to store fragment: %w", err)
		}
		logger.Debug().
			Str("id", id).
			Str("speaker", string(frag.Speaker)).
			Int("importance", frag.Importance).
			Msg("memory stored")
		ids = append(ids, id)
	}
	return ids, nil
}

// Query runs a similarity search and returns hits with their distances.
func (s *Store) Query(ctx context.Context, key core.SessionKey, query string, limit int) ([]core.MemoryHit, error) {
	col, err := s.collection(key)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	results, err := col.Query(ctx, query, min(limit, count), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("memory query failed: %w", err)
	}

	logger := log.FromCtx(ctx)
	hits := make([]core.MemoryHit, 0, len(results))
	for _, res := range results {
		frag, err := decodeResult(res)
		if err != nil {
			logger.Warn().Err(err).Str("id", res.ID).Msg("skipping unreadable memory")
			continue
		}
		hits = append(hits, core.MemoryHit{
			Fragment: frag,
			// chromem reports cosine similarity, the ranker expects distance.
			Distance: 1 - float64(res.Similarity),
		})
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context, key core.SessionKey) (int, error) {
	col, err := s.collection(key)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Delete drops the whole collection for a session key.
func (s *Store) Delete(ctx context.Context, key core.SessionKey) error {
	if err := s.db.DeleteCollection(key.Collection()); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", key.Collection(), err)
	}
	return nil
}

// List returns up to limit fragments ordered oldest first. Intended for
// inspection, not retrieval; ranking does not apply here.
func (s *Store) List(ctx context.Context, key core.SessionKey, limit int) ([]core.Fragment, error) {
	col, err := s.collection(key)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	results, err := col.Query(ctx, listProbe, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("memory list failed: %w", err)
	}

	logger := log.FromCtx(ctx)
	fragments := make([]core.Fragment, 0, len(results))
	for _, res := range results {
		frag, err := decodeResult(res)
		if err != nil {
			logger.Warn().Err(err).Str("id", res.ID).Msg("skipping unreadable memory")
			continue
		}
		fragments = append(fragments, frag)
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Timestamp.Before(fragments[j].Timestamp)
	})
	if limit > 0 && len(fragments) > limit {
		fragments = fragments[:limit]
	}
	return fragments, nil
}

func encodeMetadata(frag core.Fragment) map[string]string {
	meta := map[string]string{
		"speaker":    string(frag.Speaker),
		"type":       string(frag.Type),
		"sentiment":  string(frag.Sentiment),
		"importance": strconv.Itoa(frag.Importance),
		"confidence": strconv.FormatFloat(frag.Confidence, 'f', -1, 64),
		"timestamp":  frag.Timestamp.Format(time.RFC3339),
	}
	if len(frag.Entities) > 0 {
		meta["entities"] = strings.Join(frag.Entities, ",")
	}
	if len(frag.Topics) > 0 {
		meta["topics"] = strings.Join(frag.Topics, ",")
	}
	if reasoning, ok := frag.Metadata["reasoning"].(string); ok && reasoning != "" {
		meta["reasoning"] = reasoning
	}
	if ref, ok := frag.Metadata["is_reference"].(bool); ok && ref {
		meta["is_reference"] = "true"
	}
	return meta
}

func decodeResult(res chromem.Result) (core.Fragment, error) {
	frag := core.Fragment{
		Content:   res.Content,
		Speaker:   core.Speaker(res.Metadata["speaker"]),
		Type:      core.FragmentType(res.Metadata["type"]),
		Sentiment: core.Sentiment(res.Metadata["sentiment"]),
	}
	if frag.Content == "" {
		return frag, fmt.Errorf("empty content for %s", res.ID)
	}

	importance, err := strconv.Atoi(res.Metadata["importance"])
	if err != nil {
		return frag, fmt.Errorf("bad importance for %s: %w", res.ID, err)
	}
	frag.Importance = importance

	if conf, err := strconv.ParseFloat(res.Metadata["confidence"], 64); err == nil {
		frag.Confidence = conf
	}
	if ts, err := time.Parse(time.RFC3339, res.Metadata["timestamp"]); err == nil {
		frag.Timestamp = ts
	}
	if entities := res.Metadata["entities"]; entities != "" {
		frag.Entities = strings.Split(entities, ",")
	}
	if topics := res.Metadata["topics"]; topics != "" {
		frag.Topics = strings.Split(topics, ",")
	}

	frag.Metadata = map[string]any{}
	if reasoning := res.Metadata["reasoning"]; reasoning != "" {
		frag.Metadata["reasoning"] = reasoning
	}
	if res.Metadata["is_reference"] == "true" {
		frag.Metadata["is_reference"] = true
	}
	return frag, nil
}
