package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/peachbot/peachbot/internal/config"
	"github.com/peachbot/peachbot/internal/core"
	"github.com/peachbot/peachbot/internal/service/memory"
	"github.com/peachbot/peachbot/pkg/log"
)

// dedupSampleSize is how many similar persisted memories a candidate is
// checked against before storage.
const dedupSampleSize = 5

// Manager orchestrates memory-augmented conversation: it buffers turns,
// decides when to extract memories, retrieves relevant ones for prompt
// injection and drives reply generation.
type Manager struct {
	cfg       *config.AppConfig
	generator core.Generator
	extractor core.Extractor
	store     core.MemoryStore
	sessions  core.SessionRepository
	personas  map[string]Persona
	buffers   *buffers
	counter   tokenCounter
	now       func() time.Time
}

func NewManager(
	cfg *config.AppConfig,
	generator core.Generator,
	extractor core.Extractor,
	store core.MemoryStore,
	sessions core.SessionRepository,
	personas map[string]Persona,
) *Manager {
	return &Manager{
		cfg:       cfg,
		generator: generator,
		extractor: extractor,
		store:     store,
		sessions:  sessions,
		personas:  personas,
		buffers:   newBuffers(),
		counter:   newTokenCounter(),
		now:       time.Now,
	}
}

// Persona resolves a role id to a loaded persona, falling back to the
// built-in companion.
func (m *Manager) Persona(roleID string) Persona {
	if persona, ok := m.personas[roleID]; ok {
		return persona
	}
	return defaultPersona()
}

func (m *Manager) sessionKey(userID, sessionID, roleID string) core.SessionKey {
	key := core.SessionKey{UserID: userID, SessionID: sessionID}
	if _, ok := m.personas[roleID]; ok {
		key.RoleID = roleID
	}
	return key
}

// Chat handles one user turn: buffer the message, retrieve and inject
// relevant memories, generate the reply, buffer it, and trigger extraction
// when the buffer reaches the threshold or the caller asks for it.
//
// Only generation failures surface to the caller. Extraction runs best-effort
// and its errors are logged, never returned.
func (m *Manager) Chat(ctx context.Context, userID, sessionID, roleID, message string, extractNow bool) (string, error) {
	logger := log.FromCtx(ctx)
	persona := m.Persona(roleID)
	key := m.sessionKey(userID, sessionID, roleID)

	buf := m.buffers.get(sessionID)
	buf.mu.Lock()
	defer buf.mu.Unlock()

	buf.append(core.Turn{Role: core.RoleUser, Content: message, Timestamp: m.now()})

	scored := m.retrieve(ctx, key, message)
	userPrompt := buildUserPrompt(message, scored, m.counter, m.cfg.MemoryTokenBudget)

	reply, err := m.generator.Generate(ctx, persona.SystemPrompt, userPrompt, persona.Temperature)
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}

	buf.append(core.Turn{Role: core.RoleAssistant, Content: reply, Timestamp: m.now()})

	if extractNow || (m.cfg.ExtractThreshold > 0 && len(buf.turns)%m.cfg.ExtractThreshold == 0) {
		m.dispatchExtraction(ctx, key, buf)
	}

	if err := m.sessions.SetMessageCount(ctx, sessionID, len(buf.turns)); err != nil {
		logger.Warn().Err(err).Str("session", sessionID).Msg("failed to update session turn count")
	}

	return reply, nil
}

// ForceExtract runs the extraction pipeline over the current buffer
// regardless of the threshold. Extraction errors are swallowed as usual.
func (m *Manager) ForceExtract(ctx context.Context, userID, sessionID, roleID string) {
	key := m.sessionKey(userID, sessionID, roleID)
	buf := m.buffers.get(sessionID)
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if len(buf.turns) == 0 {
		return
	}
	m.dispatchExtraction(ctx, key, buf)
}

// Memories lists stored fragments for inspection.
func (m *Manager) Memories(ctx context.Context, userID, sessionID, roleID string, limit int) ([]core.Fragment, error) {
	return m.store.List(ctx, m.sessionKey(userID, sessionID, roleID), limit)
}

// dispatchExtraction runs extraction inline or in the background depending on
// config. The buffer mutex must be held by the caller; background extraction
// works on a snapshot taken here so later turns cannot race with it.
func (m *Manager) dispatchExtraction(ctx context.Context, key core.SessionKey, buf *sessionBuffer) {
	turns := buf.snapshot()
	if m.cfg.TrimAfterExtract {
		buf.clear()
	}

	if m.cfg.BackgroundExtract {
		// Outlives the triggering turn; only cancelled by process shutdown.
		bgCtx := context.WithoutCancel(ctx)
		go m.extractAndStore(bgCtx, key, turns)
		return
	}
	m.extractAndStore(ctx, key, turns)
}

// retrieve ranks stored memories for prompt injection. Retrieval uses a lower
// importance bar than storage so more context surfaces than was strictly
// worth persisting. Failures degrade to an empty memory block.
func (m *Manager) retrieve(ctx context.Context, key core.SessionKey, query string) []memory.Scored {
	hits, err := m.store.Query(ctx, key, query, m.cfg.MaxContextMemories*2)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("memory retrieval failed, replying without memories")
		return nil
	}

	return memory.Rank(m.now(), hits, memory.RetrievalConfig{
		TopK:            m.cfg.MaxContextMemories,
		MinImportance:   m.cfg.RetrieveMinImportance,
		BoostRecent:     true,
		BoostImportance: true,
	})
}

// extractAndStore is the extraction pipeline: one model call over the whole
// transcript, then validation, filtering, boosting, deduplication and
// per-speaker storage thresholds. Nothing here ever returns an error; every
// failure is logged and the pipeline moves on.
func (m *Manager) extractAndStore(ctx context.Context, key core.SessionKey, turns []core.Turn) {
	logger := log.FromCtx(ctx)

	raws, err := m.extractor.Extract(ctx, serializeTranscript(turns))
	if err != nil {
		logger.Warn().Err(err).Msg("memory extraction failed")
		return
	}

	var candidates []core.Fragment
	for _, raw := range raws {
		frag := memory.Validate(raw)
		if !m.keepCandidate(frag) {
			continue
		}
		m.boostCandidate(&frag)
		candidates = append(candidates, frag)
	}

	candidates = memory.DedupeBatch(candidates)
	candidates = m.dropPersistedDuplicates(ctx, key, candidates)

	var keep []core.Fragment
	for _, frag := range candidates {
		threshold := m.cfg.StoreMinImportance
		if frag.Speaker == core.SpeakerAssistant {
			threshold = m.cfg.AssistantStoreMinImportance
		}
		if frag.Importance >= threshold {
			keep = append(keep, frag)
		}
	}
	if len(keep) == 0 {
		logger.Debug().Int("raw", len(raws)).Msg("extraction produced nothing worth storing")
		return
	}

	ids, err := m.store.Store(ctx, key, keep)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to store extracted memories")
		return
	}
	logger.Info().Int("stored", len(ids)).Int("raw", len(raws)).Msg("memories extracted")
}

// keepCandidate applies the speaker-aware discard filters.
func (m *Manager) keepCandidate(frag core.Fragment) bool {
	if memory.IsQuestion(frag.Content) {
		return false
	}
	switch frag.Speaker {
	case core.SpeakerUser:
		// Callbacks to earlier assistant utterances are kept even without a
		// first-person opener; they get the reference boost later.
		return memory.HasFirstPerson(frag.Content) || memory.IsReference(frag.Content)
	case core.SpeakerAssistant:
		return !memory.IsFillerAck(frag.Content)
	}
	return true
}

// boostCandidate floors scores for identity statements and callbacks to
// earlier assistant utterances. Runs before deduplication so the boosted
// fragment is what survives.
func (m *Manager) boostCandidate(frag *core.Fragment) {
	if frag.Speaker != core.SpeakerUser {
		return
	}
	if memory.IsIdentityInfo(frag.Content) && frag.Importance < 5 {
		frag.Importance = 5
	}
	if memory.IsReference(frag.Content) {
		if frag.Importance < 7 {
			frag.Importance = 7
		}
		if frag.Metadata == nil {
			frag.Metadata = map[string]any{}
		}
		frag.Metadata["is_reference"] = true
	}
}

// dropPersistedDuplicates checks each candidate against its closest stored
// neighbors. Storage failures count as "not duplicate" so a flaky store never
// blocks extraction.
func (m *Manager) dropPersistedDuplicates(ctx context.Context, key core.SessionKey, candidates []core.Fragment) []core.Fragment {
	logger := log.FromCtx(ctx)

	var keep []core.Fragment
	for _, frag := range candidates {
		hits, err := m.store.Query(ctx, key, frag.Content, dedupSampleSize)
		if err != nil {
			logger.Warn().Err(err).Msg("dedup lookup failed, keeping candidate")
			keep = append(keep, frag)
			continue
		}

		existing := make([]string, 0, len(hits))
		for _, hit := range hits {
			existing = append(existing, hit.Fragment.Content)
		}
		if memory.DuplicatesAny(frag.Content, existing) {
			logger.Debug().Str("content", frag.Content).Msg("dropping duplicate memory")
			continue
		}
		keep = append(keep, frag)
	}
	return keep
}
