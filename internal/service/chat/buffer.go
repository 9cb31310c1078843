package chat

import (
	"slices"
	"sync"

	"github.com/peachbot/peachbot/internal/core"
)

// sessionBuffer holds the in-flight turns of one session. Its mutex also
// serializes whole chat turns, so at most one Chat call mutates a session at
// a time while other sessions proceed in parallel.
type sessionBuffer struct {
	mu    sync.Mutex
	turns []core.Turn
}

func (b *sessionBuffer) append(turn core.Turn) {
	b.turns = append(b.turns, turn)
}

func (b *sessionBuffer) snapshot() []core.Turn {
	return slices.Clone(b.turns)
}

func (b *sessionBuffer) clear() {
	b.turns = nil
}

// buffers maps session ids to their buffers. Buffers live for the process
// lifetime and are never persisted.
type buffers struct {
	mu sync.Mutex
	m  map[string]*sessionBuffer
}

func newBuffers() *buffers {
	return &buffers{m: make(map[string]*sessionBuffer)}
}

func (b *buffers) get(sessionID string) *sessionBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.m[sessionID]
	if !ok {
		buf = &sessionBuffer{}
		b.m[sessionID] = buf
	}
	return buf
}
