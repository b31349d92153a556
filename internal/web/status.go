package web

import (
	"sync"

	"github.com/atmx/betting-dashboard/internal/engine"
	"github.com/atmx/betting-dashboard/internal/hub"
)

// Broadcaster is the part of the WebSocket hub the web layer needs.
type Broadcaster interface {
	Broadcast(msg hub.Message)
}

// StatusBoard keeps the latest line for each status region and forwards
// every line to connected pages. It is the engine's StatusSink.
type StatusBoard struct {
	mu   sync.RWMutex
	last map[string]string
	b    Broadcaster
}

// NewStatusBoard creates a board. b may be nil.
func NewStatusBoard(b Broadcaster) *StatusBoard {
	return &StatusBoard{
		last: map[string]string{
			engine.AutoRollTarget: engine.MsgReady,
			engine.MultiplyTarget: "",
		},
		b: b,
	}
}

func (sb *StatusBoard) Publish(st engine.Status) {
	sb.mu.Lock()
	sb.last[st.Target] = st.HTML
	sb.mu.Unlock()

	if sb.b != nil {
		sb.b.Broadcast(hub.Message{
			Type:   hub.TypeStatus,
			Target: st.Target,
			HTML:   st.HTML,
			RunID:  st.RunID,
		})
	}
}

// Last returns the current line for target.
func (sb *StatusBoard) Last(target string) string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.last[target]
}

// All returns a copy of every region's current line.
func (sb *StatusBoard) All() map[string]string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	out := make(map[string]string, len(sb.last))
	for k, v := range sb.last {
		out[k] = v
	}
	return out
}
