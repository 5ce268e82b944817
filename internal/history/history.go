// Package history holds the per-user rolling conversation window that is
// sent alongside each completion request.
package history

import (
	"sync"

	"relaybot/internal/llm"
)

// WindowSize is the per-user turn capacity. Appending to a full window
// evicts the oldest turn.
const WindowSize = 10

type Manager struct {
	mu       sync.Mutex
	sessions map[int64][]llm.Message
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64][]llm.Message)}
}

func (m *Manager) AppendUser(userID int64, content string) {
	m.append(userID, llm.Message{Role: "user", Content: content})
}

func (m *Manager) AppendAssistant(userID int64, content string) {
	m.append(userID, llm.Message{Role: "assistant", Content: content})
}

func (m *Manager) AppendSystem(userID int64, content string) {
	m.append(userID, llm.Message{Role: "system", Content: content})
}

func (m *Manager) append(userID int64, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[userID]
	if len(s) >= WindowSize {
		// FIFO eviction: shift left, drop the oldest turn.
		copy(s, s[1:])
		s[len(s)-1] = msg
	} else {
		s = append(s, msg)
	}
	m.sessions[userID] = s
}

// Window returns a copy of the user's current turns, oldest first. Empty for
// users that were never touched.
func (m *Manager) Window(userID int64) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[userID]
	out := make([]llm.Message, len(s))
	copy(out, s)
	return out
}

// Clear empties the user's window. Callers may immediately re-seed it with a
// fresh system turn.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Install replaces the user's window wholesale, keeping at most the last
// WindowSize turns. Used by Restore.
func (m *Manager) Install(userID int64, msgs []llm.Message) {
	if len(msgs) > WindowSize {
		msgs = msgs[len(msgs)-WindowSize:]
	}
	s := make([]llm.Message, len(msgs))
	copy(s, msgs)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}
