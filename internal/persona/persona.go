// Package persona tracks the per-user assistant role selection.
package persona

import "sync"

type Role string

const (
	Standard    Role = "standard"
	Philosopher Role = "philosopher"
	Programmer  Role = "programmer"
	Comedian    Role = "comedian"
)

var prompts = map[Role]string{
	Standard:    "Ты – полезный ассистент.",
	Philosopher: "Ты – мудрый философ, дающий глубокие размышления.",
	Programmer:  "Ты – опытный программист, объясняющий технические темы просто.",
	Comedian:    "Ты – комик, который отвечает с юмором и шутками.",
}

// Parse maps a raw role name to a Role, reporting whether it is one of the
// known personas.
func Parse(s string) (Role, bool) {
	r := Role(s)
	_, ok := prompts[r]
	return r, ok
}

// Manager keys the selected persona by user id, defaulting to Standard.
type Manager struct {
	mu    sync.Mutex
	roles map[int64]Role
}

func NewManager() *Manager {
	return &Manager{roles: make(map[int64]Role)}
}

func (m *Manager) Get(userID int64) Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.roles[userID]; ok {
		return r
	}
	return Standard
}

func (m *Manager) Set(userID int64, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[userID] = role
}

// SystemPrompt returns the system-prompt text for the user's current persona.
func (m *Manager) SystemPrompt(userID int64) string {
	return prompts[m.Get(userID)]
}
