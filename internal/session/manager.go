package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation tagged with its speaker.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var ErrInvalidSessionData = errors.New("invalid session data")

// Store keeps conversation history keyed by a client-supplied session id.
type Store interface {
	Save(sessionID string, turns []Turn) error
	Load(sessionID string) []Turn
}

type Session struct {
	ID        string    `json:"session_id"`
	Turns     []Turn    `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager is the process-lifetime in-memory Store. Saves replace the stored
// history wholesale; sessions are never expired.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onSave   func(sessionID string, turns int)
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) SetSaveHook(hook func(sessionID string, turns int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSave = hook
}

func (m *Manager) Save(sessionID string, turns []Turn) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidSessionData)
	}
	if turns == nil {
		return fmt.Errorf("%w: messages must be a list", ErrInvalidSessionData)
	}
	if err := ValidateTurns(turns); err != nil {
		return err
	}

	s := &Session{
		ID:        id,
		Turns:     cloneTurns(turns),
		UpdatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	hook := m.onSave
	m.mu.Unlock()

	if hook != nil {
		hook(id, len(turns))
	}
	return nil
}

// Load returns a copy of the stored history, or an empty slice for unknown ids.
func (m *Manager) Load(sessionID string) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return []Turn{}
	}
	return cloneTurns(s.Turns)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ValidateTurns reports the first turn whose role is not system, user or assistant.
func ValidateTurns(turns []Turn) error {
	for i, t := range turns {
		if !validRole(t.Role) {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidSessionData, i, t.Role)
		}
	}
	return nil
}

func validRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

func cloneTurns(in []Turn) []Turn {
	out := make([]Turn, len(in))
	copy(out, in)
	return out
}
