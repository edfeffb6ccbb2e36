// Package session keeps per-login state that is not persisted: the learning
// style found on the Learning Style page and the counselor chat transcript.
// Everything here is lost on restart.
package session

import (
	"errors"
	"sync"
	"time"

	"CuteTutor/internal/tutor"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

type State struct {
	ID        string
	Username  string
	ExpiresAt time.Time

	// 상담 턴(모델 호출 포함)을 세션 단위로 직렬화
	turnMu sync.Mutex

	mu            sync.Mutex
	learningStyle string
	chatHistory   []tutor.Turn
}

// LearningStyle returns the analyzed style, or the default when none was set.
func (s *State) LearningStyle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.learningStyle == "" {
		return tutor.DefaultStyle
	}
	return s.learningStyle
}

func (s *State) SetLearningStyle(style string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learningStyle = style
}

// ChatHistory returns a copy of the counselor transcript.
func (s *State) ChatHistory() []tutor.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tutor.Turn(nil), s.chatHistory...)
}

func (s *State) AppendTurn(turn tutor.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatHistory = append(s.chatHistory, turn)
}

// Exchange runs one counselor turn. respond receives the transcript with child
// appended; child and the reply are recorded together only when respond
// succeeds. Exchanges on one session run one at a time.
func (s *State) Exchange(child tutor.Turn, respond func(history []tutor.Turn) (string, error)) (string, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	reply, err := respond(append(s.ChatHistory(), child))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.chatHistory = append(s.chatHistory, child, tutor.Turn{Speaker: tutor.SpeakerTutor, Text: reply})
	s.mu.Unlock()
	return reply, nil
}

func (s *State) ResetChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatHistory = nil
}

// Manager holds live sessions. A session expires together with the token
// issued for it; ttl <= 0 keeps sessions until Delete.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{sessions: make(map[string]*State), ttl: ttl, now: time.Now}
}

// Create starts a session for username and drops sessions that have expired.
func (m *Manager) Create(username string) *State {
	now := m.now()
	st := &State{ID: uuid.New().String(), Username: username}
	if m.ttl > 0 {
		st.ExpiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, old := range m.sessions {
		if old.expired(now) {
			delete(m.sessions, id)
		}
	}
	m.sessions[st.ID] = st
	return st
}

// Get returns the session id if it exists, has not expired and belongs to
// username.
func (m *Manager) Get(id, username string) (*State, error) {
	m.mu.RLock()
	st, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || st.Username != username {
		return nil, ErrSessionNotFound
	}
	if st.expired(m.now()) {
		m.Delete(id)
		return nil, ErrSessionNotFound
	}
	return st, nil
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len reports the number of sessions currently held.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (s *State) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
