// Package session manages viewer sessions over story sets.
//
// A session pairs one story.Set with one playback.Controller and fans the
// controller's events out to any number of watchers. Sessions are never
// resurrected: replaying a set means opening a new session.
package session

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/storybox/internal/app/playback"
	"github.com/osa030/storybox/internal/app/session/registry"
	"github.com/osa030/storybox/internal/domain/story"
	"github.com/osa030/storybox/internal/infra/config"
)

// ErrSessionNotFound is returned when a session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Session is one run of a set through a playback controller.
type Session struct {
	ID         string
	Set        *story.Set
	Controller *playback.Controller

	watchers *registry.Watchers
	done     chan struct{}
}

// Manager creates and tracks sessions.
type Manager struct {
	mu       sync.RWMutex
	base     config.PlaybackConfig
	sessions map[string]*Session
}

// NewManager creates a session manager with the given base playback config.
func NewManager(base config.PlaybackConfig) *Manager {
	return &Manager{
		base:     base,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session for the set, merging per-set overrides onto the
// base playback configuration. The controller is created idle; the caller
// decides when to Start it.
func (m *Manager) Open(set *story.Set, overrides config.SetOverrides) (*Session, error) {
	if err := set.Validate(); err != nil {
		return nil, errors.Wrap(err, "cannot open session")
	}

	merged := overrides.Apply(m.base)
	ctrl, err := playback.New(playback.Config{
		ItemCount:    set.Len(),
		ItemDuration: merged.ItemDuration(),
		TickPeriod:   merged.TickPeriod(),
		SettleDelay:  merged.SettleDelay(),
		Loop:         merged.Loop,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot create controller")
	}

	s := &Session{
		ID:         uuid.New().String(),
		Set:        set,
		Controller: ctrl,
		watchers:   registry.NewWatchers(),
		done:       make(chan struct{}),
	}
	go s.pump()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	zlog.Debug().Msgf("session: opened: id=%s set=%s items=%d duration=%v loop=%v",
		s.ID, set.ID, set.Len(), merged.ItemDuration(), merged.Loop)

	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session and removes it from the manager.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	return nil
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Watch registers an event channel and returns the subscription ID.
func (s *Session) Watch(ch chan<- playback.Event) string {
	return s.watchers.Subscribe(ch)
}

// Unwatch removes a subscription.
func (s *Session) Unwatch(id string) {
	s.watchers.Unsubscribe(id)
}

// CurrentStory returns the story currently showing.
func (s *Session) CurrentStory() (story.Story, bool) {
	return s.Set.Story(s.Controller.CurrentIndex())
}

// Done is closed once the session's event pump has drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// pump forwards controller events to watchers until the controller closes.
func (s *Session) pump() {
	for e := range s.Controller.Events() {
		s.watchers.Broadcast(e)
	}
	close(s.done)
}

func (s *Session) close() {
	s.Controller.Close()
	<-s.done
	s.watchers.Close()
}
