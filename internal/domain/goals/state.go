package goals

import (
	"sync"

	"github.com/adanyl0v/smart-goals/internal/models"
)

// Snapshot is a point-in-time copy of a State.
type Snapshot struct {
	Goals   []models.Goal `json:"goals"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

// State holds the goals of one session together with its loading and
// error flags. Only the sync session of this package mutates it; everyone
// else reads snapshots.
type State struct {
	mu       sync.RWMutex
	goals    []models.Goal
	loading  bool
	err      string
	closed   bool
	nextID   int
	watchers map[int]func(Snapshot)
}

func NewState() *State {
	return &State{
		goals:    []models.Goal{},
		loading:  true,
		watchers: make(map[int]func(Snapshot)),
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Watch calls fn with a fresh snapshot after every change until the
// returned function is called or the state is closed.
func (s *State) Watch(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Close drops all watchers. Later mutations are ignored.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.watchers = make(map[int]func(Snapshot))
}

func (s *State) begin() {
	s.mutate(func() {
		s.loading = true
		s.err = ""
	})
}

func (s *State) replace(goals []models.Goal) {
	s.mutate(func() {
		s.goals = goals
		s.loading = false
	})
}

// reset starts over for another user: no goals and no error.
func (s *State) reset(loading bool) {
	s.mutate(func() {
		s.goals = []models.Goal{}
		s.loading = loading
		s.err = ""
	})
}

// fail records a user-facing message and keeps the last known goals.
func (s *State) fail(message string) {
	s.mutate(func() {
		s.err = message
		s.loading = false
	})
}

func (s *State) mutate(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	snap := s.snapshotLocked()
	watchers := make([]func(Snapshot), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(snap)
	}
}

func (s *State) snapshotLocked() Snapshot {
	goals := make([]models.Goal, len(s.goals))
	for i, g := range s.goals {
		goals[i] = g.Clone()
	}
	return Snapshot{
		Goals:   goals,
		Loading: s.loading,
		Error:   s.err,
	}
}
