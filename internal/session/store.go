// Package session owns the generation session: prompt, per-module
// parameters, the bounded history and the in-flight correlation id.
package session

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// Change describes what a mutation did, for listeners.
type Change int

const (
	// Mutated means state changed and should be snapshotted.
	Mutated Change = iota
	// Cleared means the session was reset and the stored snapshot should be erased.
	Cleared
)

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the history bound. Values below 1 keep the default.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds one SessionState behind a mutex. The generation primitives
// (Begin, Complete, Abandon) each run as one critical section, which is what
// keeps late results of a superseded submission out of the history.
type Store struct {
	capacity int
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     domain.SessionState
	listeners []func(Change)
}

// NewStore creates a store holding the default session.
func NewStore(opts ...Option) *Store {
	s := &Store{
		capacity: domain.DefaultHistoryCapacity,
		logger:   slog.Default(),
		now:      time.Now,
		state:    domain.DefaultSessionState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the history bound.
func (s *Store) Capacity() int {
	return s.capacity
}

// OnChange registers fn to run after every mutation, outside the lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// InFlight returns the correlation id of the running submission, if any.
func (s *Store) InFlight() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InFlightCorrelationID
}

// Restore replaces the state with a sanitized copy of st: unknown modules
// and modes fall back to defaults, history is trimmed to capacity and the
// in-flight id is cleared. It does not notify listeners.
func (s *Store) Restore(st domain.SessionState) {
	clean := s.sanitize(st)

	s.mu.Lock()
	s.state = clean
	s.mu.Unlock()
}

// SetPrompt sets the current prompt.
func (s *Store) SetPrompt(prompt string) {
	s.mutate(func(st *domain.SessionState) {
		st.Prompt = prompt
	})
}

// ActiveParameters returns a copy of the parameters remembered for the
// active module, zero when none were set.
func (s *Store) ActiveParameters() domain.Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PerModuleParameters[s.state.ActiveModule].Clone()
}

// Patch is a partial update of the session. Nil fields are left alone.
type Patch struct {
	Prompt       *string
	ActiveModule *domain.Module
	Mode         *domain.Mode
	Parameters   map[domain.Module]domain.Parameters
}

// Apply validates the whole patch, then applies it in one critical section
// with a single change notification. Nothing is applied when any field is
// invalid.
func (s *Store) Apply(p Patch) error {
	if p.ActiveModule != nil {
		if err := validModule(*p.ActiveModule, "activeModule"); err != nil {
			return err
		}
	}
	if p.Mode != nil {
		if err := validMode(*p.Mode); err != nil {
			return err
		}
	}
	for m, params := range p.Parameters {
		if err := validModule(m, "perModuleParameters"); err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return err
		}
	}
	if p.Prompt == nil && p.ActiveModule == nil && p.Mode == nil && len(p.Parameters) == 0 {
		return nil
	}

	s.mutate(func(st *domain.SessionState) {
		if p.Prompt != nil {
			st.Prompt = *p.Prompt
		}
		if p.ActiveModule != nil {
			st.ActiveModule = *p.ActiveModule
		}
		if p.Mode != nil {
			st.Mode = *p.Mode
		}
		for m, params := range p.Parameters {
			st.PerModuleParameters[m] = params.Clone()
		}
	})
	return nil
}

// SetModule switches the active feature area.
func (s *Store) SetModule(m domain.Module) error {
	if err := validModule(m, "activeModule"); err != nil {
		return err
	}
	s.mutate(func(st *domain.SessionState) {
		st.ActiveModule = m
	})
	return nil
}

// SetMode switches between generate and refine.
func (s *Store) SetMode(m domain.Mode) error {
	if err := validMode(m); err != nil {
		return err
	}
	s.mutate(func(st *domain.SessionState) {
		st.Mode = m
	})
	return nil
}

// SetParameter replaces the parameters remembered for module.
func (s *Store) SetParameter(m domain.Module, p domain.Parameters) error {
	if err := validModule(m, "module"); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mutate(func(st *domain.SessionState) {
		st.PerModuleParameters[m] = p.Clone()
	})
	return nil
}

// PushArtifacts prepends list, given in completion order, so that the last
// completed artifact ends up first. The oldest entries past capacity are
// evicted.
func (s *Store) PushArtifacts(list []domain.Artifact) {
	if len(list) == 0 {
		return
	}
	s.mutate(func(st *domain.SessionState) {
		st.History = s.prepend(st.History, list)
	})
}

// RemoveArtifact deletes one history entry.
func (s *Store) RemoveArtifact(id string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.state.History, func(a domain.Artifact) bool { return a.ID == id })
	s.mu.Unlock()
	if idx < 0 {
		return domain.ErrNotFound("artifact", id)
	}

	s.mutate(func(st *domain.SessionState) {
		st.History = slices.DeleteFunc(st.History, func(a domain.Artifact) bool { return a.ID == id })
	})
	return nil
}

// ClearHistory empties the history and keeps everything else.
func (s *Store) ClearHistory() {
	s.mutate(func(st *domain.SessionState) {
		st.History = []domain.Artifact{}
	})
}

// ClearAll resets the session to defaults, including the in-flight id, and
// tells listeners to erase the stored snapshot. Results of a submission
// still running are discarded when they arrive.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.state = domain.DefaultSessionState()
	s.mu.Unlock()

	s.logger.Info("session cleared")
	s.notify(Cleared)
}

// Begin marks correlationID as the in-flight submission. When another id is
// in flight and allowSupersede is false it returns a conflict error;
// otherwise it returns the superseded id ("" when none).
func (s *Store) Begin(correlationID string, allowSupersede bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.InFlightCorrelationID
	if prev != "" && !allowSupersede {
		return "", domain.ErrGenerationInFlight(prev)
	}
	s.state.InFlightCorrelationID = correlationID
	return prev, nil
}

// Complete merges artifacts into the history and clears the in-flight id,
// but only while correlationID is still the in-flight submission. It
// reports whether the merge happened.
func (s *Store) Complete(correlationID string, artifacts []domain.Artifact) bool {
	s.mu.Lock()
	if s.state.InFlightCorrelationID != correlationID {
		s.mu.Unlock()
		return false
	}
	s.state.History = s.prepend(s.state.History, artifacts)
	s.state.InFlightCorrelationID = ""
	s.state.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	s.notify(Mutated)
	return true
}

// Abandon clears the in-flight id without touching history, only while
// correlationID is still current. It reports whether anything changed.
func (s *Store) Abandon(correlationID string) bool {
	s.mu.Lock()
	if s.state.InFlightCorrelationID != correlationID {
		s.mu.Unlock()
		return false
	}
	s.state.InFlightCorrelationID = ""
	s.state.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	s.notify(Mutated)
	return true
}

func validModule(m domain.Module, param string) error {
	if m.Valid() {
		return nil
	}
	return domain.ErrConfiguration("unknown module " + string(m)).
		WithCode(domain.ErrorCodeInvalidParameter).
		WithParam(param)
}

func validMode(m domain.Mode) error {
	if m.Valid() {
		return nil
	}
	return domain.ErrConfiguration("unknown mode " + string(m)).
		WithCode(domain.ErrorCodeInvalidParameter).
		WithParam("mode")
}

func (s *Store) mutate(fn func(st *domain.SessionState)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	s.notify(Mutated)
}

// prepend returns reverse(list) followed by history, capped at capacity.
func (s *Store) prepend(history, list []domain.Artifact) []domain.Artifact {
	out := make([]domain.Artifact, 0, min(len(list)+len(history), s.capacity))
	for i := len(list) - 1; i >= 0 && len(out) < s.capacity; i-- {
		out = append(out, list[i])
	}
	for _, a := range history {
		if len(out) == s.capacity {
			break
		}
		out = append(out, a)
	}
	return out
}

func (s *Store) sanitize(st domain.SessionState) domain.SessionState {
	st = st.Clone()
	def := domain.DefaultSessionState()

	if !st.ActiveModule.Valid() {
		st.ActiveModule = def.ActiveModule
	}
	if !st.Mode.Valid() {
		st.Mode = def.Mode
	}
	for m := range st.PerModuleParameters {
		if !m.Valid() {
			s.logger.Warn("dropping parameters for unknown module", slog.String("module", string(m)))
			delete(st.PerModuleParameters, m)
		}
	}
	if len(st.History) > s.capacity {
		st.History = st.History[:s.capacity]
	}
	st.InFlightCorrelationID = ""
	return st
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
}
