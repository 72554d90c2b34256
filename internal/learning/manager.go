package learning

import (
	"errors"
	"fmt"
	"sync"

	"saysh/internal/actions"
	"saysh/internal/logging"
)

// ErrPersist marks a failed flush. The in-memory record is still updated.
var ErrPersist = errors.New("learning data not persisted")

// Manager owns the live record and flushes it after every mutation.
// After the first failed flush it stops writing for the rest of the session.
type Manager struct {
	mu       sync.Mutex
	store    Store
	rec      *Record
	degraded bool
}

// NewManager returns a manager with an empty record; call Load to read
// persisted state.
func NewManager(store Store) *Manager {
	return &Manager{store: store, rec: NewRecord()}
}

// Load replaces the live record with the persisted one. On failure the
// record stays empty and the error is returned for the caller to report.
func (m *Manager) Load() error {
	rec, err := m.store.Load()

	m.mu.Lock()
	defer m.mu.Unlock()
	if rec == nil {
		rec = NewRecord()
	}
	m.rec = rec
	if err != nil {
		logging.LearningWarn("Starting with empty learning data: %v", err)
		return err
	}
	logging.Learning("Loaded learning data: %d corrections, %d successful parses",
		len(rec.Corrections), len(rec.SuccessfulParses))
	return nil
}

// Degraded reports whether persistence has been given up for this session.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Snapshot returns a copy of the live record.
func (m *Manager) Snapshot() *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.Clone()
}

// Correction finds the stored correction whose source text is most similar
// to text, provided the similarity exceeds threshold.
func (m *Manager) Correction(text string, similarity func(a, b string) float64, threshold float64) (actions.ID, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rec.Corrections) == 0 {
		return "", "", false
	}

	needle := fold(text)
	var (
		bestKey   string
		bestScore float64
	)
	for _, key := range m.rec.correctionKeys() {
		score := similarity(needle, fold(key))
		if score > threshold && score > bestScore {
			bestKey, bestScore = key, score
		}
	}
	if bestKey == "" {
		return "", "", false
	}
	logging.LearningDebug("Correction %q -> %s (score %.1f)", bestKey, m.rec.Corrections[bestKey], bestScore)
	return m.rec.Corrections[bestKey], bestKey, true
}

// RecordResolution counts a confirmed resolution of id and flushes.
func (m *Manager) RecordResolution(id actions.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.Frequencies[id]++
	return m.flushLocked()
}

// RecordFeedback applies a user verdict and flushes. action is the correct
// action when the parse was wrong, or empty.
func (m *Manager) RecordFeedback(text string, correct bool, action actions.ID) error {
	if action.IsTerminal() {
		return fmt.Errorf("correction %q: %w", action, actions.ErrTerminalAction)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.Feedback(text, correct, action)
	logging.Learning("Feedback for %q: correct=%v action=%s", text, correct, action)
	return m.flushLocked()
}

func (m *Manager) flushLocked() error {
	if m.degraded {
		return nil
	}
	if err := m.store.Save(m.rec); err != nil {
		m.degraded = true
		logging.LearningWarn("Learning persistence disabled for this session: %v", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
