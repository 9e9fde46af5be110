package state

import (
	"sync"
	"time"

	"StockSimDesk/internal/model"

	"github.com/rs/zerolog"
)

// Manager guards the relay state and persists every change.
// An empty file path keeps the state in memory only.
type Manager struct {
	mu       sync.Mutex
	state    *RelayState
	filePath string
	log      zerolog.Logger
}

// NewManager creates a Manager, loading state from disk when filePath is set.
func NewManager(filePath string, log zerolog.Logger) (*Manager, error) {
	st := &RelayState{}
	if filePath != "" {
		loaded, err := LoadState(filePath)
		if err != nil {
			return nil, err
		}
		st = loaded
	}
	m := &Manager{state: st, filePath: filePath, log: log.With().Str("component", "state").Logger()}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() RelayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := *m.state
	st.RelayedIDs = append([]string(nil), m.state.RelayedIDs...)
	return st
}

// Unseen returns the unread notifications that were never relayed.
func (m *Manager) Unseen(list []model.Notification) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(m.state.RelayedIDs))
	for _, id := range m.state.RelayedIDs {
		seen[id] = struct{}{}
	}
	var out []model.Notification
	for _, n := range list {
		if n.IsRead || n.ID == "" {
			continue
		}
		if _, ok := seen[n.ID]; ok {
			continue
		}
		out = append(out, n)
	}
	return out
}

// MarkRelayed remembers ids, keeping the newest MaxRelayed.
func (m *Manager) MarkRelayed(ids ...string) {
	if len(ids) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.RelayedIDs = append(m.state.RelayedIDs, ids...)
	if len(m.state.RelayedIDs) > MaxRelayed {
		m.state.RelayedIDs = m.state.RelayedIDs[len(m.state.RelayedIDs)-MaxRelayed:]
	}
	m.persist("relay")
}

// RecordDigest stores the time of the last daily digest.
func (m *Manager) RecordDigest(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastDigestAt = t
	m.persist("digest")
}

// RecordMonthly stores the time of the last monthly report.
func (m *Manager) RecordMonthly(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastMonthlyAt = t
	m.persist("monthly")
}

// RecordSync stores the outcome of the last receipt sync.
func (m *Manager) RecordSync(t time.Time, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastSyncAt = t
	m.state.LastSyncCount = count
	m.persist("sync")
}

// persist saves with the lock held and logs failures.
func (m *Manager) persist(what string) {
	if err := m.save(); err != nil {
		m.log.Error().Err(err).Str("after", what).Msg("failed to save relay state")
	}
}

func (m *Manager) save() error {
	if m.filePath == "" {
		return nil
	}
	return SaveState(m.filePath, m.state)
}
