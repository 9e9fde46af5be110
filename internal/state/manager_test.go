package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"StockSimDesk/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnseen_SkipsReadAndRelayed(t *testing.T) {
	m, err := NewManager("", zerolog.Nop())
	require.NoError(t, err)

	list := []model.Notification{
		{ID: "1", IsRead: false},
		{ID: "2", IsRead: true},
		{ID: "3", IsRead: false},
		{ID: "", IsRead: false},
	}
	unseen := m.Unseen(list)
	require.Len(t, unseen, 2)

	m.MarkRelayed("1")
	unseen = m.Unseen(list)
	require.Len(t, unseen, 1)
	assert.Equal(t, "3", unseen[0].ID)
}

func TestMarkRelayed_Bounded(t *testing.T) {
	m, err := NewManager("", zerolog.Nop())
	require.NoError(t, err)

	for i := 0; i < MaxRelayed+20; i++ {
		m.MarkRelayed(fmt.Sprintf("n-%d", i))
	}
	st := m.GetState()
	require.Len(t, st.RelayedIDs, MaxRelayed)
	assert.Equal(t, "n-20", st.RelayedIDs[0])
	assert.Equal(t, fmt.Sprintf("n-%d", MaxRelayed+19), st.RelayedIDs[MaxRelayed-1])
}

func TestPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "relay.json")
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	m, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)
	m.MarkRelayed("a", "b")
	m.RecordDigest(at)
	m.RecordMonthly(at)
	m.RecordSync(at, 4)

	reloaded, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)
	st := reloaded.GetState()
	assert.Equal(t, []string{"a", "b"}, st.RelayedIDs)
	assert.True(t, st.LastDigestAt.Equal(at))
	assert.True(t, st.LastMonthlyAt.Equal(at))
	assert.Equal(t, 4, st.LastSyncCount)
}

func TestLoadState_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	st, err := LoadState(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, st.RelayedIDs)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = NewManager(bad, zerolog.Nop())
	assert.Error(t, err)
}

func TestGetState_ReturnsCopy(t *testing.T) {
	m, err := NewManager("", zerolog.Nop())
	require.NoError(t, err)
	m.MarkRelayed("x")
	st := m.GetState()
	st.RelayedIDs[0] = "mutated"
	assert.Equal(t, "x", m.GetState().RelayedIDs[0])
}
