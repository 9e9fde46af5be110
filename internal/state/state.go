package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// MaxRelayed bounds the remembered notification IDs.
const MaxRelayed = 100

// RelayState is what the relay remembers across restarts.
type RelayState struct {
	RelayedIDs    []string  `json:"relayedIds"`
	LastDigestAt  time.Time `json:"lastDigestAt"`
	LastMonthlyAt time.Time `json:"lastMonthlyAt"`
	LastSyncAt    time.Time `json:"lastSyncAt"`
	LastSyncCount int       `json:"lastSyncCount"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// LoadState reads the relay state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*RelayState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RelayState{}, nil
		}
		return nil, err
	}
	var st RelayState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveState writes the relay state to a JSON file, creating its directory.
func SaveState(filePath string, st *RelayState) error {
	st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
