// Package syncq is the offline outbox: snapshots whose final flush failed,
// kept on disk until `rch sync` delivers them.
package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"riches/internal/game"

	"github.com/google/uuid"
)

type Entry struct {
	Key      string        `json:"key"`
	Snapshot game.Snapshot `json:"snapshot"`
	QueuedAt time.Time     `json:"queued_at"`
}

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".riches")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "outbox.json"), nil
}

func Load() ([]Entry, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Entry{}, nil
	}
	var out []Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(entries []Entry) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// Push queues snap. An older pending snapshot for the same player is
// replaced, since the store keeps only the last write anyway.
func Push(snap game.Snapshot) (Entry, error) {
	entries, err := Load()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Key: uuid.NewString(), Snapshot: snap, QueuedAt: time.Now().UTC()}
	kept := entries[:0]
	for _, e := range entries {
		if e.Snapshot.Username != snap.Username {
			kept = append(kept, e)
		}
	}
	kept = append(kept, entry)
	return entry, Save(kept)
}

func Remove(key string) error {
	entries, err := Load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	return Save(kept)
}

// Outbox adapts the package functions to the engine's flush fallback.
type Outbox struct{}

func (Outbox) Push(snap game.Snapshot) error {
	_, err := Push(snap)
	return err
}
