// Package state persists the durable record of which partitions have been
// successfully built at least once. The record lives in the remote tier so
// it survives stateless invocations; losing a write only causes a redundant
// rebuild, never data loss.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/wipash/northgrove-timelapse/internal/remote"
	"github.com/wipash/northgrove-timelapse/internal/services"
)

// Key is the remote object holding the processing state record.
const Key = "state/state.json"

type record struct {
	ProcessedPartitions []string `json:"processed_partitions"`
	// LegacyFolders accepts records written by the previous generation of
	// this tool.
	LegacyFolders []string `json:"processed_folders,omitempty"`
}

// State tracks processed partition names for one run. Safe for concurrent
// use; Save snapshots the full name set under the lock, so concurrent
// persists are each internally consistent.
type State struct {
	mu        sync.Mutex
	processed map[string]struct{}
}

// Load fetches the state record from the remote store. A missing record
// starts fresh; any other failure is fatal for the run to avoid silently
// diverging durable state. A nil store (remote disabled) also starts fresh.
func Load(ctx context.Context, store remote.Store) (*State, error) {
	s := &State{processed: make(map[string]struct{})}
	if store == nil {
		return s, nil
	}
	body, err := store.Get(ctx, Key)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return s, nil
		}
		return nil, services.Wrap(services.ErrState, "state", "load", Key, err)
	}
	defer body.Close()

	var rec record
	if err := json.NewDecoder(body).Decode(&rec); err != nil {
		return nil, services.Wrap(services.ErrState, "state", "load", "decode "+Key, err)
	}
	for _, name := range rec.ProcessedPartitions {
		s.processed[name] = struct{}{}
	}
	for _, name := range rec.LegacyFolders {
		s.processed[name] = struct{}{}
	}
	return s, nil
}

// Processed reports whether the partition has been built successfully before.
func (s *State) Processed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[name]
	return ok
}

// Mark records a successful build. It does not persist; call Save afterward.
func (s *State) Mark(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[name] = struct{}{}
}

// Names returns the processed partition names sorted ascending.
func (s *State) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.processed))
	for name := range s.processed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the record back to the remote store. Persist failures are
// fatal for the run. A nil store is a no-op so offline runs can proceed.
func (s *State) Save(ctx context.Context, store remote.Store) error {
	if store == nil {
		return nil
	}
	rec := record{ProcessedPartitions: s.Names()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrState, "state", "save", "encode", err)
	}
	if err := store.Put(ctx, Key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return services.Wrap(services.ErrState, "state", "save", Key, err)
	}
	return nil
}
