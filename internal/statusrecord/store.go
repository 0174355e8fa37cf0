// Package statusrecord persists the append-only sequence of step status
// events backing the list and listFailed queries. The file is
// line-oriented JSON: one event per line, truncated atomically by Reset.
package statusrecord

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Event is one status transition recorded during a run.
type Event struct {
	TimeEpochMS int64  `json:"time"`
	StepName    string `json:"step"`
	Status      string `json:"status"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// Store appends Events to a file and replays them back for list/listFailed.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store backed by path. The file and its parent directory
// are created lazily on first Append or Reset.
func New(path string) *Store {
	return &Store{path: path}
}

// Append writes one event as a line to the record file, creating the
// file and its parent directory if necessary.
func (s *Store) Append(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating status record directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening status record: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding status event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending status event: %w", err)
	}
	return nil
}

// Reset truncates the record file atomically (write-temp, rename), the
// same pattern used to persist any other durable coordinator state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating status record directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, nil, 0o644); err != nil {
		return fmt.Errorf("writing temporary status record: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temporary status record: %w", err)
	}
	return nil
}

// Records replays every event in the file, in append order. A missing
// file is treated as an empty record set, not an error.
func (s *Store) Records() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening status record: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("parsing status record line: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading status record: %w", err)
	}
	return events, nil
}

// Failed replays only the events whose Status is FAILED.
func (s *Store) Failed() ([]Event, error) {
	all, err := s.Records()
	if err != nil {
		return nil, err
	}
	var failed []Event
	for _, ev := range all {
		if ev.Status == "FAILED" {
			failed = append(failed, ev)
		}
	}
	return failed, nil
}
