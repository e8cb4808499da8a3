package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/utopium/chatflow/pkg/domain"
)

const (
	stateExt      = ".state.json"
	transcriptExt = ".transcript.json"
)

// Store implements ports.StateStore using the local filesystem.
// Every session is two JSON files in BasePath: <id>.state.json and <id>.transcript.json.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".utopium/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".utopium", "sessions")
	}
	return &Store{BasePath: basePath}
}

func validID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return fmt.Errorf("invalid sessionID %q", sessionID)
	}
	return nil
}

func (s *Store) path(sessionID, ext string) string {
	return filepath.Join(s.BasePath, sessionID+ext)
}

// Save writes the transcript first and the state last, each atomically.
func (s *Store) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	if err := validID(sessionID); err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	transcript, err := json.MarshalIndent(snap.Transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	state, err := json.MarshalIndent(snap.State, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.writeAtomic(sessionID, transcriptExt, transcript); err != nil {
		return err
	}
	return s.writeAtomic(sessionID, stateExt, state)
}

// writeAtomic writes to a temp file in the same directory, fsyncs, and renames it
// over the destination.
func (s *Store) writeAtomic(sessionID, ext string, data []byte) error {
	destPath := s.path(sessionID, ext)

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows can't rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing session file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to valid session: %w", err)
	}
	return nil
}

// Load reads both files. A corrupt state file is reported and left on disk.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	if err := validID(sessionID); err != nil {
		return nil, err
	}

	rawState, err := s.read(sessionID, stateExt)
	if err != nil {
		return nil, err
	}
	rawTranscript, err := s.read(sessionID, transcriptExt)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{}
	if err := json.Unmarshal(rawState, &snap.State); err != nil || snap.State == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, errors.Join(domain.ErrCorruptState, err))
	}
	if err := json.Unmarshal(rawTranscript, &snap.Transcript); err != nil {
		return nil, fmt.Errorf("session %s transcript: %w", sessionID, errors.Join(domain.ErrCorruptState, err))
	}
	snap.State.Normalize()
	return snap, nil
}

func (s *Store) read(sessionID, ext string) ([]byte, error) {
	data, err := os.ReadFile(s.path(sessionID, ext))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}

// Delete removes both session files.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := validID(sessionID); err != nil {
		return err
	}

	for _, ext := range []string{stateExt, transcriptExt} {
		err := os.Remove(s.path(sessionID, ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
	}
	return nil
}

// List returns the IDs of every session with a state file.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "tmp-") || !strings.HasSuffix(name, stateExt) {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, stateExt))
	}
	sort.Strings(sessions)
	return sessions, nil
}
