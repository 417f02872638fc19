package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

// FileStore keeps the snapshot in a JSON file. The previous version is kept
// next to it with a .backup suffix and is used when the main file is
// unreadable.
type FileStore struct {
	path string
}

// NewFileStore creates the parent directory of path if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) backupPath() string {
	return s.path + ".backup"
}

func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	snap, err := readSnapshot(s.path)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return NewSnapshot(), nil
	}

	log.Warn().Err(err).Str("path", s.path).Msg("state file unreadable, trying backup")
	backup, bErr := readSnapshot(s.backupPath())
	if bErr != nil {
		return nil, fmt.Errorf("state file %s is corrupt and no usable backup: %w", s.path, err)
	}
	return backup, nil
}

func readSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	snap.normalize()
	return snap, nil
}

func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if current, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.backupPath(), current, 0644); err != nil {
			return fmt.Errorf("failed to write state backup: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) AppendExecution(ctx context.Context, record domain.ExecutionRecord) error {
	snap, err := s.Load(ctx)
	if err != nil {
		return err
	}
	snap.Executions = append(snap.Executions, record)
	return s.Save(ctx, snap)
}

// Reset writes an empty snapshot and deletes the backup, so a later
// corrupt file can never bring the cleared state back.
func (s *FileStore) Reset(ctx context.Context) error {
	if err := s.Save(ctx, NewSnapshot()); err != nil {
		return err
	}
	if err := os.Remove(s.backupPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state backup: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
