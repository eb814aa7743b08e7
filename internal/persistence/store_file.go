package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cargotrack/pkg/platform/sentinel"
)

// FileStore keeps the snapshot in a single file. Writes go to a temporary file
// in the same directory which is then renamed over the target, so a crash
// mid-save leaves the previous snapshot intact.
type FileStore struct {
	path  string
	codec Codec
}

// NewFileStore constructs a file store. A nil codec means JSON.
func NewFileStore(path string, codec Codec) *FileStore {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &FileStore{path: path, codec: codec}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot file %s: %w", s.path, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(s.path); statErr == nil {
		snap.SavedAt = info.ModTime()
	}
	return snap, nil
}
