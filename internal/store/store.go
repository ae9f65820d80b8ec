// Package store lays out response samples and the per-group index on disk.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	stagedSuffix = ".partial"
	backupSuffix = ".previous"
)

// ErrLocked is returned when another process holds the group lock.
var ErrLocked = errors.New("test case group is locked by another process")

// Store is the samples tree of one test-case group.
type Store struct {
	root  string
	group string
	lock  *flock.Flock
}

// Open prepares the group directory under root and takes its lock.
func Open(root, group string) (*Store, error) {
	dir := filepath.Join(root, group)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create samples directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, IndexFileName+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", group, ErrLocked)
	}

	return &Store{root: root, group: group, lock: lock}, nil
}

func (s *Store) Group() string { return s.group }

// IndexPath is the location of the group's index file.
func (s *Store) IndexPath() string {
	return IndexPath(s.root, s.group)
}

// IndexPath is the location of the index of group under the samples root.
// It can be read without holding the group lock.
func IndexPath(root, group string) string {
	return filepath.Join(root, group, IndexFileName)
}

// LoadIndex reads the group's index.
func (s *Store) LoadIndex() (*Index, error) {
	return LoadIndex(s.IndexPath())
}

// SamplePath is the path of a sample relative to the samples root.
func (s *Store) SamplePath(service, key string) string {
	return SamplePath(s.group, service, key)
}

// StageSample writes html next to its final location under rel without
// replacing an existing sample.
func (s *Store) StageSample(rel, html string) error {
	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create sample directory: %w", err)
	}
	if err := os.WriteFile(abs+stagedSuffix, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// CommitSample moves a staged sample into place.
func (s *Store) CommitSample(rel string) error {
	abs := filepath.Join(s.root, rel)
	if err := os.Rename(abs+stagedSuffix, abs); err != nil {
		return fmt.Errorf("failed to commit sample: %w", err)
	}
	return nil
}

// BackupSample moves the committed sample at rel aside and reports whether
// there was one.
func (s *Store) BackupSample(rel string) (bool, error) {
	abs := filepath.Join(s.root, rel)
	err := os.Rename(abs, abs+backupSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to back up sample: %w", err)
	}
	return true, nil
}

// RestoreSample puts a backed up sample back in place.
func (s *Store) RestoreSample(rel string) error {
	abs := filepath.Join(s.root, rel)
	if err := os.Rename(abs+backupSuffix, abs); err != nil {
		return fmt.Errorf("failed to restore sample: %w", err)
	}
	return nil
}

// DropBackup removes the backup of rel. A missing backup is not an error.
func (s *Store) DropBackup(rel string) error {
	return remove(filepath.Join(s.root, rel) + backupSuffix)
}

// DiscardSample removes a staged sample. A missing file is not an error.
func (s *Store) DiscardSample(rel string) error {
	return remove(filepath.Join(s.root, rel) + stagedSuffix)
}

// RemoveSample deletes a committed sample. A missing file is not an error.
func (s *Store) RemoveSample(rel string) error {
	return remove(filepath.Join(s.root, rel))
}

func remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove sample: %w", err)
	}
	return nil
}

// Close releases the group lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}
