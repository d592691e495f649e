package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/wonny/investor-coach/internal/contracts"
)

const lockRetryDelay = 25 * time.Millisecond

func (s *Store) manifestPath() string {
	return filepath.Join(s.root, "manifest", "index.json")
}

// readManifest loads the manifest. A missing file is an empty manifest;
// an unreadable or foreign-version one is reset to empty with a warning.
func (s *Store) readManifest() *contracts.Manifest {
	data, err := os.ReadFile(s.manifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return contracts.NewManifest()
	}
	if err != nil {
		s.logger.WithError(err).Warn("manifest unreadable, starting from empty")
		return contracts.NewManifest()
	}

	var m contracts.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.WithError(err).Warn("manifest corrupt, resetting to empty")
		return contracts.NewManifest()
	}
	if m.Version != contracts.ManifestVersion {
		s.logger.WithField("version", m.Version).Warn("manifest version unsupported, resetting to empty")
		return contracts.NewManifest()
	}
	if m.Items == nil {
		m.Items = []contracts.CacheEntry{}
	}
	return &m
}

// updateManifest runs fn as one read-modify-write under the cross-process
// file lock. The manifest is rewritten only when fn reports a change.
func (s *Store) updateManifest(ctx context.Context, fn func(m *contracts.Manifest) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fl := flock.New(filepath.Join(s.root, "manifest", "index.lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock manifest: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock manifest: not acquired")
	}
	defer fl.Unlock()

	m := s.readManifest()
	if !fn(m) {
		return nil
	}
	if err := writeJSONAtomic(s.manifestPath(), m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
