package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/baaaaaaaka/caspar-console/internal/fsutil"
)

const appDirName = "caspar-server-gui"

// Store persists GuiSettings as JSON, serialised across processes by a lock file.
type Store struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// DefaultDir is the per-user directory holding settings and console options.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

func NewStore(pathOverride string) (*Store, error) {
	path := pathOverride
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file yields zero settings.
func (s *Store) Load() (GuiSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return GuiSettings{}, fmt.Errorf("lock settings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.loadUnlocked()
}

func (s *Store) Save(settings GuiSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock settings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.saveUnlocked(settings)
}

// Update applies patch to the on-disk settings under the lock and returns the
// merged result.
func (s *Store) Update(patch SettingsPatch) (GuiSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return GuiSettings{}, fmt.Errorf("lock settings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	current, err := s.loadUnlocked()
	if err != nil {
		return GuiSettings{}, err
	}
	merged := current.Merge(patch)
	if err := s.saveUnlocked(merged); err != nil {
		return GuiSettings{}, err
	}
	return merged, nil
}

func (s *Store) loadUnlocked() (GuiSettings, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return GuiSettings{}, nil
		}
		return GuiSettings{}, fmt.Errorf("read settings: %w", err)
	}

	var settings GuiSettings
	if err := json.Unmarshal(b, &settings); err != nil {
		return GuiSettings{}, fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}

func (s *Store) saveUnlocked(settings GuiSettings) error {
	b, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	b = append(b, '\n')
	if err := fsutil.WriteFileAtomic(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
