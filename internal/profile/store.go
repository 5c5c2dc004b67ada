package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/baaaaaaaka/caspar-console/internal/fsutil"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

const dirName = "profiles"

// Dir is the profile directory of a CasparCG install.
func Dir(installPath string) string {
	return filepath.Join(installPath, dirName)
}

// Path is the file holding the named profile.
func Path(installPath, name string) string {
	return filepath.Join(Dir(installPath), name+".json")
}

// FileStore reads and writes profiles as pretty-printed JSON files.
type FileStore struct {
	log zerolog.Logger
	now func() time.Time
}

func NewFileStore(logger zerolog.Logger) *FileStore {
	return &FileStore{log: logger, now: time.Now}
}

func (s *FileStore) Load(ctx context.Context, path string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", filepath.Base(path), err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", filepath.Base(path), err)
	}
	return p, nil
}

func (s *FileStore) Save(ctx context.Context, path string, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile %s: %w", p.Name, err)
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	b = append(b, '\n')
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	s.log.Debug().Str(clog.FieldPath, path).Str(clog.FieldProfile, p.Name).Msg("profile written")
	return nil
}

// List returns the sorted file stems of *.json entries in dir.
func (s *FileStore) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *FileStore) NewDefault(name string) Profile {
	return New(name, s.now())
}
