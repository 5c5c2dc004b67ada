package console

import (
	"context"
	"fmt"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

// Settings is the persisted GUI settings component.
type Settings struct{ c *Console }

// Load reads the persisted settings into memory. Read and parse failures are
// logged and yield the process defaults.
func (s Settings) Load(ctx context.Context) config.GuiSettings {
	c := s.c
	if err := c.settingsGate.Acquire(ctx, 1); err != nil {
		return s.Current()
	}
	defer c.settingsGate.Release(1)

	loaded, err := c.b.Settings.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("settings unreadable, using defaults")
		loaded = config.GuiSettings{}
	}
	c.mu.Lock()
	c.settings = loaded.Clone()
	c.mu.Unlock()
	return loaded
}

// Save merges patch into the stored settings and adopts the merged record.
// Memory changes only when the write succeeded.
func (s Settings) Save(ctx context.Context, patch config.SettingsPatch) error {
	c := s.c
	release, err := enter(c.settingsGate)
	if err != nil {
		return err
	}
	defer release()
	if err := ctx.Err(); err != nil {
		return err
	}

	merged, err := c.b.Settings.Update(patch)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	c.mu.Lock()
	c.settings = merged.Clone()
	if merged.InstallPath() != "" {
		c.needsSetup = false
	}
	c.mu.Unlock()
	return nil
}

func (s Settings) Current() config.GuiSettings {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.c.settings.Clone()
}

// saveBestEffort persists a side-effect patch; failures are only logged.
func (s Settings) saveBestEffort(ctx context.Context, patch config.SettingsPatch, what string) {
	if err := s.Save(ctx, patch); err != nil {
		s.c.log.Warn().Err(err).Str(clog.FieldStep, what).Msg("settings not updated")
	}
}
