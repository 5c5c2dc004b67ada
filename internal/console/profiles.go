package console

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
	"github.com/baaaaaaaka/caspar-console/internal/metrics"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
)

// Profiles manages the profile files of the configured install and the
// in-memory working copy of the active one.
type Profiles struct{ c *Console }

// List refreshes the cached listing. An unset install path or an unreadable
// directory yields an empty list.
func (p Profiles) List(ctx context.Context) []string {
	c := p.c
	install := c.installPath()
	names := []string{}
	if install != "" {
		listed, err := c.b.Profiles.List(ctx, profile.Dir(install))
		if err != nil {
			c.log.Warn().Err(err).Str(clog.FieldPath, profile.Dir(install)).Msg("profile listing failed")
		} else if listed != nil {
			names = listed
		}
	}
	c.mu.Lock()
	c.profiles = append([]string{}, names...)
	c.mu.Unlock()
	return names
}

// Select loads the named profile and makes it the active, clean one. On
// failure the previous active profile is kept.
func (p Profiles) Select(ctx context.Context, name string) error {
	c := p.c
	release, err := enter(c.profileGate)
	if err != nil {
		return err
	}
	defer release()

	if err := profile.ValidateName(name); err != nil {
		return err
	}
	install := c.installPath()
	if install == "" {
		return ErrNotConfigured
	}
	loaded, err := c.b.Profiles.Load(ctx, profile.Path(install, name))
	if err != nil {
		return fmt.Errorf("select profile %s: %w", name, err)
	}

	c.mu.Lock()
	c.active = &loaded
	c.activeName = name
	c.dirty = false
	c.dropTestsAbove(loaded.ChannelCount())
	c.mu.Unlock()

	c.log.Info().Str(clog.FieldProfile, name).Msg("profile selected")
	c.Settings().saveBestEffort(ctx, config.SettingsPatch{LastProfile: config.String(name)}, "remember profile")
	return nil
}

// Save writes the active profile when it has unsaved changes.
func (p Profiles) Save(ctx context.Context) error {
	c := p.c
	release, err := enter(c.profileGate)
	if err != nil {
		return err
	}
	defer release()

	c.mu.Lock()
	if c.active == nil || !c.dirty || c.settings.InstallPath() == "" {
		c.mu.Unlock()
		return nil
	}
	stamped := c.active.Clone()
	name := c.activeName
	install := c.settings.InstallPath()
	c.mu.Unlock()

	stamped.Modified = c.now().UTC()
	err = c.b.Profiles.Save(ctx, profile.Path(install, name), stamped)
	metrics.IncProfileSave(err)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", name, err)
	}

	c.mu.Lock()
	c.active = &stamped
	c.dirty = false
	c.mu.Unlock()
	c.log.Info().Str(clog.FieldProfile, name).Msg("profile saved")
	return nil
}

// Create persists a default profile under name and activates it.
func (p Profiles) Create(ctx context.Context, name string) error {
	c := p.c
	release, err := enter(c.profileGate)
	if err != nil {
		return err
	}
	defer release()

	if err := profile.ValidateName(name); err != nil {
		return err
	}
	c.mu.Lock()
	install := c.settings.InstallPath()
	known := slices.Contains(c.profiles, name)
	c.mu.Unlock()
	if install == "" {
		return ErrNotConfigured
	}
	if known {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	// The cache may predate files written by another process.
	if listed, err := c.b.Profiles.List(ctx, profile.Dir(install)); err == nil && slices.Contains(listed, name) {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	created := c.b.Profiles.NewDefault(name)
	err = c.b.Profiles.Save(ctx, profile.Path(install, name), created)
	metrics.IncProfileSave(err)
	if err != nil {
		return fmt.Errorf("create profile %s: %w", name, err)
	}
	p.List(ctx)

	c.mu.Lock()
	c.active = &created
	c.activeName = name
	c.dirty = false
	c.dropTestsAbove(created.ChannelCount())
	c.mu.Unlock()

	c.log.Info().Str(clog.FieldProfile, name).Msg("profile created")
	c.Settings().saveBestEffort(ctx, config.SettingsPatch{LastProfile: config.String(name)}, "remember profile")
	return nil
}

// Delete removes the named profile file. Deleting the active profile clears it.
func (p Profiles) Delete(ctx context.Context, name string) error {
	c := p.c
	release, err := enter(c.profileGate)
	if err != nil {
		return err
	}
	defer release()

	if err := profile.ValidateName(name); err != nil {
		return err
	}
	install := c.installPath()
	if install == "" {
		return ErrNotConfigured
	}
	if err := c.b.Profiles.Delete(ctx, profile.Path(install, name)); err != nil {
		return fmt.Errorf("delete profile %s: %w", name, err)
	}
	p.List(ctx)

	c.mu.Lock()
	wasActive := c.active != nil && c.activeName == name
	if wasActive {
		c.active = nil
		c.activeName = ""
		c.dirty = false
		c.dropTestsAbove(0)
	}
	last := ""
	if c.settings.LastProfile != nil {
		last = *c.settings.LastProfile
	}
	c.mu.Unlock()

	c.log.Info().Str(clog.FieldProfile, name).Msg("profile deleted")
	if last == name {
		c.Settings().saveBestEffort(ctx, config.SettingsPatch{LastProfile: config.String("")}, "forget profile")
	}
	return nil
}

// UpdateConfig replaces the active profile in memory and marks it dirty.
func (p Profiles) UpdateConfig(updated profile.Profile) error {
	c := p.c
	release, err := enter(c.profileGate)
	if err != nil {
		return err
	}
	defer release()
	if updated.ChannelCount() == 0 {
		return fmt.Errorf("%w: a profile needs at least one channel", ErrLastChannel)
	}
	return p.replace(func(profile.Profile) (profile.Profile, error) { return updated, nil })
}

// replace applies edit to the active profile. The caller holds the gate.
func (p Profiles) replace(edit func(profile.Profile) (profile.Profile, error)) error {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ErrNoActiveProfile
	}
	next, err := edit(c.active.Clone())
	if err != nil {
		return err
	}
	next = next.Clone()
	c.active = &next
	c.dirty = true
	c.dropTestsAbove(next.ChannelCount())
	return nil
}

func (p Profiles) edit(fn func(profile.Profile) (profile.Profile, error)) error {
	release, err := enter(p.c.profileGate)
	if err != nil {
		return err
	}
	defer release()
	return p.replace(fn)
}

// AddChannel appends a channel with the given video mode.
func (p Profiles) AddChannel(mode profile.VideoMode) error {
	return p.edit(func(cur profile.Profile) (profile.Profile, error) {
		return cur.WithChannel(mode)
	})
}

// RemoveChannel removes the 1-based channel. The last channel cannot go.
func (p Profiles) RemoveChannel(index int) error {
	err := p.edit(func(cur profile.Profile) (profile.Profile, error) {
		return cur.WithoutChannel(index)
	})
	if errors.Is(err, profile.ErrNoChannel) {
		return fmt.Errorf("%w: %v", ErrChannelRange, err)
	}
	return err
}

// AddConsumer appends a consumer to the 1-based channel.
func (p Profiles) AddConsumer(index int, consumer profile.Consumer) error {
	err := p.edit(func(cur profile.Profile) (profile.Profile, error) {
		return cur.WithConsumer(index, consumer)
	})
	if errors.Is(err, profile.ErrNoChannel) {
		return fmt.Errorf("%w: %v", ErrChannelRange, err)
	}
	return err
}

// SetDeviceLabel stores a label for a DeckLink device in the active profile.
// The model name comes from the device registry when the device is known.
func (p Profiles) SetDeviceLabel(persistentID, label string) error {
	c := p.c
	c.mu.Lock()
	model := ""
	for _, d := range c.devices {
		if d.PersistentID == persistentID {
			model = d.ModelName
			break
		}
	}
	c.mu.Unlock()
	return p.edit(func(cur profile.Profile) (profile.Profile, error) {
		return cur.WithDeviceLabel(persistentID, model, label), nil
	})
}

// Active returns a copy of the active profile and its name.
func (p Profiles) Active() (profile.Profile, string, bool) {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return profile.Profile{}, "", false
	}
	return c.active.Clone(), c.activeName, true
}

// Export renders the active profile as a server configuration file.
func (p Profiles) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	active, _, ok := p.Active()
	if !ok {
		return nil, ErrNoActiveProfile
	}
	return profile.ExportXML(active.Caspar)
}
