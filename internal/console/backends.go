package console

import (
	"context"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
	"github.com/baaaaaaaka/caspar-console/internal/sysinfo"
)

// SettingsBackend persists GuiSettings. Update merges a patch into the
// stored record and returns the result, so writers in other processes keep
// the fields they own.
type SettingsBackend interface {
	Load() (config.GuiSettings, error)
	Update(config.SettingsPatch) (config.GuiSettings, error)
}

type ProfileBackend interface {
	Load(ctx context.Context, path string) (profile.Profile, error)
	Save(ctx context.Context, path string, p profile.Profile) error
	List(ctx context.Context, dir string) ([]string, error)
	Delete(ctx context.Context, path string) error
	NewDefault(name string) profile.Profile
}

type DeviceBackend interface {
	ListDevices(ctx context.Context) ([]decklink.Device, error)
	SetDuplexMode(ctx context.Context, persistentID string, mode decklink.DuplexMode) error
}

type ControlBackend interface {
	Connect(ctx context.Context, host string, port int) error
	Close(ctx context.Context) error
	IsConnected() bool
	Endpoint() (string, int, bool)
	Version(ctx context.Context) (string, error)
}

type TestBackend interface {
	StartChannelTest(ctx context.Context, channel int, baseURL string) error
	StopChannelTest(ctx context.Context, channel int) error
	StartAllChannelTests(ctx context.Context, n int, baseURL string) error
	StopAllChannelTests(ctx context.Context, n int) error
}

type PreviewBackend interface {
	Start(ctx context.Context, preferredPort int) (int, error)
	Stop(ctx context.Context) error
	URL() (string, bool)
}

type VersionBackend interface {
	Collect(ctx context.Context) (sysinfo.Versions, error)
}

// Backends bundles the collaborators a Console drives. Versions may be nil.
type Backends struct {
	Settings SettingsBackend
	Profiles ProfileBackend
	Devices  DeviceBackend
	Control  ControlBackend
	Tests    TestBackend
	Preview  PreviewBackend
	Versions VersionBackend
}
