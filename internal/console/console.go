package console

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
	"github.com/baaaaaaaka/caspar-console/internal/sysinfo"
)

type Options struct {
	// PreviewPort is the preferred port of the preview service.
	PreviewPort int
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Console is the single state aggregate of the operator console. UI actions
// call its components; each component issues backend commands and folds the
// results into the aggregate. Backend calls never run under mu.
type Console struct {
	b           Backends
	log         zerolog.Logger
	now         func() time.Time
	previewPort int

	settingsGate *semaphore.Weighted
	profileGate  *semaphore.Weighted
	deviceGate   *semaphore.Weighted
	controlGate  *semaphore.Weighted
	testGate     *semaphore.Weighted

	mu         sync.Mutex
	settings   config.GuiSettings
	needsSetup bool
	profiles   []string
	active     *profile.Profile
	activeName string
	dirty      bool
	devices    []decklink.Device
	conn       Connection
	tests      TestState
	versions   sysinfo.Versions
}

func New(b Backends, opts Options) *Console {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Console{
		b:            b,
		log:          opts.Logger,
		now:          now,
		previewPort:  opts.PreviewPort,
		settingsGate: semaphore.NewWeighted(1),
		profileGate:  semaphore.NewWeighted(1),
		deviceGate:   semaphore.NewWeighted(1),
		controlGate:  semaphore.NewWeighted(1),
		testGate:     semaphore.NewWeighted(1),
		profiles:     []string{},
		tests:        TestState{Channels: ChannelSet{}},
	}
}

func (c *Console) Settings() Settings { return Settings{c} }
func (c *Console) Profiles() Profiles { return Profiles{c} }
func (c *Console) Devices() Devices   { return Devices{c} }
func (c *Console) Control() Control   { return Control{c} }
func (c *Console) Tests() Tests       { return Tests{c} }

// Snapshot returns a deep copy of the current state.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Settings:   c.settings.Clone(),
		NeedsSetup: c.needsSetup,
		Profiles:   append([]string{}, c.profiles...),
		Dirty:      c.dirty,
		Devices:    append([]decklink.Device(nil), c.devices...),
		Connection: c.conn,
		Tests: TestState{
			PreviewRunning: c.tests.PreviewRunning,
			PreviewURL:     c.tests.PreviewURL,
			Channels:       c.tests.Channels.Clone(),
		},
		Versions: c.versions,
	}
	if c.active != nil {
		p := c.active.Clone()
		s.Active = &p
	}
	return s
}

// enter claims the single-flight gate of one entity.
func enter(g *semaphore.Weighted) (func(), error) {
	if !g.TryAcquire(1) {
		return nil, ErrBusy
	}
	return func() { g.Release(1) }, nil
}

func (c *Console) installPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.InstallPath()
}
