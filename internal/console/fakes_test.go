package console

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
	"github.com/baaaaaaaka/caspar-console/internal/sysinfo"
)

const testInstall = "/srv/caspar"

var (
	errBoom  = errors.New("boom")
	fakeTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakeSettings struct {
	mu      sync.Mutex
	stored  config.GuiSettings
	loadErr error
	saveErr error
	saves   []config.GuiSettings
}

func (f *fakeSettings) Load() (config.GuiSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return config.GuiSettings{}, f.loadErr
	}
	return f.stored.Clone(), nil
}

func (f *fakeSettings) Update(patch config.SettingsPatch) (config.GuiSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return config.GuiSettings{}, f.saveErr
	}
	f.stored = f.stored.Merge(patch)
	f.saves = append(f.saves, f.stored.Clone())
	return f.stored.Clone(), nil
}

type fakeProfiles struct {
	mu        sync.Mutex
	files     map[string]profile.Profile
	loadErr   error
	saveErr   error
	listErr   error
	deleteErr error
	calls     []string
}

func newFakeProfiles(names ...string) *fakeProfiles {
	f := &fakeProfiles{files: map[string]profile.Profile{}}
	for _, n := range names {
		f.files[profile.Path(testInstall, n)] = profile.New(n, fakeTime)
	}
	return f
}

func (f *fakeProfiles) Load(_ context.Context, path string) (profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "load "+filepath.Base(path))
	if f.loadErr != nil {
		return profile.Profile{}, f.loadErr
	}
	p, ok := f.files[path]
	if !ok {
		return profile.Profile{}, errors.New("no such file")
	}
	return p.Clone(), nil
}

func (f *fakeProfiles) Save(_ context.Context, path string, p profile.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "save "+filepath.Base(path))
	if f.saveErr != nil {
		return f.saveErr
	}
	f.files[path] = p.Clone()
	return nil
}

func (f *fakeProfiles) List(_ context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	var names []string
	for path := range f.files {
		if filepath.Dir(path) == dir {
			names = append(names, strings.TrimSuffix(filepath.Base(path), ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeProfiles) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+filepath.Base(path))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.files[path]; !ok {
		return errors.New("no such file")
	}
	delete(f.files, path)
	return nil
}

func (f *fakeProfiles) NewDefault(name string) profile.Profile {
	return profile.New(name, fakeTime)
}

func (f *fakeProfiles) mutatingCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, "save") || strings.HasPrefix(c, "delete") {
			out = append(out, c)
		}
	}
	return out
}

type fakeDevices struct {
	mu        sync.Mutex
	devices   []decklink.Device
	listErr   error
	setErr    error
	listCalls int
	setCalls  []string
}

func (f *fakeDevices) ListDevices(context.Context) ([]decklink.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]decklink.Device(nil), f.devices...), nil
}

func (f *fakeDevices) SetDuplexMode(_ context.Context, id string, mode decklink.DuplexMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, id+"="+mode.String())
	if f.setErr != nil {
		return f.setErr
	}
	for i := range f.devices {
		if f.devices[i].PersistentID == id {
			f.devices[i].DuplexMode = mode
		}
	}
	return nil
}

type fakeControl struct {
	mu         sync.Mutex
	connected  bool
	host       string
	port       int
	version    string
	connectErr error
	versionErr error
	closeErr   error
	calls      []string

	// entered and release make Connect block until the test lets it go.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeControl) Connect(_ context.Context, host string, port int) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "connect")
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected, f.host, f.port = true, host, port
	return nil
}

func (f *fakeControl) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "close")
	f.connected = false
	return f.closeErr
}

func (f *fakeControl) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeControl) Endpoint() (string, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return "", 0, false
	}
	return f.host, f.port, true
}

func (f *fakeControl) Version(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "version")
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return f.version, nil
}

type fakeTests struct {
	mu          sync.Mutex
	startErr    error
	stopErr     error
	startAllErr error
	stopAllErr  error
	calls       []string
	baseURLs    []string
}

func (f *fakeTests) record(call string, url string, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if url != "" {
		f.baseURLs = append(f.baseURLs, url)
	}
	return err
}

func (f *fakeTests) StartChannelTest(_ context.Context, ch int, url string) error {
	return f.record("start "+strconv.Itoa(ch), url, f.startErr)
}

func (f *fakeTests) StopChannelTest(_ context.Context, ch int) error {
	return f.record("stop "+strconv.Itoa(ch), "", f.stopErr)
}

func (f *fakeTests) StartAllChannelTests(_ context.Context, n int, url string) error {
	return f.record("start-all "+strconv.Itoa(n), url, f.startAllErr)
}

func (f *fakeTests) StopAllChannelTests(_ context.Context, n int) error {
	return f.record("stop-all "+strconv.Itoa(n), "", f.stopAllErr)
}

type fakePreview struct {
	mu       sync.Mutex
	running  bool
	port     int
	startErr error
	stopErr  error
	starts   int
	stops    int
}

func (f *fakePreview) Start(_ context.Context, port int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.running, f.port = true, port
	return port, nil
}

func (f *fakePreview) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.running = false
	return nil
}

func (f *fakePreview) URL() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return "", false
	}
	return "http://127.0.0.1:" + strconv.Itoa(f.port), true
}

type fakeVersions struct {
	v   sysinfo.Versions
	err error
}

func (f fakeVersions) Collect(context.Context) (sysinfo.Versions, error) { return f.v, f.err }

type harness struct {
	c        *Console
	settings *fakeSettings
	profiles *fakeProfiles
	devices  *fakeDevices
	control  *fakeControl
	tests    *fakeTests
	preview  *fakePreview
}

func newHarness(stored config.GuiSettings, profiles ...string) *harness {
	h := &harness{
		settings: &fakeSettings{stored: stored},
		profiles: newFakeProfiles(profiles...),
		devices:  &fakeDevices{},
		control:  &fakeControl{version: "2.4.0 Stable"},
		tests:    &fakeTests{},
		preview:  &fakePreview{},
	}
	h.c = New(Backends{
		Settings: h.settings,
		Profiles: h.profiles,
		Devices:  h.devices,
		Control:  h.control,
		Tests:    h.tests,
		Preview:  h.preview,
		Versions: fakeVersions{v: sysinfo.Versions{NDI: "Installed"}},
	}, Options{PreviewPort: 9966, Logger: zerolog.Nop(), Now: func() time.Time { return fakeTime.Add(time.Hour) }})
	return h
}

func configured() config.GuiSettings {
	return config.GuiSettings{CasparPath: config.String(testInstall)}
}

// loaded returns a harness with settings loaded and the named profile active.
func loaded(name string, others ...string) *harness {
	h := newHarness(configured(), append([]string{name}, others...)...)
	ctx := context.Background()
	h.c.Settings().Load(ctx)
	h.c.Profiles().List(ctx)
	if err := h.c.Profiles().Select(ctx, name); err != nil {
		panic(err)
	}
	return h
}
