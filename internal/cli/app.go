package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/caspar-console/internal/amcp"
	"github.com/baaaaaaaka/caspar-console/internal/config"
	"github.com/baaaaaaaka/caspar-console/internal/console"
	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
	"github.com/baaaaaaaka/caspar-console/internal/preview"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
	"github.com/baaaaaaaka/caspar-console/internal/sysinfo"
)

const shutdownTimeout = 5 * time.Second

// app is the wired console of one CLI invocation.
type app struct {
	console *console.Console
	client  *amcp.Client
	preview *preview.Server
	store   *config.Store
	opts    config.Options
	log     zerolog.Logger
}

type appConfig struct {
	// logOutput replaces stderr, e.g. while the terminal UI owns the screen.
	logOutput io.Writer
}

func openApp(cmd *cobra.Command, root *rootOptions) (*app, error) {
	return openAppWith(cmd, root, appConfig{})
}

func openAppWith(cmd *cobra.Command, root *rootOptions, cfg appConfig) (*app, error) {
	store, err := config.NewStore(root.settingsPath)
	if err != nil {
		return nil, err
	}
	optionsPath := root.optionsPath
	if optionsPath == "" {
		optionsPath = filepath.Join(filepath.Dir(store.Path()), "console.yaml")
	}
	opts, err := config.LoadOptions(optionsPath)
	if err != nil {
		return nil, err
	}

	level := root.logLevel
	if level == "" {
		level = opts.LogLevel
	}
	out := cfg.logOutput
	if out == nil {
		out = cmd.ErrOrStderr()
	}
	clog.Configure(clog.Config{Level: level, Output: out, Pretty: cfg.logOutput == nil})
	logger := clog.WithComponent("cli")

	var dialer amcp.Dialer
	if opts.AMCP.SOCKSProxy != "" {
		dialer, err = amcp.SOCKS5Dialer(opts.AMCP.SOCKSProxy, opts.AMCP.DialTimeout)
		if err != nil {
			return nil, fmt.Errorf("amcp socks proxy: %w", err)
		}
	}
	client := amcp.New(amcp.Options{
		DialTimeout:    opts.AMCP.DialTimeout,
		CommandTimeout: opts.AMCP.CommandTimeout,
		Dialer:         dialer,
		Logger:         clog.WithComponent("amcp"),
	})
	inventory := decklink.Open(opts.DeckLink.Helper, opts.DeckLink.InventoryFile, opts.DeckLink.Timeout, clog.WithComponent("decklink"))
	server := preview.New(preview.Options{TestDir: opts.Preview.TestDir, Logger: clog.WithComponent("preview")})

	versions := &sysinfo.Collector{
		Caspar:   casparVersion(client),
		DeckLink: inventory.DriverVersion,
		NDI:      sysinfo.NDIVersion(),
		Scanner:  sysinfo.ScannerVersion(opts.Scanner.URL, opts.Scanner.Timeout),
		Log:      clog.WithComponent("sysinfo"),
	}

	c := console.New(console.Backends{
		Settings: store,
		Profiles: profile.NewFileStore(clog.WithComponent("profile")),
		Devices:  inventory,
		Control:  client,
		Tests:    client,
		Preview:  server,
		Versions: versions,
	}, console.Options{
		PreviewPort: opts.Preview.Port,
		Logger:      clog.WithComponent("console"),
	})

	return &app{console: c, client: client, preview: server, store: store, opts: opts, log: logger}, nil
}

// casparVersion reports the server version only while a session is open.
func casparVersion(client *amcp.Client) sysinfo.VersionSource {
	return func(ctx context.Context) (string, error) {
		if !client.IsConnected() {
			return "", nil
		}
		return client.Version(ctx)
	}
}

// loadProfiles restores settings, the profile listing and the last profile
// without touching the playout server.
func (a *app) loadProfiles(ctx context.Context) error {
	settings := a.console.Settings().Load(ctx)
	if settings.InstallPath() == "" {
		return fmt.Errorf("%w: run `caspar-console init <path>` first", console.ErrNotConfigured)
	}
	a.console.Profiles().List(ctx)
	if settings.LastProfile != nil && *settings.LastProfile != "" {
		if err := a.console.Profiles().Select(ctx, *settings.LastProfile); err != nil {
			a.log.Warn().Err(err).Str(clog.FieldProfile, *settings.LastProfile).Msg("last profile not loaded")
		}
	}
	return nil
}

// requireActive loads profiles and optionally selects name first.
func (a *app) requireActive(ctx context.Context, name string) error {
	if err := a.loadProfiles(ctx); err != nil {
		return err
	}
	if name != "" {
		return a.console.Profiles().Select(ctx, name)
	}
	if _, _, ok := a.console.Profiles().Active(); !ok {
		return fmt.Errorf("%w: select one with `caspar-console profile select <name>`", console.ErrNoActiveProfile)
	}
	return nil
}

// connect opens a session to the given endpoint, or to the last one stored,
// or to the configured default.
func (a *app) connect(ctx context.Context, host string, port int) error {
	if host == "" {
		if h, p, ok := a.console.Settings().Current().LastEndpoint(); ok {
			host, port = h, p
		} else {
			host, port = a.opts.AMCP.DefaultHost, a.opts.AMCP.DefaultPort
		}
	}
	if port == 0 {
		port = a.opts.AMCP.DefaultPort
	}
	return a.console.Control().Connect(ctx, host, port)
}

// Close releases the preview service and the control connection without
// recording a disconnect in the settings.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(a.preview.Stop(ctx), a.client.Close(ctx))
}
