package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
	"github.com/baaaaaaaka/caspar-console/internal/tui"
)

const defaultRefreshInterval = 5 * time.Second

var runConsoleTui = tui.Run

func newTuiCmd(root *rootOptions) *cobra.Command {
	var refreshInterval time.Duration

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTui(cmd, root, refreshInterval)
		},
	}
	cmd.Flags().DurationVar(&refreshInterval, "refresh-interval", defaultRefreshInterval, "Connection check interval (0 to disable)")
	return cmd
}

func runTui(cmd *cobra.Command, root *rootOptions, refreshInterval time.Duration) error {
	logFile, err := openTuiLog(root)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	a, err := openAppWith(cmd, root, appConfig{logOutput: logFile})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	ctx := cmd.Context()

	report := a.console.Startup(ctx)
	if report.NeedsSetup {
		return fmt.Errorf("no CasparCG install configured: run `caspar-console init <caspar-install-path>`")
	}

	err = runConsoleTui(ctx, tui.Options{
		Console:         a.console,
		Version:         version,
		DefaultHost:     a.opts.AMCP.DefaultHost,
		DefaultPort:     a.opts.AMCP.DefaultPort,
		RefreshInterval: refreshInterval,
		ProfileDir:      profile.Dir(a.console.Settings().Current().InstallPath()),
		Logger:          clog.WithComponent("tui"),
	})
	if snap := a.console.Snapshot(); snap.Dirty && snap.Active != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unsaved changes to profile %q were discarded\n", snap.Active.Name)
	}
	return err
}

// openTuiLog opens console.log next to the settings file; the screen belongs
// to the terminal UI.
func openTuiLog(root *rootOptions) (*os.File, error) {
	dir := ""
	if root.settingsPath != "" {
		dir = filepath.Dir(root.settingsPath)
	} else {
		d, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "console.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
