package cli

import (
	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0"
	commit  = ""
	date    = ""
)

type rootOptions struct {
	settingsPath string
	optionsPath  string
	logLevel     string
}

func Execute() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "caspar-console",
		Short:         "Operator console for a CasparCG playout server",
		SilenceErrors: false,
		SilenceUsage:  true,
		Version:       buildVersion(),
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTui(cmd, opts, defaultRefreshInterval)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "Override settings file path (default: OS user config dir)")
	cmd.PersistentFlags().StringVar(&opts.optionsPath, "options", "", "Console options YAML (default: console.yaml next to the settings)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newInitCmd(opts),
		newStatusCmd(opts),
		newProfileCmd(opts),
		newChannelCmd(opts),
		newConnectCmd(opts),
		newDisconnectCmd(opts),
		newInfoCmd(opts),
		newDevicesCmd(opts),
		newTestCmd(opts),
		newTuiCmd(opts),
	)

	return cmd
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
