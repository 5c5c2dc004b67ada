package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
)

const defaultProfileName = "Default"

func newInitCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <caspar-install-path>",
		Short: "Point the console at a CasparCG install and create its profile directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			ctx := cmd.Context()

			install, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if st, err := os.Stat(install); err != nil || !st.IsDir() {
				return fmt.Errorf("install path %s is not a directory", install)
			}
			if err := os.MkdirAll(profile.Dir(install), 0o755); err != nil {
				return fmt.Errorf("create profile directory: %w", err)
			}

			a.console.Settings().Load(ctx)
			if err := a.console.Settings().Save(ctx, config.SettingsPatch{CasparPath: config.String(install)}); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Install path set to %s\n", install)

			if names := a.console.Profiles().List(ctx); len(names) > 0 {
				_, _ = fmt.Fprintf(out, "Found %d profile(s)\n", len(names))
				return nil
			}
			if err := a.console.Profiles().Create(ctx, defaultProfileName); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Created profile %q\n", defaultProfileName)
			return nil
		},
	}
	return cmd
}
