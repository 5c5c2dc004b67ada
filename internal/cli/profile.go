package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/caspar-console/internal/fsutil"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
)

func newProfileCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage server configuration profiles",
	}
	cmd.AddCommand(
		newProfileListCmd(root),
		newProfileCreateCmd(root),
		newProfileSelectCmd(root),
		newProfileShowCmd(root),
		newProfileDeleteCmd(root),
		newProfileExportCmd(root),
		newProfileImportCmd(root),
	)
	return cmd
}

func newProfileListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles; the active one is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			if err := a.loadProfiles(cmd.Context()); err != nil {
				return err
			}
			_, active, _ := a.console.Profiles().Active()
			for _, name := range a.console.Snapshot().Profiles {
				mark := " "
				if name == active {
					mark = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, name)
			}
			return nil
		},
	}
}

func newProfileCreateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile with one default channel and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			if err := a.loadProfiles(cmd.Context()); err != nil {
				return err
			}
			if err := a.console.Profiles().Create(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created profile %q\n", args[0])
			return nil
		},
	}
}

func newProfileSelectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <name>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			if err := a.requireActive(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", args[0])
			return nil
		},
	}
}

func newProfileShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Print a profile as JSON (default: the active profile)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if err := a.requireActive(cmd.Context(), name); err != nil {
				return err
			}
			p, _, _ := a.console.Profiles().Active()
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newProfileDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			if err := a.loadProfiles(cmd.Context()); err != nil {
				return err
			}
			if err := a.console.Profiles().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", args[0])
			return nil
		},
	}
}

func newProfileExportCmd(root *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Render a profile as a casparcg.config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if err := a.requireActive(cmd.Context(), name); err != nil {
				return err
			}
			b, err := a.console.Profiles().Export(cmd.Context())
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			if err := fsutil.WriteFileAtomic(outPath, b, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newProfileImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <casparcg.config> <name>",
		Short: "Create a profile from an existing server configuration file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			parsed, err := profile.ParseXML(f)
			if err != nil {
				return err
			}
			if len(parsed.Channels) == 0 {
				return fmt.Errorf("%s defines no channels", args[0])
			}

			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			if err := a.loadProfiles(ctx); err != nil {
				return err
			}
			if err := a.console.Profiles().Create(ctx, args[1]); err != nil {
				return err
			}
			p, _, _ := a.console.Profiles().Active()
			p.Caspar = parsed
			if err := a.console.Profiles().UpdateConfig(p); err != nil {
				return err
			}
			if err := a.console.Profiles().Save(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d channel(s) into profile %q\n", p.ChannelCount(), args[1])
			return nil
		},
	}
}
