package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/caspar-console/internal/decklink"
)

func newDevicesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect and configure DeckLink cards",
	}
	cmd.AddCommand(
		newDevicesListCmd(root),
		newDevicesDuplexCmd(root),
		newDevicesLabelCmd(root),
	)
	return cmd
}

func newDevicesListCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List DeckLink cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			devices, err := a.console.Devices().Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			out := cmd.OutOrStdout()
			for _, d := range devices {
				duplex := "-"
				if d.SupportsDuplex {
					duplex = d.DuplexMode.DisplayName()
				}
				_, _ = fmt.Fprintf(out, "%d  %-24s  %-36s  %s\n", d.Index, d.DisplayName, d.PersistentID, duplex)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the devices as JSON")
	return cmd
}

func newDevicesDuplexCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duplex <persistent-id> <full|half>",
		Short: "Change the duplex mode of a Duo or Quad card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := decklink.ParseDuplexMode(args[1])
			if err != nil {
				return err
			}
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.console.Devices().SetDuplexMode(cmd.Context(), args[0], mode); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Set %s to %s\n", args[0], mode.DisplayName())
			if decklink.RequiresRestart() {
				_, _ = fmt.Fprintln(out, "Restart the computer for the change to take effect")
			}
			return nil
		},
	}
}

func newDevicesLabelCmd(root *rootOptions) *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "label <persistent-id> [label]",
		Short: "Name a card in the active profile; omit the label to clear it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ""
			if len(args) == 2 {
				label = args[1]
			}
			return editProfile(cmd, root, profileName, func(a *app) error {
				if _, err := a.console.Devices().Refresh(cmd.Context()); err != nil {
					a.log.Debug().Err(err).Msg("device model unknown")
				}
				return a.console.Profiles().SetDeviceLabel(args[0], label)
			})
		},
	}
	cmd.Flags().StringVar(&profileName, "profile", "", "Profile to edit (default: the active profile)")
	return cmd
}
