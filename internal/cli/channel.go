package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/caspar-console/internal/profile"
)

func newChannelCmd(root *rootOptions) *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Edit the channels of a profile",
	}
	cmd.PersistentFlags().StringVar(&profileName, "profile", "", "Profile to edit (default: the active profile)")
	cmd.AddCommand(
		newChannelAddCmd(root, &profileName),
		newChannelRemoveCmd(root, &profileName),
		newChannelConsumerCmd(root, &profileName),
		newChannelModesCmd(),
	)
	return cmd
}

// editProfile selects the profile, applies edit and saves the result.
func editProfile(cmd *cobra.Command, root *rootOptions, profileName string, edit func(a *app) error) error {
	a, err := openApp(cmd, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	ctx := cmd.Context()
	if err := a.requireActive(ctx, profileName); err != nil {
		return err
	}
	if err := edit(a); err != nil {
		return err
	}
	if err := a.console.Profiles().Save(ctx); err != nil {
		return err
	}
	p, name, _ := a.console.Profiles().Active()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q (%d channels)\n", name, p.ChannelCount())
	return nil
}

func newChannelAddCmd(root *rootOptions, profileName *string) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vm, err := profile.ParseVideoMode(mode)
			if err != nil {
				return err
			}
			return editProfile(cmd, root, *profileName, func(a *app) error {
				return a.console.Profiles().AddChannel(vm)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(profile.DefaultVideoMode), "Video mode of the new channel")
	return cmd
}

func newChannelRemoveCmd(root *rootOptions, profileName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <channel>",
		Short: "Remove a channel by its 1-based number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid channel %q", args[0])
			}
			return editProfile(cmd, root, *profileName, func(a *app) error {
				return a.console.Profiles().RemoveChannel(ch)
			})
		},
	}
}

func newChannelConsumerCmd(root *rootOptions, profileName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "consumer <channel> <decklink|ndi|screen|system-audio>",
		Short: "Add an output consumer with default settings to a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid channel %q", args[0])
			}
			c, err := profile.NewConsumer(args[1])
			if err != nil {
				return err
			}
			return editProfile(cmd, root, *profileName, func(a *app) error {
				return a.console.Profiles().AddConsumer(ch, c)
			})
		},
	}
}

func newChannelModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the supported video modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, m := range profile.VideoModes() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", m, m.Label())
			}
			return nil
		},
	}
}
