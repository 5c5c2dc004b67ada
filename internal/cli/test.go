package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

// waitForInterrupt blocks until ctx is done or the process is interrupted.
var waitForInterrupt = func(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func newTestCmd(root *rootOptions) *cobra.Command {
	var all bool
	var profileName string
	cmd := &cobra.Command{
		Use:   "test [channel...]",
		Short: "Show the key/fill identification pattern on channels until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("give channel numbers or --all")
			}
			channels := make([]int, 0, len(args))
			for _, arg := range args {
				ch, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid channel %q", arg)
				}
				channels = append(channels, ch)
			}

			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			ctx := cmd.Context()

			if err := a.requireActive(ctx, profileName); err != nil {
				return err
			}
			if err := a.connect(ctx, "", 0); err != nil {
				return err
			}
			tests := a.console.Tests()
			out := cmd.OutOrStdout()

			if all {
				if err := tests.TestAllChannels(ctx); err != nil {
					return err
				}
			} else {
				for _, ch := range channels {
					if err := tests.TestChannel(ctx, ch); err != nil {
						_ = tests.StopAllTests(context.WithoutCancel(ctx))
						return err
					}
				}
			}
			st := tests.State()
			_, _ = fmt.Fprintf(out, "Testing channels %v via %s; press Ctrl-C to stop\n", st.Channels.Sorted(), st.PreviewURL)

			waitForInterrupt(ctx)

			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			stopErr := tests.StopAllTests(stopCtx)
			if err := tests.StopPreview(stopCtx); err != nil && stopErr == nil {
				stopErr = err
			}
			_, _ = fmt.Fprintln(out, "Tests stopped")
			return stopErr
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Test every channel of the profile")
	cmd.Flags().StringVar(&profileName, "profile", "", "Profile to use (default: the active profile)")
	return cmd
}
