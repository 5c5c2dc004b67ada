package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newConnectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect [host] [port]",
		Short: "Check the control connection and remember the server for the next start",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, err := parseEndpoint(args)
			if err != nil {
				return err
			}
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			a.console.Settings().Load(cmd.Context())
			if err := a.connect(cmd.Context(), host, port); err != nil {
				return err
			}
			conn := a.console.Control().State()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s:%d (CasparCG %s)\n", conn.Host, conn.Port, conn.Version)
			return nil
		},
	}
}

func parseEndpoint(args []string) (string, int, error) {
	host, port := "", 0
	if len(args) >= 1 {
		host = strings.TrimSpace(args[0])
	}
	if len(args) == 2 {
		p, err := strconv.Atoi(args[1])
		if err != nil || p < 1 || p > 65535 {
			return "", 0, fmt.Errorf("invalid port %q", args[1])
		}
		port = p
	}
	return host, port, nil
}

func newDisconnectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget that the server was running so the next start does not reconnect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			a.console.Settings().Load(cmd.Context())
			if err := a.console.Control().Disconnect(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Disconnected")
			return nil
		},
	}
}

func newInfoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info [what]",
		Short: "Print the server's INFO reply (e.g. `info paths`, `info 1`)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			a.console.Settings().Load(cmd.Context())
			if err := a.connect(cmd.Context(), "", 0); err != nil {
				return err
			}
			what := ""
			if len(args) == 1 {
				what = args[0]
			}
			lines, err := a.client.Info(cmd.Context(), what)
			if err != nil {
				return err
			}
			for _, ln := range lines {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), ln)
			}
			return nil
		},
	}
}
