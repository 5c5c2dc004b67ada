package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/caspar-console/internal/console"
)

type statusReport struct {
	InstallPath   string            `json:"install_path,omitempty"`
	NeedsSetup    bool              `json:"needs_setup"`
	Profiles      []string          `json:"profiles"`
	ActiveProfile string            `json:"active_profile,omitempty"`
	Channels      int               `json:"channels"`
	Connection    connectionReport  `json:"connection"`
	Devices       []deviceReport    `json:"devices"`
	Versions      map[string]string `json:"versions"`
	Errors        map[string]string `json:"errors,omitempty"`
}

type connectionReport struct {
	State   string `json:"state"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
	Version string `json:"version,omitempty"`
}

type deviceReport struct {
	Index        int    `json:"index"`
	PersistentID string `json:"persistent_id"`
	Name         string `json:"name"`
	Duplex       string `json:"duplex,omitempty"`
	Label        string `json:"label,omitempty"`
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Restore the last session and report profiles, connection, devices and versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			report := a.console.Startup(cmd.Context())
			st := buildStatus(a.console.Snapshot(), report)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}

func buildStatus(s console.Snapshot, report console.StartupReport) statusReport {
	st := statusReport{
		InstallPath: s.Settings.InstallPath(),
		NeedsSetup:  report.NeedsSetup,
		Profiles:    s.Profiles,
		Channels:    s.ChannelCount(),
		Connection: connectionReport{
			State:   s.Connection.State.String(),
			Host:    s.Connection.Host,
			Port:    s.Connection.Port,
			Version: s.Connection.Version,
		},
		Devices:  []deviceReport{},
		Versions: map[string]string{},
	}
	if s.Active != nil {
		st.ActiveProfile = s.Active.Name
	}
	for _, d := range s.Devices {
		dr := deviceReport{Index: d.Index, PersistentID: d.PersistentID, Name: d.DisplayName, Duplex: d.DuplexMode.String()}
		if s.Active != nil {
			dr.Label, _ = s.Active.DeviceLabel(d.PersistentID)
		}
		st.Devices = append(st.Devices, dr)
	}
	for k, v := range map[string]string{
		"caspar":   s.Versions.Caspar,
		"decklink": s.Versions.DeckLink,
		"ndi":      s.Versions.NDI,
		"scanner":  s.Versions.Scanner,
	} {
		if v != "" {
			st.Versions[k] = v
		}
	}
	for _, step := range report.Steps {
		if step.Err != nil {
			if st.Errors == nil {
				st.Errors = map[string]string{}
			}
			st.Errors[string(step.Step)] = step.Err.Error()
		}
	}
	return st
}

func printStatus(w io.Writer, st statusReport) {
	if st.NeedsSetup {
		_, _ = fmt.Fprintln(w, "Not configured: run `caspar-console init <caspar-install-path>`")
		return
	}
	_, _ = fmt.Fprintf(w, "Install:    %s\n", st.InstallPath)
	_, _ = fmt.Fprintf(w, "Profiles:   %s\n", strings.Join(st.Profiles, ", "))
	if st.ActiveProfile != "" {
		_, _ = fmt.Fprintf(w, "Active:     %s (%d channels)\n", st.ActiveProfile, st.Channels)
	} else {
		_, _ = fmt.Fprintln(w, "Active:     none")
	}
	if st.Connection.State == console.Connected.String() {
		_, _ = fmt.Fprintf(w, "Server:     %s:%d (%s)\n", st.Connection.Host, st.Connection.Port, st.Connection.Version)
	} else {
		_, _ = fmt.Fprintln(w, "Server:     disconnected")
	}
	_, _ = fmt.Fprintf(w, "Devices:    %d\n", len(st.Devices))
	for _, d := range st.Devices {
		line := fmt.Sprintf("  %d %s", d.Index, d.Name)
		if d.Duplex != "" {
			line += " [" + d.Duplex + "]"
		}
		if d.Label != "" {
			line += " " + d.Label
		}
		_, _ = fmt.Fprintln(w, line)
	}
	for _, k := range []string{"caspar", "decklink", "ndi", "scanner"} {
		if v, ok := st.Versions[k]; ok {
			_, _ = fmt.Fprintf(w, "Version:    %s %s\n", k, v)
		}
	}
	for _, k := range []string{"select", "connect", "devices", "versions"} {
		if msg, ok := st.Errors[k]; ok {
			_, _ = fmt.Fprintf(w, "Warning:    %s: %s\n", k, msg)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
