package console

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	"github.com/baaaaaaaka/caspar-console/internal/sysinfo"
)

func steps(r StartupReport) []Step {
	out := make([]Step, 0, len(r.Steps))
	for _, s := range r.Steps {
		out = append(out, s.Step)
	}
	return out
}

func TestStartupSetupRoute(t *testing.T) {
	h := newHarness(config.GuiSettings{LastProfile: config.String("Studio")}, "Studio")

	report := h.c.Startup(context.Background())
	require.True(t, report.NeedsSetup)
	require.Equal(t, []Step{StepSettings, StepSetup}, steps(report))
	require.True(t, h.c.Snapshot().NeedsSetup)
	require.Empty(t, h.profiles.calls)
	require.Empty(t, h.control.calls)
	require.Zero(t, h.devices.listCalls)
}

func TestStartupRestoresSession(t *testing.T) {
	stored := configured()
	stored.LastProfile = config.String("Studio")
	stored.LastHost = config.String("playout-1")
	stored.LastPort = config.Int(5250)
	stored.LastServerWasRunning = true
	h := newHarness(stored, "Studio", "Backup")
	h.devices.devices = []decklink.Device{{Index: 1, PersistentID: "a"}}

	report := h.c.Startup(context.Background())
	require.False(t, report.NeedsSetup)
	require.Equal(t, []Step{StepSettings, StepProfiles, StepSelect, StepConnect, StepDevices, StepVersions}, steps(report))
	for _, s := range report.Steps {
		require.NoError(t, s.Err, s.Step)
	}

	snap := h.c.Snapshot()
	require.Equal(t, []string{"Backup", "Studio"}, snap.Profiles)
	require.Equal(t, "Studio", snap.Active.Name)
	require.Equal(t, Connected, snap.Connection.State)
	require.Len(t, snap.Devices, 1)
	require.Equal(t, sysinfo.Versions{Caspar: "2.4.0 Stable", NDI: "Installed"}, snap.Versions)
}

func TestStartupContinuesPastFailures(t *testing.T) {
	stored := configured()
	stored.LastProfile = config.String("Missing")
	stored.LastHost = config.String("playout-1")
	stored.LastPort = config.Int(5250)
	stored.LastServerWasRunning = true
	h := newHarness(stored, "Studio")
	h.control.connectErr = errBoom
	h.devices.listErr = decklink.ErrSDKUnavailable

	report := h.c.Startup(context.Background())
	require.Equal(t, []Step{StepSettings, StepProfiles, StepSelect, StepConnect, StepDevices, StepVersions}, steps(report))
	require.Error(t, report.Err(StepSelect))
	require.ErrorIs(t, report.Err(StepConnect), errBoom)
	require.ErrorIs(t, report.Err(StepDevices), decklink.ErrSDKUnavailable)
	require.NoError(t, report.Err(StepVersions))

	snap := h.c.Snapshot()
	require.Nil(t, snap.Active)
	require.Equal(t, Disconnected, snap.Connection.State)
	require.Equal(t, "Installed", snap.Versions.NDI)
}

func TestStartupSkipsConnectWithoutEndpoint(t *testing.T) {
	stored := configured()
	stored.LastServerWasRunning = true
	stored.LastHost = config.String("playout-1")
	h := newHarness(stored)

	report := h.c.Startup(context.Background())
	require.False(t, report.Ran(StepConnect))
	require.False(t, report.Ran(StepSelect))
	require.True(t, report.Ran(StepDevices))
	require.Empty(t, h.control.calls)
}

func TestStartupSkipsConnectWhenServerWasStopped(t *testing.T) {
	stored := configured()
	stored.LastHost = config.String("playout-1")
	stored.LastPort = config.Int(5250)
	h := newHarness(stored)

	report := h.c.Startup(context.Background())
	require.False(t, report.Ran(StepConnect))
}

func TestRefreshVersionsWithoutBackend(t *testing.T) {
	c := New(Backends{
		Settings: &fakeSettings{},
		Profiles: newFakeProfiles(),
		Devices:  &fakeDevices{},
		Control:  &fakeControl{},
		Tests:    &fakeTests{},
		Preview:  &fakePreview{},
	}, Options{Logger: zerolog.Nop()})

	v, err := c.RefreshVersions(context.Background())
	require.NoError(t, err)
	require.Equal(t, sysinfo.Versions{}, v)
}
