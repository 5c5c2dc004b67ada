package console

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/baaaaaaaka/caspar-console/internal/metrics"
)

func TestControlConnect(t *testing.T) {
	h := newHarness(configured())
	ctx := context.Background()
	h.c.Settings().Load(ctx)

	require.NoError(t, h.c.Control().Connect(ctx, "playout-1", 5250))
	conn := h.c.Snapshot().Connection
	require.Equal(t, Connection{State: Connected, Host: "playout-1", Port: 5250, Version: "2.4.0 Stable"}, conn)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ControlConnected))

	s := h.c.Settings().Current()
	require.Equal(t, "playout-1", *s.LastHost)
	require.Equal(t, 5250, *s.LastPort)
	require.True(t, s.LastServerWasRunning)
}

func TestControlConnectFailure(t *testing.T) {
	h := newHarness(configured())
	h.control.connectErr = errBoom

	err := h.c.Control().Connect(context.Background(), "playout-1", 5250)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, Connection{State: Disconnected}, h.c.Snapshot().Connection)
	require.Empty(t, h.settings.saves)
}

func TestControlVersionFailureLeavesNoPartialState(t *testing.T) {
	h := newHarness(configured())
	h.control.versionErr = errBoom

	err := h.c.Control().Connect(context.Background(), "playout-1", 5250)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, Connection{State: Disconnected}, h.c.Snapshot().Connection)
	require.Equal(t, []string{"connect", "version", "close"}, h.control.calls)
	require.False(t, h.control.IsConnected())
}

func TestControlDisconnectAlwaysDisconnects(t *testing.T) {
	h := loaded("Studio")
	ctx := context.Background()
	require.NoError(t, h.c.Control().Connect(ctx, "playout-1", 5250))
	require.NoError(t, h.c.Tests().TestChannel(ctx, 1))
	h.control.closeErr = errBoom

	err := h.c.Control().Disconnect(ctx)
	require.ErrorIs(t, err, errBoom)
	snap := h.c.Snapshot()
	require.Equal(t, Disconnected, snap.Connection.State)
	require.Empty(t, snap.Tests.Channels)
	require.False(t, snap.Settings.LastServerWasRunning)
}

func TestControlCheckConnection(t *testing.T) {
	h := newHarness(configured())
	ctx := context.Background()
	require.NoError(t, h.c.Control().Connect(ctx, "playout-1", 5250))

	require.Equal(t, Connected, h.c.Control().CheckConnection(ctx).State)

	h.control.versionErr = errBoom
	require.Equal(t, Connection{State: Disconnected}, h.c.Control().CheckConnection(ctx))

	h.control.versionErr = nil
	h.control.mu.Lock()
	h.control.connected = false
	h.control.mu.Unlock()
	require.Equal(t, Disconnected, h.c.Control().CheckConnection(ctx).State)
}

func TestControlCheckConnectionAdoptsLiveSession(t *testing.T) {
	h := newHarness(configured())
	h.control.connected, h.control.host, h.control.port = true, "10.0.0.5", 5250

	conn := h.c.Control().CheckConnection(context.Background())
	require.Equal(t, Connection{State: Connected, Host: "10.0.0.5", Port: 5250, Version: "2.4.0 Stable"}, conn)
}

func TestControlOverlappingConnectIsBusy(t *testing.T) {
	h := newHarness(configured())
	h.control.entered = make(chan struct{})
	h.control.release = make(chan struct{})
	ctx := context.Background()

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = h.c.Control().Connect(ctx, "playout-1", 5250)
	}()
	<-h.control.entered

	require.ErrorIs(t, h.c.Control().Connect(ctx, "playout-2", 5250), ErrBusy)
	require.ErrorIs(t, h.c.Control().Disconnect(ctx), ErrBusy)

	close(h.control.release)
	wg.Wait()
	require.NoError(t, firstErr)
	require.Equal(t, "playout-1", h.c.Snapshot().Connection.Host)
}
