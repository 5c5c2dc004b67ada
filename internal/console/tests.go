package console

import (
	"context"
	"errors"
	"fmt"

	clog "github.com/baaaaaaaka/caspar-console/internal/log"
	"github.com/baaaaaaaka/caspar-console/internal/metrics"
)

// Tests drives the key/fill test pattern on the server channels and the
// preview service that serves it.
type Tests struct{ c *Console }

// channelCount requires a connected session and an active profile.
func (t Tests) channelCount() (int, error) {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn.State != Connected {
		return 0, ErrNotConnected
	}
	if c.active == nil {
		return 0, ErrNoActiveProfile
	}
	return c.active.ChannelCount(), nil
}

func (t Tests) checkChannel(channel int) error {
	n, err := t.channelCount()
	if err != nil {
		return err
	}
	if channel < 1 || channel > n {
		return fmt.Errorf("%w: %d (have %d)", ErrChannelRange, channel, n)
	}
	return nil
}

// ensurePreview starts the preview service if it is not running and returns
// its base URL.
func (t Tests) ensurePreview(ctx context.Context) (string, error) {
	c := t.c
	c.mu.Lock()
	running, url := c.tests.PreviewRunning, c.tests.PreviewURL
	c.mu.Unlock()
	if running && url != "" {
		return url, nil
	}

	port, err := c.b.Preview.Start(ctx, c.previewPort)
	if err != nil {
		return "", fmt.Errorf("start preview service: %w", err)
	}
	url, ok := c.b.Preview.URL()
	if !ok {
		return "", errors.New("start preview service: not serving")
	}
	c.mu.Lock()
	c.tests.PreviewRunning = true
	c.tests.PreviewURL = url
	c.mu.Unlock()
	metrics.SetPreviewRunning(true)
	c.log.Info().Int(clog.FieldPort, port).Str(clog.FieldURL, url).Msg("preview service started")
	return url, nil
}

func (c *Console) setTestChannels(set ChannelSet) {
	c.mu.Lock()
	c.tests.Channels = set
	n := len(set)
	c.mu.Unlock()
	metrics.SetActiveChannelTests(n)
}

func (c *Console) updateTestChannels(fn func(ChannelSet)) {
	c.mu.Lock()
	next := c.tests.Channels.Clone()
	fn(next)
	c.tests.Channels = next
	n := len(next)
	c.mu.Unlock()
	metrics.SetActiveChannelTests(n)
}

// dropTestsAbove forgets tests on channels the active profile no longer has.
// The caller holds c.mu.
func (c *Console) dropTestsAbove(n int) {
	var dropped []int
	for ch := range c.tests.Channels {
		if ch > n {
			dropped = append(dropped, ch)
		}
	}
	if len(dropped) == 0 {
		return
	}
	next := c.tests.Channels.Clone()
	for _, ch := range dropped {
		delete(next, ch)
	}
	c.tests.Channels = next
	metrics.SetActiveChannelTests(len(next))
	c.log.Warn().Ints(clog.FieldChannels, dropped).Msg("test state dropped for removed channels")
}

// TestChannel shows the test pattern on one 1-based channel.
func (t Tests) TestChannel(ctx context.Context, channel int) error {
	c := t.c
	release, err := enter(c.testGate)
	if err != nil {
		return err
	}
	defer release()

	if err := t.checkChannel(channel); err != nil {
		return err
	}
	url, err := t.ensurePreview(ctx)
	if err != nil {
		return err
	}
	if err := c.b.Tests.StartChannelTest(ctx, channel, url); err != nil {
		return fmt.Errorf("start test on channel %d: %w", channel, err)
	}
	c.updateTestChannels(func(s ChannelSet) { s[channel] = struct{}{} })
	c.log.Info().Int(clog.FieldChannel, channel).Msg("channel test started")
	return nil
}

// StopChannelTest clears the test pattern from one channel. The preview
// service keeps running.
func (t Tests) StopChannelTest(ctx context.Context, channel int) error {
	c := t.c
	release, err := enter(c.testGate)
	if err != nil {
		return err
	}
	defer release()

	if err := t.checkChannel(channel); err != nil {
		return err
	}
	if err := c.b.Tests.StopChannelTest(ctx, channel); err != nil {
		return fmt.Errorf("stop test on channel %d: %w", channel, err)
	}
	c.updateTestChannels(func(s ChannelSet) { delete(s, channel) })
	c.log.Info().Int(clog.FieldChannel, channel).Msg("channel test stopped")
	return nil
}

// TestAllChannels shows the test pattern on every channel of the active profile.
func (t Tests) TestAllChannels(ctx context.Context) error {
	c := t.c
	release, err := enter(c.testGate)
	if err != nil {
		return err
	}
	defer release()

	n, err := t.channelCount()
	if err != nil {
		return err
	}
	url, err := t.ensurePreview(ctx)
	if err != nil {
		return err
	}
	if err := c.b.Tests.StartAllChannelTests(ctx, n, url); err != nil {
		return fmt.Errorf("start all channel tests: %w", err)
	}
	c.setTestChannels(ChannelRange(n))
	c.log.Info().Int(clog.FieldChannels, n).Msg("all channel tests started")
	return nil
}

// StopAllTests clears the test pattern from every channel.
func (t Tests) StopAllTests(ctx context.Context) error {
	c := t.c
	release, err := enter(c.testGate)
	if err != nil {
		return err
	}
	defer release()

	n, err := t.channelCount()
	if err != nil {
		return err
	}
	if err := c.b.Tests.StopAllChannelTests(ctx, n); err != nil {
		return fmt.Errorf("stop all channel tests: %w", err)
	}
	c.setTestChannels(ChannelSet{})
	c.log.Info().Int(clog.FieldChannels, n).Msg("all channel tests stopped")
	return nil
}

// StopPreview stops the preview service. Running tests are forgotten once
// the service is gone.
func (t Tests) StopPreview(ctx context.Context) error {
	c := t.c
	release, err := enter(c.testGate)
	if err != nil {
		return err
	}
	defer release()

	stopErr := c.b.Preview.Stop(ctx)
	url, running := c.b.Preview.URL()

	c.mu.Lock()
	c.tests.PreviewRunning = running
	c.tests.PreviewURL = ""
	if running {
		c.tests.PreviewURL = url
	} else {
		c.tests.Channels = ChannelSet{}
	}
	n := len(c.tests.Channels)
	c.mu.Unlock()
	metrics.SetPreviewRunning(running)
	metrics.SetActiveChannelTests(n)

	if stopErr != nil {
		return fmt.Errorf("stop preview service: %w", stopErr)
	}
	c.log.Info().Msg("preview service stopped")
	return nil
}

// State returns a copy of the test state.
func (t Tests) State() TestState {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	return TestState{
		PreviewRunning: c.tests.PreviewRunning,
		PreviewURL:     c.tests.PreviewURL,
		Channels:       c.tests.Channels.Clone(),
	}
}
