package amcp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

// Test patterns sit on high layers so they do not collide with programme
// content. The key layer feeds the keyer of the fill layer.
const (
	FillLayer = 20
	KeyLayer  = 19

	TestPatternPage = "key-fill-identifier.html"
)

// TestPatternURL is the page the HTML producer loads for one channel.
func TestPatternURL(baseURL string, channel int, mode string) string {
	return fmt.Sprintf("%s/%s?mode=%s&id=%d", strings.TrimRight(baseURL, "/"), TestPatternPage, url.QueryEscape(mode), channel)
}

// StartChannelTest plays the fill and key identifier pages on channel and
// enables the keyer.
func (c *Client) StartChannelTest(ctx context.Context, channel int, baseURL string) error {
	if channel < 1 {
		return fmt.Errorf("invalid channel %d", channel)
	}
	cmds := []string{
		fmt.Sprintf("PLAY %d-%d [HTML] %s", channel, FillLayer, TestPatternURL(baseURL, channel, "fill")),
		fmt.Sprintf("PLAY %d-%d [HTML] %s", channel, KeyLayer, TestPatternURL(baseURL, channel, "key")),
		fmt.Sprintf("MIXER %d-%d KEYER 1", channel, KeyLayer),
	}
	for _, cmd := range cmds {
		if _, err := c.Send(ctx, cmd); err != nil {
			return fmt.Errorf("start test on channel %d: %w", channel, err)
		}
	}
	return nil
}

// StopChannelTest clears both test layers of channel.
func (c *Client) StopChannelTest(ctx context.Context, channel int) error {
	for _, layer := range []int{FillLayer, KeyLayer} {
		if _, err := c.Send(ctx, fmt.Sprintf("CLEAR %d-%d", channel, layer)); err != nil {
			return fmt.Errorf("stop test on channel %d: %w", channel, err)
		}
	}
	return nil
}

// StartAllChannelTests starts channels 1..n in order and stops at the first
// failure.
func (c *Client) StartAllChannelTests(ctx context.Context, n int, baseURL string) error {
	for ch := 1; ch <= n; ch++ {
		if err := c.StartChannelTest(ctx, ch, baseURL); err != nil {
			return err
		}
	}
	return nil
}

// StopAllChannelTests clears channels 1..n. Per-channel failures are ignored
// since a channel may have had nothing running; only a lost connection is
// reported.
func (c *Client) StopAllChannelTests(ctx context.Context, n int) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	for ch := 1; ch <= n; ch++ {
		if err := c.StopChannelTest(ctx, ch); err != nil {
			c.log.Debug().Err(err).Int(clog.FieldChannel, ch).Msg("ignoring stop failure")
		}
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}
