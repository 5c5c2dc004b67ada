package profile

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewDefaultProfile(t *testing.T) {
	p := New("Studio", fixedNow)
	require.Equal(t, FormatVersion, p.Version)
	require.Equal(t, "Studio", p.Name)
	require.Equal(t, fixedNow, p.Created)
	require.Equal(t, fixedNow, p.Modified)
	require.Len(t, p.Caspar.Channels, 1)
	require.Equal(t, VideoMode("1080i5000"), p.Caspar.Channels[0].VideoMode)
	require.Empty(t, p.Caspar.Channels[0].Consumers)
	require.Equal(t, 5250, p.Caspar.Controllers.TCP.Port)
	require.Equal(t, "AMCP", p.Caspar.Controllers.TCP.Protocol)
	require.NoError(t, p.Validate())
}

func TestProfileJSONUsesTaggedConsumers(t *testing.T) {
	p := New("Studio", fixedNow)
	p.Caspar.Channels[0].Consumers = Consumers{
		NewDeckLinkConsumer(),
		NewNDIConsumer(),
		ScreenConsumer{Device: 2, Windowed: false, Width: intPtr(1920)},
		SystemAudioConsumer{ChannelLayout: strPtr("stereo")},
	}

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var raw struct {
		Caspar struct {
			Channels []struct {
				VideoMode string           `json:"video_mode"`
				Consumers []map[string]any `json:"consumers"`
			} `json:"channels"`
		} `json:"caspar"`
	}
	require.NoError(t, json.Unmarshal(b, &raw))
	cons := raw.Caspar.Channels[0].Consumers
	require.Len(t, cons, 4)
	require.Equal(t, "decklink", cons[0]["type"])
	require.Equal(t, true, cons[0]["embedded_audio"])
	require.Equal(t, "normal", cons[0]["latency"])
	require.Equal(t, "ndi", cons[1]["type"])
	require.Equal(t, "screen", cons[2]["type"])
	require.EqualValues(t, 1920, cons[2]["width"])
	require.Equal(t, "system-audio", cons[3]["type"])

	var back Profile
	require.NoError(t, json.Unmarshal(b, &back))
	if diff := cmp.Diff(p, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConsumerDecodeDefaultsAndErrors(t *testing.T) {
	var cs Consumers
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"screen"},{"type":"decklink","device":3}]`), &cs))
	require.Equal(t, NewScreenConsumer(), cs[0])
	dl := cs[1].(DeckLinkConsumer)
	require.Equal(t, 3, dl.Device)
	require.Equal(t, LatencyNormal, dl.Latency)
	require.Equal(t, KeyerExternal, dl.Keyer)

	err := json.Unmarshal([]byte(`[{"type":"ffmpeg"}]`), &cs)
	require.ErrorContains(t, err, "unknown consumer type")

	err = json.Unmarshal([]byte(`[{"device":1}]`), &cs)
	require.ErrorContains(t, err, "without type")
}

func TestValidateRejectsBadProfiles(t *testing.T) {
	p := New("x", fixedNow)
	p.Caspar.Channels = nil
	require.Error(t, p.Validate())

	p = New("x", fixedNow)
	p.Caspar.Channels[0].VideoMode = "999p"
	require.ErrorContains(t, p.Validate(), "video mode")

	p = New("x", fixedNow)
	p.Caspar.Channels[0].Consumers = Consumers{DeckLinkConsumer{Device: 1, Latency: "fast", Keyer: KeyerInternal}}
	require.ErrorContains(t, p.Validate(), "latency")
}

func TestWithChannelAndWithoutChannel(t *testing.T) {
	p := New("x", fixedNow)

	two, err := p.WithChannel("720p5000")
	require.NoError(t, err)
	require.Equal(t, 1, p.ChannelCount(), "original must not change")
	require.Equal(t, 2, two.ChannelCount())
	require.Equal(t, VideoMode("720p5000"), two.Caspar.Channels[1].VideoMode)

	_, err = p.WithChannel("bogus")
	require.Error(t, err)

	one, err := two.WithoutChannel(1)
	require.NoError(t, err)
	require.Equal(t, VideoMode("720p5000"), one.Caspar.Channels[0].VideoMode)

	_, err = one.WithoutChannel(1)
	require.True(t, errors.Is(err, ErrLastChannel))

	_, err = two.WithoutChannel(3)
	require.True(t, errors.Is(err, ErrNoChannel))
}

func TestWithDeviceLabelUpserts(t *testing.T) {
	p := New("x", fixedNow)
	p = p.WithDeviceLabel("abc", "DeckLink Duo 2", "Graphics Fill")
	require.Len(t, p.DeckLink.Devices, 1)
	label, ok := p.DeviceLabel("abc")
	require.True(t, ok)
	require.Equal(t, "Graphics Fill", label)

	p = p.WithDeviceLabel("abc", "", "Key")
	require.Len(t, p.DeckLink.Devices, 1)
	require.Equal(t, "DeckLink Duo 2", p.DeckLink.Devices[0].ModelName)
	label, _ = p.DeviceLabel("abc")
	require.Equal(t, "Key", label)

	p = p.WithDeviceLabel("abc", "", "")
	_, ok = p.DeviceLabel("abc")
	require.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	p := New("x", fixedNow)
	p.Caspar.Channels[0].Consumers = Consumers{ScreenConsumer{Device: 1, Name: strPtr("a")}}
	p.Caspar.AMCP.MediaServer = &MediaServer{Host: "localhost", Port: 8000}
	p = p.WithDeviceLabel("id", "m", "l")

	c := p.Clone()
	c.Caspar.Channels[0].VideoMode = "PAL"
	*c.Caspar.Channels[0].Consumers[0].(ScreenConsumer).Name = "b"
	c.Caspar.AMCP.MediaServer.Port = 1
	*c.DeckLink.Devices[0].Label = "changed"

	require.Equal(t, DefaultVideoMode, p.Caspar.Channels[0].VideoMode)
	require.Equal(t, "a", *p.Caspar.Channels[0].Consumers[0].(ScreenConsumer).Name)
	require.Equal(t, 8000, p.Caspar.AMCP.MediaServer.Port)
	require.Equal(t, "l", *p.DeckLink.Devices[0].Label)
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"Default", "Studio A", "show-2026_v2"} {
		require.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", "  ", " lead", ".hidden", "..", "a/b", `a\b`, "a:b", "tab\tname"} {
		err := ValidateName(bad)
		require.Error(t, err, bad)
		require.True(t, errors.Is(err, ErrInvalidName), bad)
	}
}

func TestParseVideoMode(t *testing.T) {
	m, err := ParseVideoMode("1080I5000")
	require.NoError(t, err)
	require.Equal(t, VideoMode("1080i5000"), m)
	require.Equal(t, "1080i50", m.Label())

	m, err = ParseVideoMode("pal")
	require.NoError(t, err)
	require.Equal(t, VideoMode("PAL"), m)

	_, err = ParseVideoMode("4k")
	require.Error(t, err)
	require.Len(t, VideoModes(), 33)
}

func TestDescribeCoversEveryKind(t *testing.T) {
	for _, kind := range []string{KindDeckLink, KindNDI, KindScreen, KindSystemAudio} {
		c, err := NewConsumer(kind)
		require.NoError(t, err)
		require.Equal(t, kind, Kind(c))
		require.True(t, strings.HasPrefix(Describe(c), kind), Describe(c))
	}
	_, err := NewConsumer("html")
	require.Error(t, err)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
