package profile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExportXMLLayout(t *testing.T) {
	c := DefaultCasparConfig()
	c.Paths = Paths{Media: "media/", Template: "template/", Log: "log/", Data: "data/"}
	c.LogLevel = strPtr("info")
	blend := false
	c.BlendModes = &blend
	c.Channels[0].Consumers = Consumers{
		NewDeckLinkConsumer(),
		ScreenConsumer{Device: 1, Windowed: true, Borderless: true},
	}
	c.Channels = append(c.Channels, NewChannel("720p5000"))
	c.AMCP.MediaServer = &MediaServer{Host: "localhost", Port: 8000}

	b, err := ExportXML(c)
	require.NoError(t, err)
	out := string(b)

	require.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	for _, want := range []string{
		"<configuration>",
		"<media-path>media/</media-path>",
		"<log-level>info</log-level>",
		"<blend-modes>false</blend-modes>",
		"<video-mode>1080i5000</video-mode>",
		"<video-mode>720p5000</video-mode>",
		"<embedded-audio>true</embedded-audio>",
		"<keyer>external</keyer>",
		"<borderless>true</borderless>",
		"<port>5250</port>",
		"<protocol>AMCP</protocol>",
		"<media-server>",
	} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "font-path")
	require.NotContains(t, out, "always-on-top")
	require.Less(t, strings.Index(out, "<decklink>"), strings.Index(out, "<screen>"), "consumer order must be kept")
	require.Equal(t, 1, strings.Count(out, "<consumers>"), "empty channels omit the consumers element")
}

func TestParseXMLRoundTrip(t *testing.T) {
	c := DefaultCasparConfig()
	c.Paths = Paths{Media: "m", Template: "t", Log: "l", Data: "d", Font: strPtr("f")}
	c.MixerLatency = intPtr(2)
	c.Channels[0].Consumers = Consumers{
		NewNDIConsumer(),
		SystemAudioConsumer{Latency: intPtr(200)},
		DeckLinkConsumer{Device: 2, KeyDevice: intPtr(3), EmbeddedAudio: false, Latency: LatencyLow, Keyer: KeyerExternalSeparateDevice},
	}

	b, err := ExportXML(c)
	require.NoError(t, err)
	got, err := ParseXML(bytes.NewReader(b))
	require.NoError(t, err)
	if diff := cmp.Diff(c, got); diff != "" {
		t.Fatalf("xml round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseXMLDefaults(t *testing.T) {
	doc := `<configuration>
  <paths><media-path>media/</media-path></paths>
  <channels>
    <channel>
      <video-mode>PAL</video-mode>
      <consumers>
        <screen><device>2</device></screen>
        <ffmpeg><path>x</path></ffmpeg>
      </consumers>
    </channel>
  </channels>
</configuration>`
	c, err := ParseXML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, c.Channels, 1)
	require.Equal(t, VideoMode("PAL"), c.Channels[0].VideoMode)
	require.Equal(t, Consumers{ScreenConsumer{Device: 2, Windowed: true}}, c.Channels[0].Consumers)
	require.Equal(t, TCPController{Port: 5250, Protocol: "AMCP"}, c.Controllers.TCP)

	c, err = ParseXML(strings.NewReader(`<configuration><paths/></configuration>`))
	require.NoError(t, err)
	require.Len(t, c.Channels, 1)
	require.Equal(t, DefaultVideoMode, c.Channels[0].VideoMode)

	_, err = ParseXML(strings.NewReader(`<configuration><channels><channel><video-mode>8k</video-mode></channel></channels></configuration>`))
	require.Error(t, err)
}
