package profile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type xmlConfiguration struct {
	XMLName          xml.Name       `xml:"configuration"`
	Paths            xmlPaths       `xml:"paths"`
	LogLevel         *string        `xml:"log-level,omitempty"`
	LogCategories    *string        `xml:"log-categories,omitempty"`
	ForceDeinterlace *bool          `xml:"force-deinterlace,omitempty"`
	AutoDeinterlace  *bool          `xml:"auto-deinterlace,omitempty"`
	BlendModes       *bool          `xml:"blend-modes,omitempty"`
	MixerLatency     *int           `xml:"mixer-latency,omitempty"`
	Accelerator      *string        `xml:"accelerator,omitempty"`
	Channels         []xmlChannel   `xml:"channels>channel"`
	Controllers      xmlControllers `xml:"controllers"`
	AMCP             *xmlAMCP       `xml:"amcp,omitempty"`
}

type xmlPaths struct {
	Media    string  `xml:"media-path"`
	Template string  `xml:"template-path"`
	Log      string  `xml:"log-path"`
	Data     string  `xml:"data-path"`
	Font     *string `xml:"font-path,omitempty"`
}

type xmlChannel struct {
	VideoMode string        `xml:"video-mode"`
	Consumers *xmlConsumers `xml:"consumers,omitempty"`
}

type xmlControllers struct {
	TCP *xmlTCP `xml:"tcp"`
}

type xmlTCP struct {
	Port     int    `xml:"port"`
	Protocol string `xml:"protocol"`
}

type xmlAMCP struct {
	MediaServer *xmlMediaServer `xml:"media-server,omitempty"`
}

type xmlMediaServer struct {
	Host string `xml:"host"`
	Port int    `xml:"port"`
}

type xmlDeckLink struct {
	Device        int    `xml:"device"`
	KeyDevice     *int   `xml:"key-device,omitempty"`
	EmbeddedAudio bool   `xml:"embedded-audio"`
	Latency       string `xml:"latency"`
	Keyer         string `xml:"keyer"`
	KeyOnly       *bool  `xml:"key-only,omitempty"`
}

type xmlNDI struct {
	Name        string `xml:"name"`
	AllowFields bool   `xml:"allow-fields"`
}

type xmlScreen struct {
	Device      int     `xml:"device"`
	Windowed    bool    `xml:"windowed"`
	Width       *int    `xml:"width,omitempty"`
	Height      *int    `xml:"height,omitempty"`
	X           *int    `xml:"x,omitempty"`
	Y           *int    `xml:"y,omitempty"`
	Borderless  bool    `xml:"borderless,omitempty"`
	AlwaysOnTop bool    `xml:"always-on-top,omitempty"`
	Name        *string `xml:"name,omitempty"`
}

type xmlSystemAudio struct {
	ChannelLayout *string `xml:"channel-layout,omitempty"`
	Latency       *int    `xml:"latency,omitempty"`
}

// xmlConsumers keeps mixed consumer elements in document order.
type xmlConsumers struct {
	Items []Consumer
}

func (c xmlConsumers) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, item := range c.Items {
		var (
			name string
			v    any
		)
		switch cons := item.(type) {
		case DeckLinkConsumer:
			name = KindDeckLink
			v = xmlDeckLink{
				Device:        cons.Device,
				KeyDevice:     cons.KeyDevice,
				EmbeddedAudio: cons.EmbeddedAudio,
				Latency:       string(cons.Latency),
				Keyer:         string(cons.Keyer),
				KeyOnly:       cons.KeyOnly,
			}
		case NDIConsumer:
			name = KindNDI
			v = xmlNDI{Name: cons.Name, AllowFields: cons.AllowFields}
		case ScreenConsumer:
			name = KindScreen
			v = xmlScreen{
				Device:      cons.Device,
				Windowed:    cons.Windowed,
				Width:       cons.Width,
				Height:      cons.Height,
				X:           cons.X,
				Y:           cons.Y,
				Borderless:  cons.Borderless,
				AlwaysOnTop: cons.AlwaysOnTop,
				Name:        cons.Name,
			}
		case SystemAudioConsumer:
			name = KindSystemAudio
			v = xmlSystemAudio{ChannelLayout: cons.ChannelLayout, Latency: cons.Latency}
		default:
			return fmt.Errorf("unknown consumer %T", item)
		}
		if err := e.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func (c *xmlConsumers) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			item, err := decodeConsumer(d, t)
			if err != nil {
				return err
			}
			if item != nil {
				c.Items = append(c.Items, item)
			}
		case xml.EndElement:
			return nil
		}
	}
}

func decodeConsumer(d *xml.Decoder, start xml.StartElement) (Consumer, error) {
	switch start.Name.Local {
	case KindDeckLink:
		v := xmlDeckLink{Device: 1, Latency: string(LatencyNormal), Keyer: string(KeyerExternal), EmbeddedAudio: true}
		if err := d.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("decklink consumer: %w", err)
		}
		return DeckLinkConsumer{
			Device:        v.Device,
			KeyDevice:     v.KeyDevice,
			EmbeddedAudio: v.EmbeddedAudio,
			Latency:       Latency(strings.ToLower(v.Latency)),
			Keyer:         Keyer(strings.ToLower(v.Keyer)),
			KeyOnly:       v.KeyOnly,
		}, nil
	case KindNDI:
		v := xmlNDI{Name: "CasparCG", AllowFields: true}
		if err := d.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("ndi consumer: %w", err)
		}
		return NDIConsumer{Name: v.Name, AllowFields: v.AllowFields}, nil
	case KindScreen:
		v := xmlScreen{Device: 1, Windowed: true}
		if err := d.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("screen consumer: %w", err)
		}
		return ScreenConsumer{
			Device:      v.Device,
			Windowed:    v.Windowed,
			Width:       v.Width,
			Height:      v.Height,
			X:           v.X,
			Y:           v.Y,
			Borderless:  v.Borderless,
			AlwaysOnTop: v.AlwaysOnTop,
			Name:        v.Name,
		}, nil
	case KindSystemAudio:
		var v xmlSystemAudio
		if err := d.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("system-audio consumer: %w", err)
		}
		return SystemAudioConsumer{ChannelLayout: v.ChannelLayout, Latency: v.Latency}, nil
	default:
		// Consumers this console does not model are dropped.
		return nil, d.Skip()
	}
}

// ExportXML renders c in the casparcg.config format read by the server.
func ExportXML(c CasparConfig) ([]byte, error) {
	doc := xmlConfiguration{
		Paths: xmlPaths{
			Media:    c.Paths.Media,
			Template: c.Paths.Template,
			Log:      c.Paths.Log,
			Data:     c.Paths.Data,
			Font:     c.Paths.Font,
		},
		LogLevel:         c.LogLevel,
		LogCategories:    c.LogCategories,
		ForceDeinterlace: c.ForceDeinterlace,
		AutoDeinterlace:  c.AutoDeinterlace,
		BlendModes:       c.BlendModes,
		MixerLatency:     c.MixerLatency,
		Accelerator:      c.Accelerator,
		Controllers: xmlControllers{TCP: &xmlTCP{
			Port:     c.Controllers.TCP.Port,
			Protocol: c.Controllers.TCP.Protocol,
		}},
	}
	for _, ch := range c.Channels {
		xc := xmlChannel{VideoMode: string(ch.VideoMode)}
		if len(ch.Consumers) > 0 {
			xc.Consumers = &xmlConsumers{Items: ch.Consumers}
		}
		doc.Channels = append(doc.Channels, xc)
	}
	if ms := c.AMCP.MediaServer; ms != nil {
		doc.AMCP = &xmlAMCP{MediaServer: &xmlMediaServer{Host: ms.Host, Port: ms.Port}}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode casparcg.config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode casparcg.config: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ParseXML reads a casparcg.config document. Missing sections fall back to
// the defaults and a document without channels gets the default channel.
func ParseXML(r io.Reader) (CasparConfig, error) {
	doc := xmlConfiguration{
		Controllers: xmlControllers{TCP: &xmlTCP{Port: 5250, Protocol: "AMCP"}},
	}
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return CasparConfig{}, fmt.Errorf("parse casparcg.config: %w", err)
	}

	out := CasparConfig{
		Paths: Paths{
			Media:    doc.Paths.Media,
			Template: doc.Paths.Template,
			Log:      doc.Paths.Log,
			Data:     doc.Paths.Data,
			Font:     doc.Paths.Font,
		},
		LogLevel:         doc.LogLevel,
		LogCategories:    doc.LogCategories,
		ForceDeinterlace: doc.ForceDeinterlace,
		AutoDeinterlace:  doc.AutoDeinterlace,
		BlendModes:       doc.BlendModes,
		MixerLatency:     doc.MixerLatency,
		Accelerator:      doc.Accelerator,
		Controllers:      Controllers{TCP: TCPController{Port: 5250, Protocol: "AMCP"}},
	}
	if doc.Controllers.TCP != nil {
		out.Controllers.TCP = TCPController{Port: doc.Controllers.TCP.Port, Protocol: doc.Controllers.TCP.Protocol}
	}
	for i, xc := range doc.Channels {
		mode := DefaultVideoMode
		if strings.TrimSpace(xc.VideoMode) != "" {
			m, err := ParseVideoMode(xc.VideoMode)
			if err != nil {
				return CasparConfig{}, fmt.Errorf("channel %d: %w", i+1, err)
			}
			mode = m
		}
		ch := NewChannel(mode)
		if xc.Consumers != nil {
			ch.Consumers = append(ch.Consumers, xc.Consumers.Items...)
		}
		out.Channels = append(out.Channels, ch)
	}
	if len(out.Channels) == 0 {
		out.Channels = []Channel{NewChannel(DefaultVideoMode)}
	}
	if doc.AMCP != nil && doc.AMCP.MediaServer != nil {
		ms := MediaServer{Host: doc.AMCP.MediaServer.Host, Port: doc.AMCP.MediaServer.Port}
		if ms.Host == "" {
			ms.Host = "localhost"
		}
		if ms.Port == 0 {
			ms.Port = 8000
		}
		out.AMCP.MediaServer = &ms
	}
	return out, nil
}
