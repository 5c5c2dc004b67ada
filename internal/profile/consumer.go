package profile

import (
	"encoding/json"
	"fmt"
)

// Consumer is one output of a channel. The set of implementations is closed:
// DeckLinkConsumer, NDIConsumer, ScreenConsumer and SystemAudioConsumer.
type Consumer interface {
	consumerKind() string
}

const (
	KindDeckLink    = "decklink"
	KindNDI         = "ndi"
	KindScreen      = "screen"
	KindSystemAudio = "system-audio"
)

type Latency string

const (
	LatencyNormal  Latency = "normal"
	LatencyLow     Latency = "low"
	LatencyDefault Latency = "default"
)

func (l Latency) Valid() bool {
	switch l {
	case LatencyNormal, LatencyLow, LatencyDefault:
		return true
	}
	return false
}

type Keyer string

const (
	KeyerExternal               Keyer = "external"
	KeyerExternalSeparateDevice Keyer = "external_separate_device"
	KeyerInternal               Keyer = "internal"
	KeyerDefault                Keyer = "default"
)

func (k Keyer) Valid() bool {
	switch k {
	case KeyerExternal, KeyerExternalSeparateDevice, KeyerInternal, KeyerDefault:
		return true
	}
	return false
}

type DeckLinkConsumer struct {
	Device        int     `json:"device"`
	KeyDevice     *int    `json:"key_device,omitempty"`
	EmbeddedAudio bool    `json:"embedded_audio"`
	Latency       Latency `json:"latency"`
	Keyer         Keyer   `json:"keyer"`
	KeyOnly       *bool   `json:"key_only,omitempty"`
}

type NDIConsumer struct {
	Name        string `json:"name"`
	AllowFields bool   `json:"allow_fields"`
}

type ScreenConsumer struct {
	Device      int     `json:"device"`
	Windowed    bool    `json:"windowed"`
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	X           *int    `json:"x,omitempty"`
	Y           *int    `json:"y,omitempty"`
	Borderless  bool    `json:"borderless"`
	AlwaysOnTop bool    `json:"always_on_top"`
	Name        *string `json:"name,omitempty"`
}

type SystemAudioConsumer struct {
	ChannelLayout *string `json:"channel_layout,omitempty"`
	Latency       *int    `json:"latency,omitempty"`
}

func (DeckLinkConsumer) consumerKind() string    { return KindDeckLink }
func (NDIConsumer) consumerKind() string         { return KindNDI }
func (ScreenConsumer) consumerKind() string      { return KindScreen }
func (SystemAudioConsumer) consumerKind() string { return KindSystemAudio }

func NewDeckLinkConsumer() DeckLinkConsumer {
	return DeckLinkConsumer{Device: 1, EmbeddedAudio: true, Latency: LatencyNormal, Keyer: KeyerExternal}
}

func NewNDIConsumer() NDIConsumer {
	return NDIConsumer{Name: "CasparCG", AllowFields: true}
}

func NewScreenConsumer() ScreenConsumer {
	return ScreenConsumer{Device: 1, Windowed: true}
}

// NewConsumer returns the default consumer of the given kind.
func NewConsumer(kind string) (Consumer, error) {
	switch kind {
	case KindDeckLink:
		return NewDeckLinkConsumer(), nil
	case KindNDI:
		return NewNDIConsumer(), nil
	case KindScreen:
		return NewScreenConsumer(), nil
	case KindSystemAudio:
		return SystemAudioConsumer{}, nil
	default:
		return nil, fmt.Errorf("unknown consumer type %q", kind)
	}
}

// Kind reports the wire tag of c.
func Kind(c Consumer) string {
	if c == nil {
		return ""
	}
	return c.consumerKind()
}

// Describe is a one-line summary for listings.
func Describe(c Consumer) string {
	switch v := c.(type) {
	case DeckLinkConsumer:
		return fmt.Sprintf("decklink device=%d keyer=%s", v.Device, v.Keyer)
	case NDIConsumer:
		return fmt.Sprintf("ndi name=%q", v.Name)
	case ScreenConsumer:
		mode := "fullscreen"
		if v.Windowed {
			mode = "windowed"
		}
		return fmt.Sprintf("screen device=%d %s", v.Device, mode)
	case SystemAudioConsumer:
		if v.ChannelLayout != nil {
			return "system-audio layout=" + *v.ChannelLayout
		}
		return "system-audio"
	default:
		return fmt.Sprintf("unknown consumer %T", c)
	}
}

func validateConsumer(c Consumer) error {
	switch v := c.(type) {
	case DeckLinkConsumer:
		if v.Device < 1 {
			return fmt.Errorf("decklink device must be >= 1, got %d", v.Device)
		}
		if !v.Latency.Valid() {
			return fmt.Errorf("decklink latency %q", v.Latency)
		}
		if !v.Keyer.Valid() {
			return fmt.Errorf("decklink keyer %q", v.Keyer)
		}
		return nil
	case NDIConsumer:
		if v.Name == "" {
			return fmt.Errorf("ndi consumer needs a name")
		}
		return nil
	case ScreenConsumer:
		if v.Device < 1 {
			return fmt.Errorf("screen device must be >= 1, got %d", v.Device)
		}
		return nil
	case SystemAudioConsumer:
		return nil
	default:
		return fmt.Errorf("unknown consumer %T", c)
	}
}

// Consumers is the ordered consumer list of a channel. It encodes each entry
// as a JSON object tagged with "type".
type Consumers []Consumer

func (cs Consumers) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(cs))
	for i, c := range cs {
		b, err := marshalConsumer(c)
		if err != nil {
			return nil, fmt.Errorf("consumer %d: %w", i+1, err)
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (cs *Consumers) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Consumers, 0, len(raw))
	for i, r := range raw {
		c, err := unmarshalConsumer(r)
		if err != nil {
			return fmt.Errorf("consumer %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}

func marshalConsumer(c Consumer) ([]byte, error) {
	switch v := c.(type) {
	case DeckLinkConsumer:
		return json.Marshal(struct {
			Type string `json:"type"`
			DeckLinkConsumer
		}{KindDeckLink, v})
	case NDIConsumer:
		return json.Marshal(struct {
			Type string `json:"type"`
			NDIConsumer
		}{KindNDI, v})
	case ScreenConsumer:
		return json.Marshal(struct {
			Type string `json:"type"`
			ScreenConsumer
		}{KindScreen, v})
	case SystemAudioConsumer:
		return json.Marshal(struct {
			Type string `json:"type"`
			SystemAudioConsumer
		}{KindSystemAudio, v})
	default:
		return nil, fmt.Errorf("unknown consumer %T", c)
	}
}

func unmarshalConsumer(data []byte) (Consumer, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case KindDeckLink:
		v := DeckLinkConsumer{Latency: LatencyNormal, Keyer: KeyerExternal}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindNDI:
		var v NDIConsumer
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindScreen:
		v := NewScreenConsumer()
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindSystemAudio:
		var v SystemAudioConsumer
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "":
		return nil, fmt.Errorf("consumer without type")
	default:
		return nil, fmt.Errorf("unknown consumer type %q", head.Type)
	}
}

func cloneConsumer(c Consumer) Consumer {
	switch v := c.(type) {
	case DeckLinkConsumer:
		v.KeyDevice = cloneInt(v.KeyDevice)
		v.KeyOnly = cloneBool(v.KeyOnly)
		return v
	case NDIConsumer:
		return v
	case ScreenConsumer:
		v.Width = cloneInt(v.Width)
		v.Height = cloneInt(v.Height)
		v.X = cloneInt(v.X)
		v.Y = cloneInt(v.Y)
		v.Name = cloneString(v.Name)
		return v
	case SystemAudioConsumer:
		v.ChannelLayout = cloneString(v.ChannelLayout)
		v.Latency = cloneInt(v.Latency)
		return v
	default:
		return c
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
