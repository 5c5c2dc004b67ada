package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const FormatVersion = "1.0"

var (
	// ErrLastChannel is returned when removing the only channel of a profile.
	ErrLastChannel = errors.New("a profile must keep at least one channel")
	ErrNoChannel   = errors.New("no such channel")
	ErrInvalidName = errors.New("invalid profile name")
)

// Profile is a named, hardware-bound server configuration stored as
// <install>/profiles/<name>.json.
type Profile struct {
	Version  string         `json:"version"`
	Name     string         `json:"name"`
	Created  time.Time      `json:"created"`
	Modified time.Time      `json:"modified"`
	Caspar   CasparConfig   `json:"caspar"`
	DeckLink DeckLinkConfig `json:"decklink"`
}

type CasparConfig struct {
	Paths            Paths       `json:"paths"`
	Channels         []Channel   `json:"channels"`
	Controllers      Controllers `json:"controllers"`
	AMCP             AMCPConfig  `json:"amcp"`
	LogLevel         *string     `json:"log_level,omitempty"`
	LogCategories    *string     `json:"log_categories,omitempty"`
	ForceDeinterlace *bool       `json:"force_deinterlace,omitempty"`
	AutoDeinterlace  *bool       `json:"auto_deinterlace,omitempty"`
	BlendModes       *bool       `json:"blend_modes,omitempty"`
	MixerLatency     *int        `json:"mixer_latency,omitempty"`
	Accelerator      *string     `json:"accelerator,omitempty"`
}

type Paths struct {
	Media    string  `json:"media"`
	Template string  `json:"template"`
	Log      string  `json:"log"`
	Data     string  `json:"data"`
	Font     *string `json:"font,omitempty"`
}

type Channel struct {
	VideoMode VideoMode `json:"video_mode"`
	Consumers Consumers `json:"consumers"`
}

type Controllers struct {
	TCP TCPController `json:"tcp"`
}

type TCPController struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

type AMCPConfig struct {
	MediaServer *MediaServer `json:"media_server,omitempty"`
}

type MediaServer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DeckLinkConfig struct {
	Devices []DeviceConfig `json:"devices"`
}

type ConnectorMode string

const (
	ConnectorInput  ConnectorMode = "input"
	ConnectorOutput ConnectorMode = "output"
)

// DeviceConfig is the per-card section of a profile, keyed by PersistentID.
type DeviceConfig struct {
	PersistentID     string                   `json:"persistent_id"`
	ModelName        string                   `json:"model_name"`
	Label            *string                  `json:"label,omitempty"`
	DuplexMode       *string                  `json:"duplex_mode,omitempty"`
	ConnectorMapping map[string]ConnectorMode `json:"connector_mapping,omitempty"`
}

func NewChannel(mode VideoMode) Channel {
	if mode == "" {
		mode = DefaultVideoMode
	}
	return Channel{VideoMode: mode, Consumers: Consumers{}}
}

func DefaultCasparConfig() CasparConfig {
	return CasparConfig{
		Channels:    []Channel{NewChannel(DefaultVideoMode)},
		Controllers: Controllers{TCP: TCPController{Port: 5250, Protocol: "AMCP"}},
	}
}

// New builds the default profile: one 1080i5000 channel without consumers.
func New(name string, now time.Time) Profile {
	now = now.UTC()
	return Profile{
		Version:  FormatVersion,
		Name:     name,
		Created:  now,
		Modified: now,
		Caspar:   DefaultCasparConfig(),
		DeckLink: DeckLinkConfig{Devices: []DeviceConfig{}},
	}
}

// ValidateName rejects names that cannot be used as a file stem.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if trimmed != name {
		return fmt.Errorf("%w: leading or trailing space", ErrInvalidName)
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// Validate checks the invariants a loaded or edited profile must hold.
func (p Profile) Validate() error {
	if len(p.Caspar.Channels) == 0 {
		return errors.New("profile has no channels")
	}
	for i, ch := range p.Caspar.Channels {
		if !ch.VideoMode.Valid() {
			return fmt.Errorf("channel %d: unknown video mode %q", i+1, ch.VideoMode)
		}
		for j, c := range ch.Consumers {
			if err := validateConsumer(c); err != nil {
				return fmt.Errorf("channel %d consumer %d: %w", i+1, j+1, err)
			}
		}
	}
	return nil
}

// ChannelCount is N, the number of addressable channels.
func (p Profile) ChannelCount() int {
	return len(p.Caspar.Channels)
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	out := p
	out.Caspar = p.Caspar.clone()
	if p.DeckLink.Devices != nil {
		out.DeckLink.Devices = make([]DeviceConfig, len(p.DeckLink.Devices))
		for i, d := range p.DeckLink.Devices {
			out.DeckLink.Devices[i] = d.clone()
		}
	}
	return out
}

func (c CasparConfig) clone() CasparConfig {
	out := c
	out.Paths.Font = cloneString(c.Paths.Font)
	if c.Channels != nil {
		out.Channels = make([]Channel, len(c.Channels))
		for i, ch := range c.Channels {
			out.Channels[i] = ch.clone()
		}
	}
	if c.AMCP.MediaServer != nil {
		ms := *c.AMCP.MediaServer
		out.AMCP.MediaServer = &ms
	}
	out.LogLevel = cloneString(c.LogLevel)
	out.LogCategories = cloneString(c.LogCategories)
	out.ForceDeinterlace = cloneBool(c.ForceDeinterlace)
	out.AutoDeinterlace = cloneBool(c.AutoDeinterlace)
	out.BlendModes = cloneBool(c.BlendModes)
	out.MixerLatency = cloneInt(c.MixerLatency)
	out.Accelerator = cloneString(c.Accelerator)
	return out
}

func (ch Channel) clone() Channel {
	out := Channel{VideoMode: ch.VideoMode}
	if ch.Consumers != nil {
		out.Consumers = make(Consumers, len(ch.Consumers))
		for i, c := range ch.Consumers {
			out.Consumers[i] = cloneConsumer(c)
		}
	}
	return out
}

func (d DeviceConfig) clone() DeviceConfig {
	out := d
	out.Label = cloneString(d.Label)
	out.DuplexMode = cloneString(d.DuplexMode)
	if d.ConnectorMapping != nil {
		out.ConnectorMapping = make(map[string]ConnectorMode, len(d.ConnectorMapping))
		for k, v := range d.ConnectorMapping {
			out.ConnectorMapping[k] = v
		}
	}
	return out
}

// WithChannel returns a copy of p with a new channel of the given mode appended.
func (p Profile) WithChannel(mode VideoMode) (Profile, error) {
	if mode == "" {
		mode = DefaultVideoMode
	}
	if !mode.Valid() {
		return p, fmt.Errorf("unknown video mode %q", mode)
	}
	out := p.Clone()
	out.Caspar.Channels = append(out.Caspar.Channels, NewChannel(mode))
	return out, nil
}

// WithoutChannel returns a copy of p without the 1-based channel index.
func (p Profile) WithoutChannel(index int) (Profile, error) {
	n := len(p.Caspar.Channels)
	if index < 1 || index > n {
		return p, fmt.Errorf("%w: %d (have %d)", ErrNoChannel, index, n)
	}
	if n == 1 {
		return p, ErrLastChannel
	}
	out := p.Clone()
	out.Caspar.Channels = append(out.Caspar.Channels[:index-1], out.Caspar.Channels[index:]...)
	return out, nil
}

// WithConsumer returns a copy of p with c appended to the 1-based channel.
func (p Profile) WithConsumer(index int, c Consumer) (Profile, error) {
	n := len(p.Caspar.Channels)
	if index < 1 || index > n {
		return p, fmt.Errorf("%w: %d (have %d)", ErrNoChannel, index, n)
	}
	if err := validateConsumer(c); err != nil {
		return p, err
	}
	out := p.Clone()
	ch := &out.Caspar.Channels[index-1]
	ch.Consumers = append(ch.Consumers, cloneConsumer(c))
	return out, nil
}

// WithDeviceLabel upserts the label of the device with the given persistent id.
// An empty label clears it.
func (p Profile) WithDeviceLabel(persistentID, modelName, label string) Profile {
	out := p.Clone()
	var lbl *string
	if label != "" {
		lbl = &label
	}
	for i := range out.DeckLink.Devices {
		d := &out.DeckLink.Devices[i]
		if d.PersistentID == persistentID {
			d.Label = lbl
			if modelName != "" {
				d.ModelName = modelName
			}
			return out
		}
	}
	out.DeckLink.Devices = append(out.DeckLink.Devices, DeviceConfig{
		PersistentID: persistentID,
		ModelName:    modelName,
		Label:        lbl,
	})
	return out
}

// DeviceLabel returns the label stored for persistentID, if any.
func (p Profile) DeviceLabel(persistentID string) (string, bool) {
	for _, d := range p.DeckLink.Devices {
		if d.PersistentID == persistentID && d.Label != nil {
			return *d.Label, true
		}
	}
	return "", false
}
