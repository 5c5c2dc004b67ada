package decklink

import (
	"fmt"
	"strings"
)

// Device describes one DeckLink card (or sub-device) as reported by the driver.
type Device struct {
	// Index is 1-based, matching the device numbers used in casparcg.config.
	Index                  int        `json:"index"`
	PersistentID           string     `json:"persistent_id"`
	ModelName              string     `json:"model_name"`
	DisplayName            string     `json:"display_name"`
	DeviceLabel            string     `json:"device_label,omitempty"`
	SupportsDuplex         bool       `json:"supports_duplex"`
	DuplexMode             DuplexMode `json:"duplex_mode,omitempty"`
	SDIInputs              int        `json:"sdi_inputs"`
	SDIOutputs             int        `json:"sdi_outputs"`
	SupportsInternalKeying bool       `json:"supports_internal_keying"`
	SupportsExternalKeying bool       `json:"supports_external_keying"`
	SupportsCapture        bool       `json:"supports_capture"`
	SupportsPlayback       bool       `json:"supports_playback"`
	MaxAudioChannels       int        `json:"max_audio_channels"`
}

// IsMultiPort reports whether the card is a Duo or Quad model.
func (d Device) IsMultiPort() bool {
	return strings.Contains(d.ModelName, "Duo") || strings.Contains(d.ModelName, "Quad")
}

type DuplexMode string

const (
	DuplexFull DuplexMode = "full"
	DuplexHalf DuplexMode = "half"
)

// ParseDuplexMode accepts "full" or "half" in any case.
func ParseDuplexMode(s string) (DuplexMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return DuplexFull, nil
	case "half":
		return DuplexHalf, nil
	default:
		return "", fmt.Errorf("invalid duplex mode %q: expected 'full' or 'half'", s)
	}
}

func (m DuplexMode) String() string { return string(m) }

func (m DuplexMode) DisplayName() string {
	switch m {
	case DuplexFull:
		return "Full Duplex (Key/Fill pair)"
	case DuplexHalf:
		return "Half Duplex (Independent I/O)"
	default:
		return string(m)
	}
}

// RequiresRestart is true for every mode change: the driver applies duplex
// settings only after the host restarts.
func RequiresRestart() bool { return true }
