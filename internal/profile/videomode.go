package profile

import (
	"fmt"
	"strings"
)

// VideoMode is a CasparCG channel format identifier such as "1080i5000".
type VideoMode string

const DefaultVideoMode VideoMode = "1080i5000"

var videoModes = []struct {
	mode  VideoMode
	label string
}{
	{"PAL", "PAL (576i50)"},
	{"NTSC", "NTSC (480i59.94)"},
	{"576p2500", "576p25"},
	{"720p2398", "720p23.98"},
	{"720p2400", "720p24"},
	{"720p2500", "720p25"},
	{"720p5000", "720p50"},
	{"720p2997", "720p29.97"},
	{"720p5994", "720p59.94"},
	{"720p3000", "720p30"},
	{"720p6000", "720p60"},
	{"1080p2398", "1080p23.98"},
	{"1080p2400", "1080p24"},
	{"1080i5000", "1080i50"},
	{"1080i5994", "1080i59.94"},
	{"1080i6000", "1080i60"},
	{"1080p2500", "1080p25"},
	{"1080p2997", "1080p29.97"},
	{"1080p3000", "1080p30"},
	{"1080p5000", "1080p50"},
	{"1080p5994", "1080p59.94"},
	{"1080p6000", "1080p60"},
	{"1556p2398", "1556p23.98 (2K)"},
	{"1556p2400", "1556p24 (2K)"},
	{"1556p2500", "1556p25 (2K)"},
	{"2160p2398", "2160p23.98 (4K)"},
	{"2160p2400", "2160p24 (4K)"},
	{"2160p2500", "2160p25 (4K)"},
	{"2160p2997", "2160p29.97 (4K)"},
	{"2160p3000", "2160p30 (4K)"},
	{"2160p5000", "2160p50 (4K)"},
	{"2160p5994", "2160p59.94 (4K)"},
	{"2160p6000", "2160p60 (4K)"},
}

// VideoModes lists every supported mode in menu order.
func VideoModes() []VideoMode {
	out := make([]VideoMode, 0, len(videoModes))
	for _, m := range videoModes {
		out = append(out, m.mode)
	}
	return out
}

func (m VideoMode) Valid() bool {
	for _, v := range videoModes {
		if v.mode == m {
			return true
		}
	}
	return false
}

// Label is the human readable form, e.g. "1080i50".
func (m VideoMode) Label() string {
	for _, v := range videoModes {
		if v.mode == m {
			return v.label
		}
	}
	return string(m)
}

// ParseVideoMode matches s case-insensitively against the known modes.
func ParseVideoMode(s string) (VideoMode, error) {
	s = strings.TrimSpace(s)
	for _, v := range videoModes {
		if strings.EqualFold(string(v.mode), s) {
			return v.mode, nil
		}
	}
	return "", fmt.Errorf("unknown video mode %q", s)
}
