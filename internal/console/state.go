package console

import (
	"sort"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
	"github.com/baaaaaaaka/caspar-console/internal/sysinfo"
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connected
)

func (s ConnState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Connection is the control-session state. Host, Port and Version are only
// set while Connected.
type Connection struct {
	State   ConnState
	Host    string
	Port    int
	Version string
}

// ChannelSet holds 1-based channel numbers.
type ChannelSet map[int]struct{}

// ChannelRange returns {1..n}.
func ChannelRange(n int) ChannelSet {
	s := make(ChannelSet, n)
	for i := 1; i <= n; i++ {
		s[i] = struct{}{}
	}
	return s
}

func (s ChannelSet) Has(ch int) bool {
	_, ok := s[ch]
	return ok
}

func (s ChannelSet) Clone() ChannelSet {
	out := make(ChannelSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func (s ChannelSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// TestState tracks the preview service and the channels showing the test
// pattern. A non-empty Channels implies PreviewRunning.
type TestState struct {
	PreviewRunning bool
	PreviewURL     string
	Channels       ChannelSet
}

// Snapshot is a deep copy of the console state.
type Snapshot struct {
	Settings   config.GuiSettings
	NeedsSetup bool
	Profiles   []string
	Active     *profile.Profile
	Dirty      bool
	Devices    []decklink.Device
	Connection Connection
	Tests      TestState
	Versions   sysinfo.Versions
}

// ChannelCount is the number of channels of the active profile, or 0.
func (s Snapshot) ChannelCount() int {
	if s.Active == nil {
		return 0
	}
	return s.Active.ChannelCount()
}
