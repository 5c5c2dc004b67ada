package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/baaaaaaaka/caspar-console/internal/console"
	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
)

var errQuit = errors.New("quit")

const messageDisplayDuration = 6 * time.Second

var newScreen = tcell.NewScreen

type Options struct {
	Console *console.Console
	Version string
	// DefaultHost and DefaultPort are used when no previous endpoint is stored.
	DefaultHost string
	DefaultPort int
	// RefreshInterval drives the periodic connection check. Zero disables it.
	RefreshInterval time.Duration
	// ProfileDir is watched for profile files changed outside the console.
	ProfileDir string
	Logger     zerolog.Logger
}

type uiEvent struct {
	when time.Time
	kind string
}

func (e *uiEvent) When() time.Time { return e.when }

type focusPane string

const (
	paneProfiles focusPane = "profiles"
	paneChannels focusPane = "channels"
	paneDevices  focusPane = "devices"
)

var paneOrder = []focusPane{paneProfiles, paneChannels, paneDevices}

type inputMode string

const (
	inputNone    inputMode = ""
	inputProfile inputMode = "new profile"
	inputLabel   inputMode = "device label"
)

type listState struct {
	selected int
	scroll   int
}

type uiState struct {
	snap         console.Snapshot
	focus        focusPane
	inputMode    inputMode
	inputBuffer  string
	profileState listState
	channelState listState
	deviceState  listState
	message      string
	messageErr   bool
	messageUntil time.Time
	statusHeight int
	// quitArmed is set after a quit request was refused for unsaved changes.
	quitArmed bool
}

func newState(c *console.Console) *uiState {
	return &uiState{
		snap:         c.Snapshot(),
		focus:        paneProfiles,
		statusHeight: 2,
	}
}

// Run shows the console until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	if opts.Console == nil {
		return errors.New("Console is required")
	}
	state := newState(opts.Console)

	screen, err := newScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.RefreshInterval > 0 {
		interval := opts.RefreshInterval
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					screen.PostEvent(&uiEvent{when: time.Now(), kind: "refresh"})
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if opts.ProfileDir != "" {
		go func() {
			err := profile.Watch(ctx, opts.Logger, opts.ProfileDir, 0, func() {
				screen.PostEvent(&uiEvent{when: time.Now(), kind: "profiles"})
			})
			if err != nil {
				opts.Logger.Warn().Err(err).Msg("profile watch stopped")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		screen.PostEvent(&uiEvent{when: time.Now(), kind: "quit"})
	}()

	for {
		draw(screen, state, opts)
		ev := screen.PollEvent()

		switch tev := ev.(type) {
		case *uiEvent:
			switch tev.kind {
			case "quit":
				return ctx.Err()
			case "refresh":
				opts.Console.Control().CheckConnection(ctx)
				state.snap = opts.Console.Snapshot()
			case "profiles":
				opts.Console.Profiles().List(ctx)
				state.snap = opts.Console.Snapshot()
			case "message":
			}
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if err := handleKey(ctx, screen, state, opts, tev); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

func handleKey(ctx context.Context, screen tcell.Screen, state *uiState, opts Options, ev *tcell.EventKey) error {
	if state.inputMode != inputNone {
		handleInput(ctx, screen, state, opts, ev)
		return nil
	}

	c := opts.Console
	wantQuit := ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyESC ||
		(ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'))
	if wantQuit {
		if state.snap.Dirty && !state.quitArmed {
			state.quitArmed = true
			setMessage(screen, state, "unsaved changes: s to save, q again to discard", true)
			return nil
		}
		return errQuit
	}
	state.quitArmed = false

	switch ev.Key() {
	case tcell.KeyTab:
		state.focus = nextPane(state.focus, 1)
		return nil
	case tcell.KeyBacktab:
		state.focus = nextPane(state.focus, -1)
		return nil
	case tcell.KeyCtrlS:
		act(screen, state, opts, "profile saved", c.Profiles().Save(ctx))
		return nil
	case tcell.KeyCtrlR:
		refreshAll(ctx, screen, state, opts)
		return nil
	case tcell.KeyEnter:
		activate(ctx, screen, state, opts)
		return nil
	}

	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case 'c':
			toggleConnection(ctx, screen, state, opts)
			return nil
		case 's':
			act(screen, state, opts, "profile saved", c.Profiles().Save(ctx))
			return nil
		case 'r':
			refreshAll(ctx, screen, state, opts)
			return nil
		case 't':
			if ch, ok := selectedChannel(state); ok {
				toggleChannelTest(ctx, screen, state, opts, ch)
			}
			return nil
		case 'T':
			toggleAllTests(ctx, screen, state, opts)
			return nil
		case 'p':
			act(screen, state, opts, "preview stopped", c.Tests().StopPreview(ctx))
			return nil
		case 'a':
			act(screen, state, opts, "channel added", c.Profiles().AddChannel(profile.DefaultVideoMode))
			return nil
		case 'x':
			if ch, ok := selectedChannel(state); ok && state.focus == paneChannels {
				act(screen, state, opts, fmt.Sprintf("channel %d removed", ch), c.Profiles().RemoveChannel(ch))
			}
			return nil
		case 'n':
			state.inputMode = inputProfile
			state.inputBuffer = ""
			return nil
		case 'l':
			if _, ok := selectedDevice(state); ok {
				state.inputMode = inputLabel
				state.inputBuffer = ""
			}
			return nil
		case 'd':
			if d, ok := selectedDevice(state); ok {
				toggleDuplex(ctx, screen, state, opts, d)
			}
			return nil
		}
	}

	ls, n := focusedList(state)
	applyListNavigation(ls, n, listViewHeight(screen, state), ev)
	return nil
}

func handleInput(ctx context.Context, screen tcell.Screen, state *uiState, opts Options, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyESC:
		state.inputMode = inputNone
		state.inputBuffer = ""
	case tcell.KeyEnter:
		mode, text := state.inputMode, state.inputBuffer
		state.inputMode = inputNone
		state.inputBuffer = ""
		switch mode {
		case inputProfile:
			act(screen, state, opts, "profile "+text+" created", opts.Console.Profiles().Create(ctx, text))
		case inputLabel:
			if d, ok := selectedDevice(state); ok {
				act(screen, state, opts, "label updated", opts.Console.Profiles().SetDeviceLabel(d.PersistentID, strings.TrimSpace(text)))
			}
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(state.inputBuffer); len(r) > 0 {
			state.inputBuffer = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		if ch := ev.Rune(); ch >= 32 {
			state.inputBuffer += string(ch)
		}
	}
}

// activate runs the Enter action of the focused pane.
func activate(ctx context.Context, screen tcell.Screen, state *uiState, opts Options) {
	switch state.focus {
	case paneProfiles:
		names := state.snap.Profiles
		if len(names) == 0 {
			return
		}
		name := names[clamp(state.profileState.selected, 0, len(names)-1)]
		if state.snap.Dirty {
			setMessage(screen, state, "unsaved changes: press s to save first", true)
			return
		}
		act(screen, state, opts, "profile "+name+" selected", opts.Console.Profiles().Select(ctx, name))
	case paneChannels:
		if ch, ok := selectedChannel(state); ok {
			toggleChannelTest(ctx, screen, state, opts, ch)
		}
	case paneDevices:
		if d, ok := selectedDevice(state); ok {
			toggleDuplex(ctx, screen, state, opts, d)
		}
	}
}

func toggleConnection(ctx context.Context, screen tcell.Screen, state *uiState, opts Options) {
	c := opts.Console
	if state.snap.Connection.State == console.Connected {
		act(screen, state, opts, "disconnected", c.Control().Disconnect(ctx))
		return
	}
	host, port, ok := state.snap.Settings.LastEndpoint()
	if !ok {
		host, port = opts.DefaultHost, opts.DefaultPort
	}
	act(screen, state, opts, fmt.Sprintf("connected to %s:%d", host, port), c.Control().Connect(ctx, host, port))
}

func toggleChannelTest(ctx context.Context, screen tcell.Screen, state *uiState, opts Options, ch int) {
	t := opts.Console.Tests()
	if state.snap.Tests.Channels.Has(ch) {
		act(screen, state, opts, fmt.Sprintf("test stopped on channel %d", ch), t.StopChannelTest(ctx, ch))
		return
	}
	act(screen, state, opts, fmt.Sprintf("test running on channel %d", ch), t.TestChannel(ctx, ch))
}

func toggleAllTests(ctx context.Context, screen tcell.Screen, state *uiState, opts Options) {
	t := opts.Console.Tests()
	if len(state.snap.Tests.Channels) > 0 {
		act(screen, state, opts, "all tests stopped", t.StopAllTests(ctx))
		return
	}
	act(screen, state, opts, "test running on all channels", t.TestAllChannels(ctx))
}

func toggleDuplex(ctx context.Context, screen tcell.Screen, state *uiState, opts Options, d decklink.Device) {
	if !d.SupportsDuplex {
		setMessage(screen, state, d.ModelName+" has no duplex setting", true)
		return
	}
	mode := decklink.DuplexFull
	if d.DuplexMode == decklink.DuplexFull {
		mode = decklink.DuplexHalf
	}
	act(screen, state, opts, "duplex set to "+mode.String()+", restart the host to apply",
		opts.Console.Devices().SetDuplexMode(ctx, d.PersistentID, mode))
}

func refreshAll(ctx context.Context, screen tcell.Screen, state *uiState, opts Options) {
	c := opts.Console
	c.Profiles().List(ctx)
	_, devErr := c.Devices().Refresh(ctx)
	_, verErr := c.RefreshVersions(ctx)
	c.Control().CheckConnection(ctx)
	act(screen, state, opts, "refreshed", errors.Join(devErr, verErr))
}

// act records the outcome of an action and re-reads the console state.
func act(screen tcell.Screen, state *uiState, opts Options, success string, err error) {
	state.snap = opts.Console.Snapshot()
	if err != nil {
		opts.Logger.Warn().Err(err).Msg("action failed")
		setMessage(screen, state, err.Error(), true)
		return
	}
	setMessage(screen, state, success, false)
}

func setMessage(screen tcell.Screen, state *uiState, text string, isErr bool) {
	state.message = text
	state.messageErr = isErr
	until := time.Now().Add(messageDisplayDuration)
	state.messageUntil = until
	time.AfterFunc(messageDisplayDuration, func() {
		screen.PostEvent(&uiEvent{when: time.Now(), kind: "message"})
	})
}

func nextPane(cur focusPane, step int) focusPane {
	for i, p := range paneOrder {
		if p == cur {
			return paneOrder[(i+step+len(paneOrder))%len(paneOrder)]
		}
	}
	return paneProfiles
}

func focusedList(state *uiState) (*listState, int) {
	switch state.focus {
	case paneChannels:
		return &state.channelState, state.snap.ChannelCount()
	case paneDevices:
		return &state.deviceState, len(state.snap.Devices)
	default:
		return &state.profileState, len(state.snap.Profiles)
	}
}

// selectedChannel is the 1-based channel under the cursor.
func selectedChannel(state *uiState) (int, bool) {
	n := state.snap.ChannelCount()
	if n == 0 {
		return 0, false
	}
	return clamp(state.channelState.selected, 0, n-1) + 1, true
}

func selectedDevice(state *uiState) (decklink.Device, bool) {
	if len(state.snap.Devices) == 0 {
		return decklink.Device{}, false
	}
	return state.snap.Devices[clamp(state.deviceState.selected, 0, len(state.snap.Devices)-1)], true
}

func applyListNavigation(state *listState, nItems int, viewH int, ev *tcell.EventKey) {
	if nItems <= 0 {
		state.selected = 0
		state.scroll = 0
		return
	}
	switch ev.Key() {
	case tcell.KeyUp:
		state.selected = clamp(state.selected-1, 0, nItems-1)
	case tcell.KeyDown:
		state.selected = clamp(state.selected+1, 0, nItems-1)
	case tcell.KeyPgUp:
		state.selected = clamp(state.selected-max(1, viewH), 0, nItems-1)
	case tcell.KeyPgDn:
		state.selected = clamp(state.selected+max(1, viewH), 0, nItems-1)
	case tcell.KeyHome:
		state.selected = 0
	case tcell.KeyEnd:
		state.selected = nItems - 1
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'k', 'K':
			state.selected = clamp(state.selected-1, 0, nItems-1)
		case 'j', 'J':
			state.selected = clamp(state.selected+1, 0, nItems-1)
		case 'g':
			state.selected = 0
		case 'G':
			state.selected = nItems - 1
		default:
			return
		}
	default:
		return
	}
	state.ensureVisible(viewH, nItems)
}

func (s *listState) clamp(nItems int) {
	if nItems <= 0 {
		s.selected = 0
		s.scroll = 0
		return
	}
	s.selected = clamp(s.selected, 0, nItems-1)
	s.scroll = clamp(s.scroll, 0, max(0, nItems-1))
}

func (s *listState) ensureVisible(viewH int, nItems int) {
	if nItems <= 0 || viewH <= 0 {
		s.scroll = 0
		return
	}
	maxScroll := max(0, nItems-viewH)
	if s.selected < s.scroll {
		s.scroll = s.selected
	} else if s.selected >= s.scroll+viewH {
		s.scroll = s.selected - viewH + 1
	}
	s.scroll = clamp(s.scroll, 0, maxScroll)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
