package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/baaaaaaaka/caspar-console/internal/console"
	"github.com/baaaaaaaka/caspar-console/internal/profile"
)

const helpText = "Tab pane  Enter select  c connect  t test  T all  p stop preview  s save  a/x channel  d duplex  l label  n new  r refresh  q quit"

type rect struct {
	y int
	x int
	h int
	w int
}

type layout struct {
	profiles rect
	channels rect
	devices  rect
	mode     string
}

type row struct {
	label    string
	dim      bool
	bold     bool
	selected bool
	focused  bool
}

type statusToken struct {
	text  string
	style tcell.Style
}

type statusLine struct {
	groups    []statusToken
	right     string
	rightBold bool
}

func computeLayout(screen tcell.Screen, statusHeight int) layout {
	maxX, maxY := screen.Size()
	if statusHeight <= 0 {
		statusHeight = 1
	}
	if maxY > 0 {
		statusHeight = clamp(statusHeight, 1, maxY)
	}
	usableH := max(1, maxY-statusHeight)

	if maxX >= 100 && usableH >= 8 {
		leftW := min(32, max(20, maxX/5))
		rightW := min(48, max(30, maxX/3))
		midW := max(20, maxX-leftW-rightW)
		return layout{
			profiles: rect{y: 0, x: 0, h: usableH, w: leftW},
			channels: rect{y: 0, x: leftW, h: usableH, w: midW},
			devices:  rect{y: 0, x: leftW + midW, h: usableH, w: rightW},
			mode:     "3col",
		}
	}

	leftW := min(28, max(16, maxX/3))
	rightW := max(1, maxX-leftW)
	chH := max(3, int(float64(usableH)*0.6))
	if usableH > 3 {
		chH = clamp(chH, 3, usableH-3)
	}
	return layout{
		profiles: rect{y: 0, x: 0, h: usableH, w: leftW},
		channels: rect{y: 0, x: leftW, h: chH, w: rightW},
		devices:  rect{y: chH, x: leftW, h: max(0, usableH-chH), w: rightW},
		mode:     "2col",
	}
}

func listViewHeight(screen tcell.Screen, state *uiState) int {
	l := computeLayout(screen, state.statusHeight)
	var r rect
	switch state.focus {
	case paneChannels:
		r = l.channels
	case paneDevices:
		r = l.devices
	default:
		r = l.profiles
	}
	return max(1, r.h-2)
}

func draw(screen tcell.Screen, state *uiState, opts Options) {
	screen.Clear()
	w, _ := screen.Size()
	status := buildStatusLines(w, statusTokens(state), versionLabel(opts.Version), true)
	status = append(status, bottomLine(state))
	state.statusHeight = len(status)
	l := computeLayout(screen, state.statusHeight)

	profiles := profileRows(state.snap)
	state.profileState.clamp(len(profiles))
	state.profileState.ensureVisible(l.profiles.h-2, len(profiles))
	drawBox(screen, l.profiles, "Profiles", state.focus == paneProfiles)
	drawList(screen, l.profiles, applySelection(profiles, state.focus == paneProfiles, state.profileState))

	channels := channelRows(state.snap)
	state.channelState.clamp(len(channels))
	state.channelState.ensureVisible(l.channels.h-2, len(channels))
	drawBox(screen, l.channels, channelsTitle(state.snap), state.focus == paneChannels)
	drawList(screen, l.channels, applySelection(channels, state.focus == paneChannels, state.channelState))

	devices := deviceRows(state.snap)
	state.deviceState.clamp(len(devices))
	state.deviceState.ensureVisible(l.devices.h-2, len(devices))
	drawBox(screen, l.devices, "DeckLink devices", state.focus == paneDevices)
	drawList(screen, l.devices, applySelection(devices, state.focus == paneDevices, state.deviceState))

	drawStatusLines(screen, status)
	screen.Show()
}

func profileRows(s console.Snapshot) []row {
	rows := make([]row, 0, len(s.Profiles))
	for _, name := range s.Profiles {
		r := row{label: "  " + name}
		if s.Active != nil && s.Active.Name == name {
			r.label = "● " + name
			r.bold = true
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		if s.NeedsSetup {
			return []row{{label: "install path not set", dim: true}}
		}
		return []row{{label: "no profiles (n to create)", dim: true}}
	}
	return rows
}

func channelsTitle(s console.Snapshot) string {
	if s.Active == nil {
		return "Channels"
	}
	title := "Channels: " + s.Active.Name
	if s.Dirty {
		title += " *"
	}
	return title
}

func channelRows(s console.Snapshot) []row {
	if s.Active == nil {
		return nil
	}
	rows := make([]row, 0, s.ChannelCount())
	for i, ch := range s.Active.Caspar.Channels {
		n := i + 1
		parts := make([]string, 0, len(ch.Consumers))
		for _, c := range ch.Consumers {
			parts = append(parts, profile.Describe(c))
		}
		consumers := strings.Join(parts, ", ")
		if consumers == "" {
			consumers = "no consumers"
		}
		label := fmt.Sprintf("%2d  %-10s %s", n, ch.VideoMode, consumers)
		r := row{label: label, dim: len(ch.Consumers) == 0}
		if s.Tests.Channels.Has(n) {
			r.label = "[TEST] " + label
			r.bold = true
			r.dim = false
		}
		rows = append(rows, r)
	}
	return rows
}

func deviceRows(s console.Snapshot) []row {
	rows := make([]row, 0, len(s.Devices))
	for _, d := range s.Devices {
		label := fmt.Sprintf("%d  %s", d.Index, d.DisplayName)
		if d.SupportsDuplex && d.DuplexMode != "" {
			label += "  (" + d.DuplexMode.String() + ")"
		}
		if s.Active != nil {
			if lbl, ok := s.Active.DeviceLabel(d.PersistentID); ok {
				label += "  " + lbl
			}
		}
		rows = append(rows, row{label: label})
	}
	if len(rows) == 0 {
		return []row{{label: "no devices", dim: true}}
	}
	return rows
}

func statusTokens(state *uiState) []statusToken {
	base := tcell.StyleDefault.Reverse(true)
	s := state.snap
	var toks []statusToken
	if s.Connection.State == console.Connected {
		conn := fmt.Sprintf("● %s:%d", s.Connection.Host, s.Connection.Port)
		toks = append(toks, statusToken{text: conn, style: base.Bold(true)})
	} else {
		toks = append(toks, statusToken{text: "○ disconnected", style: base})
	}
	if s.Tests.PreviewRunning {
		toks = append(toks, statusToken{text: "preview " + s.Tests.PreviewURL, style: base})
	}
	if n := len(s.Tests.Channels); n > 0 {
		toks = append(toks, statusToken{text: fmt.Sprintf("testing %d ch", n), style: base.Bold(true)})
	}
	v := s.Versions
	if v.Caspar != "" {
		toks = append(toks, statusToken{text: "server " + v.Caspar, style: base})
	}
	if v.DeckLink != "" {
		toks = append(toks, statusToken{text: "decklink " + v.DeckLink, style: base})
	}
	if v.NDI != "" {
		toks = append(toks, statusToken{text: "ndi " + v.NDI, style: base})
	}
	if v.Scanner != "" {
		toks = append(toks, statusToken{text: "scanner " + v.Scanner, style: base})
	}
	return toks
}

// bottomLine shows the input prompt, a recent message or the key help.
func bottomLine(state *uiState) statusLine {
	base := tcell.StyleDefault
	switch {
	case state.inputMode != inputNone:
		return statusLine{groups: []statusToken{{text: string(state.inputMode) + ": " + state.inputBuffer + "_", style: base.Bold(true)}}}
	case state.message != "" && time.Now().Before(state.messageUntil):
		style := base
		if state.messageErr {
			style = style.Foreground(tcell.ColorRed)
		}
		return statusLine{groups: []statusToken{{text: state.message, style: style}}}
	default:
		return statusLine{groups: []statusToken{{text: helpText, style: base.Dim(true)}}}
	}
}

func applySelection(rows []row, focused bool, state listState) []row {
	if state.scroll > 0 && state.scroll < len(rows) {
		rows = rows[state.scroll:]
	}
	idx := state.selected - state.scroll
	if idx >= 0 && idx < len(rows) {
		rows[idx].selected = true
		rows[idx].focused = focused
	}
	return rows
}

func buildStatusLines(width int, tokens []statusToken, right string, rightBold bool) []statusLine {
	lines := packStatusLines(width, tokens)
	if right != "" && width > 0 {
		maxLeft := max(0, width-displayWidth(right)-1)
		if lineWidthGroups(lines[len(lines)-1].groups) > maxLeft {
			lines = packStatusLines(maxLeft, tokens)
		}
	}
	lines[len(lines)-1].right = right
	lines[len(lines)-1].rightBold = rightBold
	return lines
}

func packStatusLines(width int, tokens []statusToken) []statusLine {
	if width <= 0 {
		return []statusLine{{}}
	}
	lines := []statusLine{}
	var current statusLine
	curWidth := 0

	for _, tok := range tokens {
		tokenWidth := displayWidth(tok.text)
		if tokenWidth == 0 {
			continue
		}
		addWidth := tokenWidth
		if len(current.groups) > 0 {
			addWidth += 2
		}
		if curWidth+addWidth > width && len(current.groups) > 0 {
			lines = append(lines, current)
			current = statusLine{}
			curWidth = 0
			addWidth = tokenWidth
		}
		current.groups = append(current.groups, tok)
		curWidth += addWidth
	}
	if len(current.groups) > 0 || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}

func lineWidthGroups(groups []statusToken) int {
	width := 0
	for i, tok := range groups {
		if i > 0 {
			width += 2
		}
		width += displayWidth(tok.text)
	}
	return width
}

func drawBox(screen tcell.Screen, r rect, title string, focused bool) {
	if r.w <= 0 || r.h <= 0 {
		return
	}
	borderStyle := tcell.StyleDefault
	if focused {
		borderStyle = borderStyle.Bold(true)
	} else {
		borderStyle = borderStyle.Dim(true)
	}
	for x := r.x + 1; x < r.x+r.w-1; x++ {
		screen.SetContent(x, r.y, tcell.RuneHLine, nil, borderStyle)
		screen.SetContent(x, r.y+r.h-1, tcell.RuneHLine, nil, borderStyle)
	}
	for y := r.y + 1; y < r.y+r.h-1; y++ {
		screen.SetContent(r.x, y, tcell.RuneVLine, nil, borderStyle)
		screen.SetContent(r.x+r.w-1, y, tcell.RuneVLine, nil, borderStyle)
	}
	screen.SetContent(r.x, r.y, tcell.RuneULCorner, nil, borderStyle)
	screen.SetContent(r.x+r.w-1, r.y, tcell.RuneURCorner, nil, borderStyle)
	screen.SetContent(r.x, r.y+r.h-1, tcell.RuneLLCorner, nil, borderStyle)
	screen.SetContent(r.x+r.w-1, r.y+r.h-1, tcell.RuneLRCorner, nil, borderStyle)

	titleStyle := tcell.StyleDefault.Reverse(true)
	if focused {
		titleStyle = titleStyle.Bold(true)
		title = "> " + title + " <"
	} else {
		title = " " + title + " "
	}
	maxTitleWidth := max(0, r.w-2)
	title = truncate(title, maxTitleWidth)
	titleX := r.x + 1 + max(0, (maxTitleWidth-displayWidth(title))/2)
	writeText(screen, titleX, r.y, title, titleStyle)
}

func drawList(screen tcell.Screen, r rect, rows []row) {
	if r.h < 3 || r.w < 4 {
		return
	}
	innerH := r.h - 2
	innerW := r.w - 2
	for i := 0; i < innerH; i++ {
		y := r.y + 1 + i
		if i >= len(rows) {
			writeText(screen, r.x+1, y, padRight("", innerW), tcell.StyleDefault)
			continue
		}
		row := rows[i]
		style := tcell.StyleDefault
		if row.bold {
			style = style.Bold(true)
		}
		if row.selected {
			style = style.Reverse(true)
			if row.focused {
				style = style.Bold(true)
			} else {
				style = style.Dim(true)
			}
		} else if row.dim {
			style = style.Dim(true)
		}
		writeText(screen, r.x+1, y, padRight(truncate(row.label, innerW), innerW), style)
	}
}

func drawStatusLines(screen tcell.Screen, lines []statusLine) {
	w, h := screen.Size()
	if h <= 0 || len(lines) == 0 {
		return
	}
	if len(lines) > h {
		lines = lines[len(lines)-h:]
	}

	baseStyle := tcell.StyleDefault.Reverse(true)
	startY := h - len(lines)
	for i, line := range lines {
		y := startY + i
		lineStyle := baseStyle
		if i == len(lines)-1 {
			lineStyle = tcell.StyleDefault
		}
		writeText(screen, 0, y, padRight("", w), lineStyle)

		spaceLimit := w
		if line.right != "" {
			spaceLimit = max(0, w-displayWidth(truncate(line.right, w)))
		}
		x := 0
		for gi, tok := range line.groups {
			if x >= spaceLimit {
				break
			}
			if gi > 0 {
				if x+2 > spaceLimit {
					break
				}
				writeText(screen, x, y, "  ", tok.style)
				x += 2
			}
			text := truncate(tok.text, spaceLimit-x)
			if text == "" {
				continue
			}
			writeText(screen, x, y, text, tok.style)
			x += displayWidth(text)
		}

		if line.right != "" {
			rightText := truncate(line.right, w)
			style := baseStyle
			if line.rightBold {
				style = style.Bold(true)
			}
			writeText(screen, max(0, w-displayWidth(rightText)), y, rightText, style)
		}
	}
}

func writeText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	offset := 0
	for _, ch := range text {
		width := runewidth.RuneWidth(ch)
		if width == 0 {
			continue
		}
		screen.SetContent(x+offset, y, ch, nil, style)
		offset += width
	}
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if displayWidth(s) <= width {
		return s
	}
	var buf strings.Builder
	curWidth := 0
	for _, ch := range s {
		chWidth := runewidth.RuneWidth(ch)
		if chWidth == 0 {
			buf.WriteRune(ch)
			continue
		}
		if curWidth+chWidth > width {
			break
		}
		buf.WriteRune(ch)
		curWidth += chWidth
	}
	return buf.String()
}

func padRight(s string, width int) string {
	if displayWidth(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-displayWidth(s))
}

func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

func versionLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		v = "dev"
	}
	if strings.EqualFold(v, "dev") {
		return v
	}
	if strings.HasPrefix(strings.ToLower(v), "v") {
		return v
	}
	return "v" + v
}
