package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/beatgrid-go"
	"github.com/cbegin/beatgrid-go/internal/export"
	"github.com/cbegin/beatgrid-go/internal/pattern"
	"github.com/cbegin/beatgrid-go/internal/recorder"
)

var (
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#733"))
	soloStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ee3"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e44"))
)

// stepsPerRow wraps long patterns so 64 steps fit a normal terminal.
const stepsPerRow = 32

type model struct {
	m        *beatgrid.Machine
	events   <-chan beatgrid.Event
	row      int
	col      int
	playhead int
	kits     []string
	presets  []string
	preset   int
	clip     *recorder.Clip
	snapshot pattern.Snapshot
	status   string
	err      string
	quitting bool
}

type eventMsg beatgrid.Event

type recordedMsg struct {
	clip *recorder.Clip
	err  error
}

func newModel(m *beatgrid.Machine) model {
	md := model{m: m, events: m.Watch(), playhead: -1, preset: -1}
	for _, k := range m.Catalog().Kits() {
		md.kits = append(md.kits, k.ID)
	}
	for _, p := range m.Catalog().Presets() {
		md.presets = append(md.presets, p.ID)
	}
	return md
}

func listenForEvents(ch <-chan beatgrid.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func stopRecording(m *beatgrid.Machine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		clip, err := m.StopRecording(ctx)
		return recordedMsg{clip: clip, err: err}
	}
}

func (md model) Init() tea.Cmd {
	return listenForEvents(md.events)
}

func (md model) voices() []string { return md.m.Kit().VoiceIDs() }

func (md model) voice() string {
	ids := md.voices()
	if md.row < 0 || md.row >= len(ids) {
		return ""
	}
	return ids[md.row]
}

func (md model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if res := md.m.Resources(); res != nil {
			res.NotifyUserGesture()
		}
		md.err = ""
		return md.handleKey(msg.String())

	case tea.FocusMsg:
		if res := md.m.Resources(); res != nil {
			res.SetVisible(true)
		}
	case tea.BlurMsg:
		if res := md.m.Resources(); res != nil {
			res.SetVisible(false)
		}

	case eventMsg:
		switch msg.Kind {
		case beatgrid.EventStep:
			md.playhead = msg.Step
		case beatgrid.EventPlaybackEnded:
			md.playhead = -1
		case beatgrid.EventKitChanged:
			md.row = 0
			md.status = "kit " + msg.KitID
		}
		return md, listenForEvents(md.events)

	case recordedMsg:
		if msg.err != nil {
			md.err = msg.err.Error()
		} else if msg.clip != nil {
			md.clip = msg.clip
			md.status = fmt.Sprintf("recorded %s (%s)", msg.clip.Duration.Round(time.Millisecond), msg.clip.URL())
		}
	}
	return md, nil
}

func (md model) handleKey(key string) (tea.Model, tea.Cmd) {
	length := md.m.Pattern().Length()
	switch key {
	case "q", "ctrl+c":
		md.quitting = true
		md.m.Stop()
		return md, tea.Quit

	case "h", "left":
		if md.col > 0 {
			md.col--
		}
	case "l", "right":
		if md.col < length-1 {
			md.col++
		}
	case "k", "up":
		if md.row > 0 {
			md.row--
		}
	case "j", "down":
		if md.row < len(md.voices())-1 {
			md.row++
		}

	case " ", "enter":
		md.m.Toggle(md.voice(), md.col)
	case "a":
		md.m.Audition(md.voice())
	case "m":
		v := md.voice()
		md.m.SetMute(v, !md.m.Muted(v))
	case "s":
		v := md.voice()
		md.m.SetSolo(v, !md.m.Soloed(v))

	case "p":
		if md.m.Playing() {
			md.m.Stop()
		} else {
			md.m.Play()
		}
	case "+", "=":
		md.m.SetBPM(md.m.Pattern().BPM() + 5)
	case "-", "_":
		md.m.SetBPM(md.m.Pattern().BPM() - 5)
	case "]":
		md.m.SetSwing(md.m.Pattern().Swing() + 5)
	case "[":
		md.m.SetSwing(md.m.Pattern().Swing() - 5)
	case "L":
		next := pattern.Lengths[0]
		for i, n := range pattern.Lengths {
			if n == length && i+1 < len(pattern.Lengths) {
				next = pattern.Lengths[i+1]
			}
		}
		md.m.SetLength(next)
		md.col = min(md.col, next-1)

	case "K":
		md.cycleKit()
	case "n":
		if len(md.presets) > 0 {
			md.preset = (md.preset + 1) % len(md.presets)
			id := md.presets[md.preset]
			if err := md.m.LoadPreset(id); err != nil {
				md.err = err.Error()
			} else {
				md.status = "preset " + id
			}
		}
	case "x":
		md.m.ClearPattern()
	case "c":
		md.snapshot = md.m.CopyPattern()
		md.status = "pattern copied"
	case "v":
		if md.snapshot != nil {
			md.m.PastePattern(md.snapshot)
			md.status = "pattern pasted"
		}

	case "r":
		switch md.m.RecordingState() {
		case recorder.Idle:
			md.m.StartRecording()
			md.status = "recording"
		case recorder.Recording:
			md.status = "finalizing"
			return md, stopRecording(md.m)
		case recorder.Recorded:
			md.m.ClearRecording()
			md.clip = nil
			md.status = "recording cleared"
		}
	case "P":
		if md.clip != nil {
			if err := md.m.PreviewClip(md.clip); err != nil {
				md.err = err.Error()
			}
		}

	case "e", "E":
		f := export.FormatJSON
		if key == "E" {
			f = export.FormatMIDI
		}
		path, err := md.m.SaveExport(f)
		if err != nil {
			md.err = err.Error()
		} else {
			md.status = "exported " + path
		}
	}
	return md, nil
}

func (md *model) cycleKit() {
	if len(md.kits) == 0 {
		return
	}
	current := md.m.Kit().ID
	next := md.kits[0]
	for i, id := range md.kits {
		if id == current {
			next = md.kits[(i+1)%len(md.kits)]
		}
	}
	if err := md.m.LoadKit(next); err != nil {
		md.err = err.Error()
	}
}

func (md model) View() string {
	if md.quitting {
		return ""
	}
	k := md.m.Kit()
	p := md.m.Pattern()

	state := "STOP"
	if md.m.Playing() {
		state = "PLAY"
	}
	if md.m.RecordingState() == recorder.Recording {
		state += " REC"
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("beatgrid  %s  %s  %3.0fbpm  swing:%2.0f  len:%d  peak:%.2f",
		k.Name, state, p.BPM(), p.Swing(), p.Length(), md.m.Peak())))
	b.WriteString("\n\n")

	for r, v := range k.Voices {
		label := fmt.Sprintf("%-4s", v.Short)
		if v.Short == "" {
			label = fmt.Sprintf("%-4.4s", v.ID)
		}
		color := lipgloss.NewStyle().Foreground(lipgloss.Color(v.Color))
		switch {
		case md.m.Muted(v.ID):
			label = mutedStyle.Render(label)
		case md.m.Soloed(v.ID):
			label = soloStyle.Render(label)
		default:
			label = color.Render(label)
		}
		for start := 0; start < p.Length(); start += stepsPerRow {
			if start == 0 {
				b.WriteString(label)
			} else {
				b.WriteString("    ")
			}
			for s := start; s < min(start+stepsPerRow, p.Length()); s++ {
				if s%4 == 0 {
					b.WriteString(" ")
				}
				cell := dimStyle.Render("·")
				if p.Step(v.ID, s) {
					cell = color.Render("■")
				}
				switch {
				case r == md.row && s == md.col:
					cell = cursorStyle.Render(cell)
				case s == md.playhead:
					cell = playheadStyle.Render(cell)
				}
				b.WriteString(cell)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if md.err != "" {
		b.WriteString(errorStyle.Render(md.err))
	} else {
		b.WriteString(statusStyle.Render(md.status))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("hjkl:move space:toggle a:audition m/s:mute/solo p:play +/-:tempo [/]:swing L:length"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("K:kit n:preset x:clear c/v:copy/paste r:record P:preview e/E:export json/midi q:quit"))
	return b.String()
}
