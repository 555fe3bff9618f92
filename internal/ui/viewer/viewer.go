// Package viewer provides the terminal story viewer.
//
// The viewer is strictly a consumer of the playback controller: it reads the
// observable fields after every event and maps key presses onto the
// controller's already-classified intents. All playback decisions live in
// the controller.
package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/osa030/storybox/internal/app/playback"
	"github.com/osa030/storybox/internal/app/session"
)

const defaultWidth = 72

type keyMap struct {
	PauseResume key.Binding
	Prev        key.Binding
	Next        key.Binding
	Jump        key.Binding
	Dismiss     key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PauseResume: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "hold/release"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next"),
		),
		Jump: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "jump"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type eventMsg playback.Event

// Model is the bubbletea model for one viewing session.
type Model struct {
	session *session.Session
	keys    keyMap
	bar     progress.Model

	events  chan playback.Event
	watchID string

	status playback.Status
	width  int
}

// New creates a viewer for the session. The caller owns the session; the
// viewer cancels the controller on quit but does not close the session.
func New(s *session.Session) Model {
	events := make(chan playback.Event, 64)
	m := Model{
		session: s,
		keys:    defaultKeyMap(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		events:  events,
		status:  s.Controller.Status(),
		width:   defaultWidth,
	}
	m.watchID = s.Watch(events)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.session.Controller.Start()
	return waitForEvent(m.events)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		m.status = m.session.Controller.Status()
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		ctrl := m.session.Controller
		switch {
		case key.Matches(msg, m.keys.Quit):
			ctrl.Cancel()
			m.session.Unwatch(m.watchID)
			return m, tea.Quit
		case key.Matches(msg, m.keys.PauseResume):
			if m.status.State == playback.StatePausedByHold {
				ctrl.Resume()
			} else {
				ctrl.Pause()
			}
		case key.Matches(msg, m.keys.Prev):
			ctrl.Advance(-1)
		case key.Matches(msg, m.keys.Next):
			ctrl.Advance(1)
		case key.Matches(msg, m.keys.Jump):
			ctrl.JumpToStory(int(msg.String()[0]-'1'))
		case key.Matches(msg, m.keys.Dismiss):
			ctrl.EnterDismissing()
		}
		m.status = ctrl.Status()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render(m.session.Set.Title)
	if m.session.Set.Author != "" {
		header += "  " + authorStyle.Render("by "+m.session.Set.Author)
	}
	b.WriteString(header)
	b.WriteString("\n")

	b.WriteString(m.renderIndicator())
	b.WriteString("\n")

	b.WriteString(m.renderMedia())
	b.WriteString("\n")

	if m.status.State == playback.StateDismissing {
		b.WriteString(dismissedStyle.Render("End of stories"))
	} else {
		b.WriteString(stateStyle.Render(m.status.State.String()))
	}
	b.WriteString("\n")

	b.WriteString(helpStyle.Render(m.renderHelp()))
	return b.String()
}

// renderIndicator draws one segment per story: full for passed items, the
// live progress bar for the current one, empty for upcoming ones.
func (m Model) renderIndicator() string {
	count := m.session.Controller.ItemCount()
	segWidth := segmentWidth(m.width, count)

	bar := m.bar
	bar.Width = segWidth

	segments := make([]string, 0, count)
	for i := 0; i < count; i++ {
		switch {
		case i < m.status.Index:
			segments = append(segments, bar.ViewAs(1.0))
		case i == m.status.Index:
			segments = append(segments, bar.ViewAs(m.status.Progress))
		default:
			segments = append(segments, bar.ViewAs(0.0))
		}
	}
	return strings.Join(segments, " ")
}

func (m Model) renderMedia() string {
	st, ok := m.session.CurrentStory()
	if !ok {
		return ""
	}

	content := fmt.Sprintf("[%s] %s", st.Kind, st.MediaURL)
	if st.Caption != "" {
		content += "\n" + captionStyle.Render(st.Caption)
	}

	width := min(m.width-4, defaultWidth)
	return mediaStyle.Width(max(width, 20)).Render(content)
}

func (m Model) renderHelp() string {
	bindings := []key.Binding{
		m.keys.PauseResume, m.keys.Prev, m.keys.Next,
		m.keys.Jump, m.keys.Dismiss, m.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// segmentWidth splits the available width across count segments, keeping a
// one-cell gap between them and a sane minimum per segment.
func segmentWidth(total, count int) int {
	if count < 1 {
		return 0
	}
	w := (total - (count - 1)) / count
	if w < 3 {
		return 3
	}
	return w
}

func waitForEvent(ch chan playback.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}
