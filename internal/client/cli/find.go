package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/siteofsites/internal/client/events"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/search"
	"github.com/dmitrijs2005/siteofsites/internal/common"
)

// searcher is the part of search.Engine the find screen drives.
type searcher interface {
	OnQueryChange(text string)
	Focus()
	OutsideInteraction()
	Select(user models.UserLite)
	State() search.State
}

type findKeymap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Blur   key.Binding
	Quit   key.Binding
}

// FullHelp implements help.KeyMap.
func (k findKeymap) FullHelp() [][]key.Binding { return nil }

// ShortHelp implements help.KeyMap.
func (k findKeymap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Blur, k.Quit}
}

func defaultFindKeymap() findKeymap {
	return findKeymap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open profile"),
		),
		Blur: key.NewBinding(
			key.WithKeys("esc", "tab"),
			key.WithHelp("esc/tab", "hide results"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "back"),
		),
	}
}

// refreshMsg tells the model to re-read the engine state.
type refreshMsg struct{}

type findModel struct {
	engine searcher
	input  textinput.Model
	keys   findKeymap
	help   help.Model

	state    search.State
	cursor   int
	selected bool
}

func newFindModel(engine searcher) findModel {
	in := textinput.New()
	in.Placeholder = "nickname or id"
	in.Prompt = "🔍 "
	in.CharLimit = 64
	in.Focus()

	return findModel{
		engine: engine,
		input:  in,
		keys:   defaultFindKeymap(),
		help:   help.New(),
		state:  engine.State(),
	}
}

func (m findModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m findModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Blur):
			if m.input.Focused() {
				m.input.Blur()
				m.engine.OutsideInteraction()
				m.refresh()
				return m, nil
			}
			if msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			m.engine.Focus()
			m.refresh()
			return m, m.input.Focus()

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.state.Results)-1 {
				m.cursor++
			}
			return m, nil

		case key.Matches(msg, m.keys.Select):
			if m.state.Visible && m.cursor < len(m.state.Results) {
				m.engine.Select(m.state.Results[m.cursor])
				m.selected = true
				m.refresh()
				return m, tea.Quit
			}
			return m, nil
		}

		var cmds []tea.Cmd
		if !m.input.Focused() {
			cmds = append(cmds, m.input.Focus())
			m.engine.Focus()
		}
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if v := m.input.Value(); v != before {
			m.engine.OnQueryChange(v)
		}
		m.refresh()
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *findModel) refresh() {
	m.state = m.engine.State()
	if m.cursor >= len(m.state.Results) {
		m.cursor = max(len(m.state.Results)-1, 0)
	}
}

func (m findModel) View() string {
	parts := []string{titleStyle.Render("Find users"), m.input.View()}

	switch {
	case m.state.Loading:
		parts = append(parts, dimStyle.Render("searching..."))
	case m.state.Visible && len(m.state.Results) == 0:
		parts = append(parts, dimStyle.Render("No users found"))
	case m.state.Visible:
		rows := make([]string, 0, len(m.state.Results))
		for i, u := range m.state.Results {
			marker := "  "
			if i == m.cursor {
				marker = "› "
			}
			rows = append(rows, marker+avatarBadge(u.Nickname, u.Avatar)+" "+highlight(u.Nickname, m.state.Query)+" "+dimStyle.Render("@"+u.UniqueID))
		}
		parts = append(parts, strings.Join(rows, "\n"))
	}

	parts = append(parts, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Find runs the interactive search screen. Choosing a user opens their
// profile once the screen has closed.
func (a *App) Find(ctx context.Context) error {
	p := tea.NewProgram(newFindModel(a.search), tea.WithContext(ctx))

	// Publish happens on the caller's goroutine, often inside Update, so the
	// message is sent from a fresh goroutine.
	unsub, err := a.bus.Subscribe(events.SearchChanged, func(search.State) {
		go p.Send(refreshMsg{})
	})
	if err != nil {
		return err
	}
	_, err = p.Run()
	unsub()
	a.search.OutsideInteraction()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("search screen: %w", err)
	}

	select {
	case uid := <-a.nav:
		return a.Profile(ctx, uid)
	default:
		return nil
	}
}

// Search runs one lookup for text through the debounced engine and prints
// the results.
func (a *App) Search(ctx context.Context, text string) error {
	if common.RuneLen(text) < a.config.SearchMinQueryLength {
		fmt.Fprintf(a.out, "Type at least %d characters\n", a.config.SearchMinQueryLength)
		return nil
	}

	done := make(chan search.State, 1)
	start := a.search.State().Epoch
	unsub, err := a.bus.Subscribe(events.SearchChanged, func(s search.State) {
		if s.Query == text && s.Epoch > start && !s.Loading {
			select {
			case done <- s:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer unsub()

	a.search.OnQueryChange(text)

	wait := a.config.SearchDebounce + a.config.RequestTimeout + time.Second
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s := <-done:
		fmt.Fprintln(a.out, renderResults(s.Results, text))
		a.search.OutsideInteraction()
	case <-timer.C:
		fmt.Fprintln(a.out, errStyle.Render("Search timed out"))
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
