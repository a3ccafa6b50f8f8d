package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	chromeLines   = 3
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dateStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).MarginTop(1)
	noteStyle   = lipgloss.NewStyle().Bold(true)
	linkStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type keyMap struct {
	Quit key.Binding
	More key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	More: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
}

// loadedMsg carries the outcome of one background load.
type loadedMsg struct {
	update changelog.Update
	err    error
}

// Browser is a bubbletea model that scrolls through one feed session and
// asks for more once the viewport reaches the bottom.
type Browser struct {
	ctx      context.Context
	ctrl     *changelog.Controller
	title    string
	maxPages int

	notes    []domain.DisplayRecord
	viewport viewport.Model
	spinner  spinner.Model
	loading  bool
	err      error
}

// NewBrowser builds the model. maxPages bounds upstream pages per load.
func NewBrowser(ctx context.Context, ctrl *changelog.Controller, title string, maxPages int) Browser {
	if ctx == nil {
		ctx = context.Background()
	}
	return Browser{
		ctx:      ctx,
		ctrl:     ctrl,
		title:    title,
		maxPages: maxPages,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeLines),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Init implements tea.Model.
func (b Browser) Init() tea.Cmd {
	return tea.Batch(b.spinner.Tick, b.load())
}

func (b Browser) load() tea.Cmd {
	ctrl, ctx, maxPages := b.ctrl, b.ctx, b.maxPages
	return func() tea.Msg {
		u, err := ctrl.LoadVisible(ctx, maxPages)
		return loadedMsg{update: u, err: err}
	}
}

// Update implements tea.Model.
func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			b.ctrl.Close()
			return b, tea.Quit
		case key.Matches(msg, keys.More):
			if cmd := b.maybeLoad(true); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	case tea.WindowSizeMsg:
		b.viewport.Width = msg.Width
		b.viewport.Height = max(1, msg.Height-chromeLines)
		b.viewport.SetContent(b.render())
	case loadedMsg:
		b.loading = false
		b.err = msg.err
		if msg.err == nil && len(msg.update.Appended) > 0 {
			b.notes = append(b.notes, msg.update.Appended...)
			b.viewport.SetContent(b.render())
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	b.viewport, cmd = b.viewport.Update(msg)
	cmds = append(cmds, cmd)

	if b.err == nil {
		if cmd := b.maybeLoad(false); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return b, tea.Batch(cmds...)
}

// maybeLoad starts a load when the viewport sits at the bottom, or always
// when forced, provided more pages exist and none is in flight.
func (b *Browser) maybeLoad(force bool) tea.Cmd {
	if b.loading || !b.ctrl.HasMore() {
		return nil
	}
	if !force && !b.viewport.AtBottom() {
		return nil
	}
	b.loading = true
	b.err = nil
	return b.load()
}

func (b Browser) render() string {
	width := b.viewport.Width
	if width <= 0 {
		width = defaultWidth
	}
	body := lipgloss.NewStyle().Width(width - 4)

	var sb strings.Builder
	for _, n := range b.notes {
		if n.HasDateLabel() {
			sb.WriteString(dateStyle.Render(n.DateLabel))
			sb.WriteString("\n")
		}
		sb.WriteString("  " + noteStyle.Render(n.Title) + "\n")
		if n.Link != "" {
			sb.WriteString("  " + linkStyle.Render(n.Link) + "\n")
		}
		if n.Excerpt != "" {
			sb.WriteString(body.MarginLeft(2).Render(n.Excerpt) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b Browser) status() string {
	switch {
	case b.err != nil:
		return errStyle.Render(fmt.Sprintf("load failed: %v (m to retry, q to quit)", b.err))
	case b.loading:
		return statusStyle.Render(b.spinner.View() + " loading…")
	case !b.ctrl.HasMore():
		return statusStyle.Render(fmt.Sprintf("%d notes · end of feed · q to quit", len(b.notes)))
	default:
		return statusStyle.Render(fmt.Sprintf("%d notes · scroll for more · q to quit", len(b.notes)))
	}
}

// View implements tea.Model.
func (b Browser) View() string {
	return titleStyle.Render(b.title) + "\n" + b.viewport.View() + "\n" + b.status()
}

// Notes returns the notes loaded so far.
func (b Browser) Notes() []domain.DisplayRecord {
	return b.notes
}
