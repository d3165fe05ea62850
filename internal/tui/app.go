// Package tui renders a live view of a running crawl.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/placetap/internal/tui/views"
)

// App is the root bubbletea model.
type App struct {
	width    int
	height   int
	progress views.ProgressModel
}

func NewApp(s views.Session) App {
	return App{progress: views.NewProgressModel(s)}
}

func (a App) Init() tea.Cmd {
	return a.progress.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = msg.Width
		a.height = msg.Height
	}

	m, cmd := a.progress.Update(msg)
	a.progress = m.(views.ProgressModel)
	return a, cmd
}

func (a App) View() string {
	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		a.progress.View(),
	)
}

// Run shows the progress view while s.Run executes and returns its error.
// The view stays up after the crawl ends until the user dismisses it.
func Run(s views.Session) error {
	p := tea.NewProgram(NewApp(s), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(App).progress.Err()
}
