package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/placetap/internal/engine/crawler"
	"github.com/rendis/placetap/internal/tui/styles"
)

// Session is the crawl the progress view watches. Run blocks until the
// crawl ends; Cancel asks it to stop.
type Session struct {
	Title  string
	Output string
	Stats  *crawler.Stats
	Feed   *Feed
	Cancel context.CancelFunc
	Run    func() error
}

// ProgressModel shows live crawl counters.
type ProgressModel struct {
	session     Session
	progress    progress.Model
	spinner     spinner.Model
	startTime   time.Time
	done        bool
	confirmQuit bool
	err         error
	width       int
	height      int
}

type progressTickMsg time.Time

// CrawlCompleteMsg is sent when Session.Run returns.
type CrawlCompleteMsg struct {
	Err error
}

func NewProgressModel(s Session) ProgressModel {
	if s.Stats == nil {
		s.Stats = &crawler.Stats{}
	}
	if s.Feed == nil {
		s.Feed = NewFeed(0)
	}
	return ProgressModel{
		session:   s,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary))),
		startTime: time.Now(),
	}
}

// Err is the crawl error once the view is done.
func (m ProgressModel) Err() error { return m.err }

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.startCrawl(), m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m ProgressModel) startCrawl() tea.Cmd {
	run := m.session.Run
	return func() tea.Msg {
		if run == nil {
			return CrawlCompleteMsg{}
		}
		return CrawlCompleteMsg{Err: run()}
	}
}

func (m ProgressModel) cancel() {
	if m.session.Cancel != nil {
		m.session.Cancel()
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if m.done {
			switch msg.String() {
			case "enter", "esc", "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, nil
		case "esc":
			if m.confirmQuit {
				m.confirmQuit = false
				m.cancel()
				return m, nil
			}
			m.confirmQuit = true
			return m, nil
		}
		m.confirmQuit = false
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case CrawlCompleteMsg:
		m.done = true
		m.err = msg.Err
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	pModel, cmd := m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m ProgressModel) View() string {
	var b strings.Builder
	stats := m.session.Stats

	title := m.session.Title
	if !m.done {
		title = m.spinner.View() + " " + title
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n\n")

	stat := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(30).
		Render(m.renderStats())
	recent := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(40).
		Render(m.renderRecent())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, stat, " ", recent))
	b.WriteString("\n\n")

	var pct float64
	if stats.Target > 0 {
		pct = min(float64(stats.Accepted.Load())/float64(stats.Target), 1)
	}
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString("\n\n")

	switch {
	case m.done:
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
				Render(fmt.Sprintf("Done! %d records saved", stats.Accepted.Load())))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
				Render(fmt.Sprintf("Output: %s", m.session.Output)))
		}
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("enter quit"))
	case m.confirmQuit:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the crawl"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	default:
		b.WriteString(styles.StatusBar.Render("esc stop • ctrl+c stop now"))
	}

	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	stats := m.session.Stats
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label, value string, style lipgloss.Style) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(style.Render(value))
		sb.WriteString("\n")
	}

	accepted := stats.Accepted.Load()
	row("Saved:", fmt.Sprintf("%d/%d", accepted, stats.Target), statVal)
	row("Cards:", fmt.Sprintf("%d", stats.Candidates.Load()), statVal)
	row("Processed:", fmt.Sprintf("%d", stats.Processed.Load()), statVal)
	row("Duplicates:", fmt.Sprintf("%d", stats.Duplicates.Load()), statVal)
	if n := stats.Filtered.Load(); n > 0 {
		row("Filtered:", fmt.Sprintf("%d", n), statVal)
	}

	failStyle := statVal
	if stats.Failures.Load()+stats.Invalid.Load() > 0 {
		failStyle = lipgloss.NewStyle().Foreground(styles.Error).Bold(true)
	}
	row("Skipped:", fmt.Sprintf("%d", stats.Failures.Load()+stats.Invalid.Load()), failStyle)

	if s := stats.Stagnation.Load(); s > 0 {
		row("Stalled:", fmt.Sprintf("%d scrolls", s), lipgloss.NewStyle().Foreground(styles.Warning).Bold(true))
	}

	row("Elapsed:", elapsed.String(), statVal)

	if accepted > 0 && stats.Target > 0 && !m.done {
		rate := float64(accepted) / elapsed.Seconds()
		remaining := float64(int64(stats.Target)-accepted) / rate
		if remaining > 0 {
			eta := time.Duration(remaining * float64(time.Second)).Truncate(time.Second)
			row("ETA:", "~"+eta.String(), statVal)
		}
	}

	return sb.String()
}

func (m ProgressModel) renderRecent() string {
	entries := m.session.Feed.Entries()
	if len(entries) == 0 {
		return styles.InactiveItem.Render("waiting for records…")
	}

	var sb strings.Builder
	sb.WriteString(styles.Subtitle.Render("Latest"))
	sb.WriteString("\n")
	for i, e := range entries {
		style := styles.InactiveItem
		if i == 0 {
			style = styles.ActiveItem
		}
		line := e.Name
		if e.Rating != "" {
			line += " ★ " + e.Rating
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
