package views

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/placetap/internal/engine/crawler"
	"github.com/rendis/placetap/internal/model"
)

func ptr(s string) *string { return &s }

func TestFeedKeepsNewestFirst(t *testing.T) {
	f := NewFeed(2)
	f.Push(model.Record{Name: ptr("A")})
	f.Push(model.Record{Name: ptr("B"), Rating: ptr("4.5")})
	f.Push(model.Record{Name: ptr("C")})

	assert.Equal(t, []RecentEntry{{Name: "C"}, {Name: "B", Rating: "4.5"}}, f.Entries())
}

func TestFeedEntriesIsACopy(t *testing.T) {
	f := NewFeed(0)
	f.Push(model.Record{Name: ptr("A")})
	got := f.Entries()
	got[0].Name = "changed"
	assert.Equal(t, "A", f.Entries()[0].Name)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m ProgressModel, msg tea.Msg) (ProgressModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(ProgressModel)
	require.True(t, ok)
	return pm, cmd
}

func TestEscNeedsConfirmation(t *testing.T) {
	canceled := 0
	m := NewProgressModel(Session{Title: "coffee shop in colomadu", Cancel: func() { canceled++ }})

	m, _ = update(t, m, key("esc"))
	assert.Zero(t, canceled)
	assert.Contains(t, m.View(), "Press ESC again")

	m, _ = update(t, m, key("x"))
	assert.NotContains(t, m.View(), "Press ESC again")

	m, _ = update(t, m, key("esc"))
	m, _ = update(t, m, key("esc"))
	assert.Equal(t, 1, canceled)

	_, _ = update(t, m, key("ctrl+c"))
	assert.Equal(t, 2, canceled)
}

func TestCompletionView(t *testing.T) {
	stats := &crawler.Stats{Target: 10}
	stats.Accepted.Store(4)
	stats.Duplicates.Store(2)
	feed := NewFeed(0)
	feed.Push(model.Record{Name: ptr("Kopi Klotok"), Rating: ptr("4.7")})

	m := NewProgressModel(Session{Title: "crawl", Output: "colomadu.parquet", Stats: stats, Feed: feed})
	view := m.View()
	assert.Contains(t, view, "4/10")
	assert.Contains(t, view, "Kopi Klotok ★ 4.7")

	m, _ = update(t, m, CrawlCompleteMsg{})
	view = m.View()
	assert.Contains(t, view, "Done! 4 records saved")
	assert.Contains(t, view, "colomadu.parquet")
	assert.NoError(t, m.Err())

	_, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCompletionWithError(t *testing.T) {
	m := NewProgressModel(Session{Title: "crawl"})
	boom := errors.New("sink write failed")

	m, _ = update(t, m, CrawlCompleteMsg{Err: boom})
	assert.ErrorIs(t, m.Err(), boom)
	assert.Contains(t, m.View(), "Error: sink write failed")

	m, _ = update(t, NewProgressModel(Session{}), CrawlCompleteMsg{Err: fmt.Errorf("run: %w", context.Canceled)})
	assert.NotContains(t, m.View(), "Error:")
}

func TestStartCrawlReportsRunError(t *testing.T) {
	boom := errors.New("navigation timeout")
	m := NewProgressModel(Session{Run: func() error { return boom }})

	msg := m.startCrawl()()
	assert.Equal(t, CrawlCompleteMsg{Err: boom}, msg)
}
