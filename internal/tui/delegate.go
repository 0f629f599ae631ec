package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
)

// listItem adapts model.Item to bubbles/list.Item
type listItem struct {
	item model.Item
}

func (i listItem) Title() string       { return i.item.Title }
func (i listItem) Description() string { return i.item.Content }
func (i listItem) FilterValue() string { return i.item.Title + " " + i.item.Content }

func toListItems(items []model.Item) []list.Item {
	out := make([]list.Item, 0, len(items))
	for _, it := range items {
		out = append(out, listItem{item: it})
	}
	return out
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(listItem)
	if !ok {
		return
	}

	box := mutedStyle.Render(boxUnchecked)
	text := it.item.Title
	if it.item.IsCompleted {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := fmt.Sprintf("%s %s", box, text)
	if it.item.Content != "" {
		line += "  " + mutedStyle.Render(it.item.Content)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}
