package ui

import (
	"fmt"

	"github.com/Makepad-fr/tada/internal/model"
)

const maxTitleWidth = 80

// Header is the one-line summary shown above a listing.
func Header(items []model.Item) string {
	t := Current()
	d, p := model.Stats(items)
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Sprint("Todos"),
		t.Success.Sprint(t.SymDone), d,
		t.Pending.Sprint(t.SymPending), p,
		t.Accent.Sprint("Total"), len(items),
	)
}

// Summary is the header plus a progress bar, used after one-shot commands.
func Summary(items []model.Item) []string {
	d, p := model.Stats(items)
	return []string{Header(items), Current().Muted.Sprint(ProgressBar(d, d+p, 28))}
}

// ListLines renders items one per line, flat or grouped pending/done.
func ListLines(items []model.Item, group bool) []string {
	if group {
		return groupLines(items)
	}
	return flatLines(items)
}

func flatLines(items []model.Item) []string {
	t := Current()
	if len(items) == 0 {
		return []string{t.Muted.Sprint("no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		box, c := t.BoxUnchecked, t.Muted
		if it.IsCompleted {
			box, c = t.BoxChecked, t.Success
		}
		title := truncate(it.Title, maxTitleWidth)
		line := fmt.Sprintf("%s %s %s", t.Muted.Sprintf("#%-4s", it.ID), c.Sprint(box), title)
		if it.Content != "" {
			line += "  " + t.Muted.Sprint(truncate(it.Content, maxTitleWidth/2))
		}
		out = append(out, line)
	}
	return out
}

func groupLines(items []model.Item) []string {
	t := Current()
	var pend, done []model.Item
	for _, it := range items {
		if it.IsCompleted {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, t.Accent.Sprint("Pending"))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Sprint("(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Sprint("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Sprint("(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
