package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
)

func init() { color.NoColor = true }

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░  50%", ProgressBar(1, 2, 10))
	assert.Equal(t, "░░░░░   0%", ProgressBar(0, 0, 1))
}

func TestPanelPadsToWidestLine(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	var buf bytes.Buffer
	Panel(&buf, []string{"ab", "abcd"})
	assert.Equal(t, "+------+\n| ab   |\n| abcd |\n+------+\n", buf.String())
}

func TestListLines(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	items := []model.Item{
		{ID: "1", Title: "Buy milk"},
		{ID: "2", Title: "Walk dog", Content: "before 9", IsCompleted: true},
	}
	flat := ListLines(items, false)
	assert.Len(t, flat, 2)
	assert.Contains(t, flat[0], "[ ] Buy milk")
	assert.Contains(t, flat[1], "[x] Walk dog")
	assert.Contains(t, flat[1], "before 9")

	grouped := strings.Join(ListLines(items, true), "\n")
	assert.Less(t, strings.Index(grouped, "Pending"), strings.Index(grouped, "Buy milk"))
	assert.Less(t, strings.Index(grouped, "Done"), strings.Index(grouped, "Walk dog"))

	assert.Equal(t, []string{"no items"}, ListLines(nil, false))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
}

func TestNotifierRoutesByKind(t *testing.T) {
	var out, errOut bytes.Buffer
	n := &Notifier{Out: &out, Err: &errOut}

	n.Notify(query.Notify(query.OpCreate, nil))
	n.Notify(query.Notify(query.OpDelete, errors.New("error deleting todo: 403")))

	assert.Equal(t, "✔ Todo added\n", out.String())
	assert.Equal(t, "✖ error deleting todo: 403\n", errOut.String())
}

func TestOKAndFail(t *testing.T) {
	var buf bytes.Buffer
	OK(&buf, "logged in")
	Fail(&buf, "boom")
	Hint(&buf, "try again")
	assert.Equal(t, "✔ logged in\n✖ boom\ntry again\n", buf.String())
}
