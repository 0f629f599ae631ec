package ui

import (
	"fmt"
	"io"

	"github.com/Makepad-fr/tada/internal/query"
)

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, current.Success.Sprint(current.SymDone+" "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, current.Error.Sprint(current.SymFail+" "+msg)) }

// Hint prints a muted follow-up line under a failure.
func Hint(w io.Writer, msg string) { fmt.Fprintln(w, current.Muted.Sprint(msg)) }

// Notifier prints mutation outcomes the way OK and Fail do.
type Notifier struct {
	Out, Err io.Writer
}

func (n *Notifier) Notify(note query.Notification) {
	if note.Kind == query.KindError {
		Fail(n.Err, note.Message)
		return
	}
	OK(n.Out, note.Message)
}
