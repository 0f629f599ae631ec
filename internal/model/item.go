package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is the server-assigned identifier of an item. It is opaque to the
// client: it may arrive as a JSON number or string and is echoed back
// verbatim in request paths.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integer ids as numbers, everything else
// (including "007" or "+5") as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Item is the domain model for a todo entry.
type Item struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"is_completed"`
}

// Draft is what the user submits to create an item. The server assigns the id.
type Draft struct {
	Title       string `json:"title"`
	Content     string `json:"content,omitempty"`
	IsCompleted bool   `json:"is_completed"`
}

// Patch carries only the fields an edit changes; nil fields are not sent.
type Patch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool { return p.Title == nil && p.Content == nil }

// Stats counts done and pending items.
func Stats(items []Item) (done, pending int) {
	for _, it := range items {
		if it.IsCompleted {
			done++
		} else {
			pending++
		}
	}
	return
}

// Find returns the item with the given id.
func Find(items []Item, id ID) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
