package query

import (
	"time"

	"github.com/Makepad-fr/tada/internal/model"
)

// State is where the cached collection is in its fetch lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Snapshot is a copy of the cache at one point in time. Items is never
// shared with the cache, so holders may keep or modify it freely.
type Snapshot struct {
	Key       string
	State     State
	Items     []model.Item
	Err       error // last fetch error; set in StateFailed
	UpdatedAt time.Time
}

func cloneItems(items []model.Item) []model.Item {
	if items == nil {
		return nil
	}
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}
