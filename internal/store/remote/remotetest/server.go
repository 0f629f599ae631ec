// Package remotetest runs an in-memory items collection behind httptest so
// callers of the remote client can be tested against real HTTP.
package remotetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/Makepad-fr/tada/internal/model"
)

// Request is one request as the server saw it.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// Server is a fake /items/<collection> endpoint.
type Server struct {
	*httptest.Server

	Token string // required bearer token; empty accepts anything

	mu       sync.Mutex
	items    []model.Item
	nextID   int
	requests []Request
	failures map[string][]int // method -> queued statuses
	listGate chan struct{}
}

// New starts a server holding a copy of items.
func New(items ...model.Item) *Server {
	s := &Server{
		items:    append([]model.Item(nil), items...),
		nextID:   len(items) + 1,
		failures: map[string][]int{},
	}
	for _, it := range items {
		if n, err := strconv.Atoi(it.ID.String()); err == nil && n >= s.nextID {
			s.nextID = n + 1
		}
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailNext makes the next request with method answer with status.
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], status)
}

// HoldLists blocks GET requests until the returned func is called.
func (s *Server) HoldLists() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.listGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.listGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests used method.
func (s *Server) Count(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Items returns the server-side collection.
func (s *Server) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Item(nil), s.items...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: string(body)})
	gate := s.listGate
	var status int
	if q := s.failures[r.Method]; len(q) > 0 {
		status, s.failures[r.Method] = q[0], q[1:]
	}
	s.mu.Unlock()

	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeError(w, http.StatusUnauthorized)
		return
	}
	if r.Method == http.MethodGet && gate != nil {
		<-gate
	}
	if status != 0 {
		writeError(w, status)
		return
	}

	rest, found := strings.CutPrefix(r.URL.Path, "/items/")
	collection, id, _ := strings.Cut(rest, "/")
	if !found || collection == "" {
		writeError(w, http.StatusNotFound)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && id == "":
		writeJSON(w, http.StatusOK, map[string]any{"data": s.items})
	case r.Method == http.MethodPost && id == "":
		var it model.Item
		if err := json.Unmarshal(body, &it); err != nil || strings.TrimSpace(it.Title) == "" {
			writeError(w, http.StatusBadRequest)
			return
		}
		it.ID = model.ID(strconv.Itoa(s.nextID))
		s.nextID++
		s.items = append(s.items, it)
		writeJSON(w, http.StatusOK, map[string]any{"data": it})
	case r.Method == http.MethodPatch && id != "":
		i := s.index(model.ID(id))
		if i < 0 {
			writeError(w, http.StatusForbidden)
			return
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			writeError(w, http.StatusBadRequest)
			return
		}
		it := s.items[i]
		if v, ok := fields["title"]; ok {
			_ = json.Unmarshal(v, &it.Title)
		}
		if v, ok := fields["content"]; ok {
			_ = json.Unmarshal(v, &it.Content)
		}
		if v, ok := fields["is_completed"]; ok {
			_ = json.Unmarshal(v, &it.IsCompleted)
		}
		s.items[i] = it
		writeJSON(w, http.StatusOK, map[string]any{"data": it})
	case r.Method == http.MethodDelete && id != "":
		i := s.index(model.ID(id))
		if i < 0 {
			writeError(w, http.StatusForbidden)
			return
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed)
	}
}

func (s *Server) index(id model.ID) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int) {
	writeJSON(w, status, map[string]any{
		"errors": []map[string]string{{"message": http.StatusText(status)}},
	})
}
