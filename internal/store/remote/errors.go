package remote

import (
	"fmt"
	"strings"
)

// Op names a store operation. It shows up in error messages and logs.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpToggle Op = "toggle"
	OpDelete Op = "delete"
)

func (op Op) phrase() string {
	switch op {
	case OpList:
		return "fetching todos"
	case OpCreate:
		return "adding todo"
	case OpUpdate, OpToggle:
		return "updating todo"
	case OpDelete:
		return "deleting todo"
	}
	return string(op)
}

// StoreError is a non-2xx response from the collection endpoint.
type StoreError struct {
	Op     Op
	Status int
	Body   string // first bytes of the response body, for logs
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("error %s: %d", e.Op.phrase(), e.Status)
}

// TransportError means no response was obtained at all, so there is no status.
type TransportError struct {
	Op  Op
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error %s: %v", e.Op.phrase(), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
