package convert

import (
	"fmt"
	"strings"
)

// DefaultErrorMessage is the summary message of a conversion error collection.
const DefaultErrorMessage = "There was an error converting the attachment images."

// Error collects the per-size failures of a single attachment conversion.
//
// An Error is immutable: Add and Remove return a new value. The count is
// always derived from the collected entries.
type Error struct {
	message string
	errors  []string
}

// NewError creates a collection with the given summary message and entries.
// An empty message falls back to DefaultErrorMessage. Empty entries are dropped.
func NewError(message string, errs ...string) *Error {
	if message == "" {
		message = DefaultErrorMessage
	}
	kept := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != "" {
			kept = append(kept, e)
		}
	}
	return &Error{message: message, errors: kept}
}

// Message returns the summary message.
func (e *Error) Message() string {
	return e.message
}

// Errors returns a copy of the collected entries, in insertion order.
func (e *Error) Errors() []string {
	out := make([]string, len(e.errors))
	copy(out, e.errors)
	return out
}

// Count returns the number of collected entries.
func (e *Error) Count() int {
	return len(e.errors)
}

// Failed reports whether the collection represents an overall failure.
func (e *Error) Failed() bool {
	return e != nil && len(e.errors) > 0
}

// Add returns a collection with msg appended. An empty msg is ignored.
func (e *Error) Add(msg string) *Error {
	if msg == "" {
		return NewError(e.message, e.errors...)
	}
	next := make([]string, 0, len(e.errors)+1)
	next = append(next, e.errors...)
	next = append(next, msg)
	return &Error{message: e.message, errors: next}
}

// Remove returns a collection without the entry at index i.
// An out-of-range index returns an unchanged copy.
func (e *Error) Remove(i int) *Error {
	if i < 0 || i >= len(e.errors) {
		return NewError(e.message, e.errors...)
	}
	next := make([]string, 0, len(e.errors)-1)
	next = append(next, e.errors[:i]...)
	next = append(next, e.errors[i+1:]...)
	return &Error{message: e.message, errors: next}
}

// Error renders the message followed by one "[i]: entry" line per failure.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.message)
	b.WriteString("\n")
	for i, entry := range e.errors {
		fmt.Fprintf(&b, "[%d]: %s\n", i, entry)
	}
	return b.String()
}
