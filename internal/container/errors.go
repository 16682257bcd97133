package container

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoScope = errors.New("no resolution scope in context")

// NotFoundError reports a key with no registration. It carries the key in
// structured form so diagnostics never have to parse the message.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return "service not found: " + e.Key
}

func (e *NotFoundError) MissingDependency() string {
	return e.Key
}

type CircularError struct {
	Path []string
}

func (e *CircularError) Error() string {
	return fmt.Sprintf("circular resolution detected: %s", strings.Join(e.Path, " -> "))
}

type DuplicateError struct {
	Key string
}

func (e *DuplicateError) Error() string {
	return "service already registered: " + e.Key
}
