package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ParseError reports a malformed address string.
type ParseError struct {
	Kind  string // "spatial id" | "internal barrier id"
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Kind, e.Input)
}
