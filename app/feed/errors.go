package feed

import (
	"fmt"
)

// ParseError reports an upstream document that is not a well-formed Atom feed.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse feed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse feed: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WriteError reports an output file that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
