// Package supplyparser locates, downloads and flattens the MHLW
// pharmaceutical supply-status workbook into a JSON envelope.
package supplyparser

import (
	"errors"
	"fmt"
)

// ErrNoMatchingLink is wrapped by ResolutionError when the index page has no workbook anchor.
var ErrNoMatchingLink = errors.New("no workbook link found")

// ResolutionError means the index page did not reference a matching workbook.
// The page structure has probably changed; retrying will not help.
type ResolutionError struct {
	PageURL string
	Keyword string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving workbook link on %s (keyword %q): %v", e.PageURL, e.Keyword, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// TransportError is a failed GET: network failure, timeout or non-2xx status.
// StatusCode is zero when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError means the workbook (or the envelope built from it) is unusable.
type ParseError struct {
	Stage string // "open", "sheet", "rows", "validate"
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error (%s): %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
