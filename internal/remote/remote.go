// Package remote defines the append-only remote log contract the sync
// manager reconciles against, and its spreadsheet-backed implementation.
//
// The remote log is dumb: a named sheet of 4-column rows
// [eventId, timestamp, kind, payloadJSON], append-only, with no schema
// enforcement and eventual-consistency reads. Everything clever lives on
// the client side.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// Log is the remote append-only log.
//
// FetchRows returns all rows from startRow (1-based, inclusive) to the
// end. An empty sheet or out-of-range startRow yields an empty result,
// not an error.
type Log interface {
	AppendRows(ctx context.Context, logID, sheet string, rows [][]string) error
	FetchRows(ctx context.Context, logID, sheet string, startRow int) ([][]string, error)
}

// TokenProvider is the black-box credential provider. Implementations
// refresh transparently; a missing token is an authentication failure,
// not an offline condition.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider for a fixed access token (config file or
// environment). An empty token yields a 401-class error.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", &Error{Status: 401, Message: "not authenticated"}
	}
	return string(t), nil
}

// Error is a structured remote failure. The sync manager depends on
// Status to special-case 400 (cursor invalid, self-heal by reset) and
// 401/403 (re-login required).
type Error struct {
	Status  int
	Message string
	Body    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error (status %d)", e.Status)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// AsError unwraps err to a *Error if one is in the chain.
func AsError(err error) (*Error, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}
