// Package apperr gives every rejection path in the signaling engine a
// stable, wire-visible code instead of an ad hoc string, so the router can
// translate a failure into the right client-facing message (Error,
// RoomJoinFailed, ReconnectionFailed, AuthenticationError) without string
// matching.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable identifier, safe to send over the wire, for one class of
// rejection (spec.md §7).
type Code string

const (
	CodeAuthenticationRequired     Code = "AuthenticationRequired"
	CodeInvalidAppId               Code = "InvalidAppId"
	CodeAuthenticationTimeout      Code = "AuthenticationTimeout"
	CodeRoomFull                   Code = "RoomFull"
	CodeRoomNotFound               Code = "RoomNotFound"
	CodeAlreadyInRoom              Code = "AlreadyInRoom"
	CodeNotInRoom                  Code = "NotInRoom"
	CodeInvalidGameName            Code = "InvalidGameName"
	CodeInvalidPlayerName          Code = "InvalidPlayerName"
	CodeInvalidMessage             Code = "InvalidMessage"
	CodeMaxRoomsPerGameExceeded    Code = "MaxRoomsPerGameExceeded"
	CodeMaxPlayersPerRoomExceeded  Code = "MaxPlayersPerRoomExceeded"
	CodeRateLimitExceeded          Code = "RateLimitExceeded"
	CodeConnectionLimitExceeded    Code = "ConnectionLimitExceeded"
	CodeReconnectionFailed         Code = "ReconnectionFailed"
	CodeReconnectionExpired        Code = "ReconnectionExpired"
	CodeReconnectionTokenInvalid   Code = "ReconnectionTokenInvalid"
	CodeSlowConsumer               Code = "SlowConsumer" // internal only, never sent verbatim to a client
	CodeProtocolViolation          Code = "ProtocolViolation"
)

// Error is the typed error every core package returns for a recognized
// rejection. Unrecognized failures stay as plain wrapped errors and are
// folded into CodeProtocolViolation at the router boundary.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error around an existing cause, in the teacher's
// fmt.Errorf("...: %w", err) convention but keeping the code machine-readable.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// As extracts the *Error from err, if any wraps one.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the Code carried by err, or CodeProtocolViolation if err
// does not wrap an *Error — the router's catch-all for unrecognized failures.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeProtocolViolation
}
