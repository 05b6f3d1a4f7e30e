package model

import (
	"errors"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindConfiguration
	KindGenerationFailed
	KindGenerationEmpty
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConfiguration:
		return "configuration"
	case KindGenerationFailed:
		return "generation_failed"
	case KindGenerationEmpty:
		return "generation_empty"
	default:
		return "internal"
	}
}

// Error is a failure that callers are allowed to see. Message is a single sentence
// safe to return to clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func WrapError(err error, kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (x *Error) Error() string {
	if x.Err != nil {
		return x.Message + ": " + x.Err.Error()
	}
	return x.Message
}

func (x *Error) Unwrap() error {
	return x.Err
}

// Is matches another *Error by kind, so errors.Is(err, model.NewError(KindNotFound, ""))
// works regardless of message.
func (x *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == x.Kind
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal
func KindOf(err error) ErrorKind {
	var x *Error
	if errors.As(err, &x) {
		return x.Kind
	}
	return KindInternal
}

// PublicMessage returns the message of the first *Error in the chain. Internal
// failures never expose their details.
func PublicMessage(err error) string {
	var x *Error
	if errors.As(err, &x) && x.Kind != KindInternal && x.Message != "" {
		return x.Message
	}
	return "Internal Server Error"
}
