package model

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidLink             ErrorKind = "invalid_link"
	KindPlaylistUnsupported     ErrorKind = "playlist_unsupported"
	KindMetadataFetchFailed     ErrorKind = "metadata_fetch_failed"
	KindNoSuitableFormat        ErrorKind = "no_suitable_format"
	KindToolMissing             ErrorKind = "tool_missing"
	KindDirectoryCreationFailed ErrorKind = "directory_creation_failed"
	KindTransferFailed          ErrorKind = "transfer_failed"
	KindInterrupted             ErrorKind = "interrupted"
	KindOutputLocked            ErrorKind = "output_locked"
)

// Error is the typed failure every component returns across its boundary.
// Two *Error values match under errors.Is when their kinds are equal, so a bare
// &Error{Kind: k} works as a sentinel.
type Error struct {
	Kind     ErrorKind
	Message  string
	Guidance string
	Err      error
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) WithGuidance(guidance string) *Error {
	e.Guidance = guidance
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func GuidanceOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Guidance
	}
	return ""
}
