package dagcbor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedCode means a header byte is not accepted by the decode target.
	ErrUnexpectedCode = errors.New("dagcbor: unexpected code")
	// ErrUnknownTag means a tag other than the content-identifier tag (42)
	// or a link payload without the one-byte-length byte string header.
	ErrUnknownTag = errors.New("dagcbor: unknown tag")
	// ErrLengthOutOfRange means a declared length or magnitude does not fit
	// the host int or the decode target.
	ErrLengthOutOfRange = errors.New("dagcbor: length out of range")
	// ErrInvalidUTF8 means a text string is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("dagcbor: invalid utf-8 in text string")
	// ErrInvalidCID means a link payload is not a valid CID.
	ErrInvalidCID = errors.New("dagcbor: invalid cid in link")
	// ErrTrailingBytes means a block holds more than one data item.
	ErrTrailingBytes = errors.New("dagcbor: trailing bytes after data item")
	// ErrNestingTooDeep means lists and maps are nested more than MaxDepth levels.
	ErrNestingTooDeep = errors.New("dagcbor: nesting too deep")
	// ErrLinkLength means a link's CID does not fit the one-byte length form
	// (24 to 255 bytes including the leading zero byte).
	ErrLinkLength = errors.New("dagcbor: link length out of range")
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindMalformed: the input does not follow the grammar of the target.
	KindMalformed Kind = "Malformed"
	// KindIO: the stream ended early or the underlying reader failed.
	KindIO Kind = "IO"
)

// Error is the structured error returned by every decode function.
//
// Cause is one of the package sentinels for KindMalformed, or the reader's
// error (typically io.ErrUnexpectedEOF) for KindIO. Use errors.Is against
// the sentinels; do not match on Error().
type Error struct {
	Kind   Kind
	Offset int64
	Cause  error

	detail string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "dagcbor"
	if e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.detail != "" {
		msg += ": " + e.detail
	}
	return fmt.Sprintf("%s (offset %d)", msg, e.Offset)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func malformed(offset int64, cause error, detail string) error {
	return &Error{Kind: KindMalformed, Offset: offset, Cause: cause, detail: detail}
}

func ioFailure(offset int64, cause error) error {
	return &Error{Kind: KindIO, Offset: offset, Cause: cause}
}
