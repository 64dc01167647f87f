package model

import (
	"errors"
	"fmt"

	"xdao.co/ipld/codec/dagcbor"
	"xdao.co/ipld/dag"
	"xdao.co/ipld/storage"
)

type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrInvalidCID      ErrorCode = "INVALID_CID"
	ErrMissingStore    ErrorCode = "MISSING_STORE"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrCIDMismatch     ErrorCode = "CID_MISMATCH"
	ErrImmutable       ErrorCode = "IMMUTABLE"
	ErrUnsupportedHash ErrorCode = "UNSUPPORTED_HASH"
	ErrMalformedBlock  ErrorCode = "MALFORMED_BLOCK"
	ErrTraversal       ErrorCode = "TRAVERSAL"
	ErrTooManyBlocks   ErrorCode = "TOO_MANY_BLOCKS"
	ErrInternal        ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// CodeOf classifies err by the sentinel it wraps.
func CodeOf(err error) ErrorCode {
	var ce *CodedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrCIDMismatch):
		return ErrCIDMismatch
	case errors.Is(err, storage.ErrImmutable):
		return ErrImmutable
	case errors.Is(err, storage.ErrUnsupportedHash):
		return ErrUnsupportedHash
	case errors.Is(err, storage.ErrInvalidCID):
		return ErrInvalidCID
	case dagcbor.IsKind(err, dagcbor.KindMalformed), dagcbor.IsKind(err, dagcbor.KindIO):
		return ErrMalformedBlock
	case errors.Is(err, dag.ErrTooManyBlocks):
		return ErrTooManyBlocks
	}
	var te *dag.TraversalError
	if errors.As(err, &te) {
		return ErrTraversal
	}
	return ErrInternal
}

// FromError converts err to a *CodedError, keeping err's message.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	return NewError(CodeOf(err), err.Error())
}
