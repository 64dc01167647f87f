package storage

import (
	"errors"

	"xdao.co/ipld/cidutil"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")

	// ErrUnsupportedHash is returned by Put for a hash function blocks may not be written with.
	ErrUnsupportedHash = cidutil.ErrUnsupportedHash
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
