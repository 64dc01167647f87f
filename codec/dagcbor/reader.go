package dagcbor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Major types, the high three bits of a header byte.
const (
	majorUnsigned byte = iota
	majorNegative
	majorBytes
	majorText
	majorArray
	majorMap
	majorTag
	majorSimple
)

// Minor values that select the width of the argument that follows.
const (
	minorMaxInline byte = 23
	minorUint8     byte = 24
	minorUint16    byte = 25
	minorUint32    byte = 26
	minorUint64    byte = 27
)

// Fixed header bytes.
const (
	codeFalse     byte = 0xf4
	codeTrue      byte = 0xf5
	codeNull      byte = 0xf6
	codeUndefined byte = 0xf7
	codeFloat32   byte = 0xfa
	codeFloat64   byte = 0xfb
	codeTag1      byte = 0xd8 // tag with a one-byte tag number
	codeBytes1    byte = 0x58 // byte string with a one-byte length

	tagCID byte = 42
)

// chunkSize bounds a single allocation made on behalf of a declared length
// that the reader cannot check against the remaining input.
const chunkSize = 64 << 10

// maxPrealloc caps the capacity reserved up front for containers.
const maxPrealloc = 1024

// MaxDepth is the deepest container nesting a Reader accepts.
const MaxDepth = 1024

type sizer interface {
	Len() int
}

// Reader consumes DAG-CBOR items from a byte stream.
//
// A Reader keeps no state between items beyond its offset, and holds at
// most one byte of look-ahead. It is not safe for concurrent use.
type Reader struct {
	r      io.Reader
	sized  sizer
	offset int64

	buf    [8]byte
	peeked bool
	peek   byte
	depth  int
}

// NewReader returns a Reader over r. If r reports its remaining length
// (bytes.Reader, strings.Reader, bytes.Buffer) declared lengths are checked
// against it before any allocation.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{r: r}
	if s, ok := r.(sizer); ok {
		rd.sized = s
	}
	return rd
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

// remaining returns the bytes left in the source when known.
func (r *Reader) remaining() (int, bool) {
	if r.sized == nil {
		return 0, false
	}
	n := r.sized.Len()
	if r.peeked {
		n++
	}
	return n, true
}

func (r *Reader) fill(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	start := r.offset
	if r.peeked {
		p[0] = r.peek
		r.peeked = false
		r.offset++
		p = p[1:]
	}
	n, err := io.ReadFull(r.r, p)
	r.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return ioFailure(start, err)
	}
	return nil
}

func (r *Reader) readByte() (byte, error) {
	if err := r.fill(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// peekByte returns the next byte without consuming it. A clean end of
// input is reported as io.EOF, unwrapped.
func (r *Reader) peekByte() (byte, error) {
	if r.peeked {
		return r.peek, nil
	}
	n, err := io.ReadFull(r.r, r.buf[:1])
	if n == 0 {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, ioFailure(r.offset, err)
	}
	r.peek = r.buf[0]
	r.peeked = true
	return r.peek, nil
}

// unread pushes back the byte just returned by readByte.
func (r *Reader) unread(b byte) {
	r.peek = b
	r.peeked = true
	r.offset--
}

func (r *Reader) readUint16() (uint16, error) {
	if err := r.fill(r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.buf[:2]), nil
}

func (r *Reader) readUint32() (uint32, error) {
	if err := r.fill(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.buf[:4]), nil
}

func (r *Reader) readUint64() (uint64, error) {
	if err := r.fill(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(r.buf[:8]), nil
}

func (r *Reader) readFloat32() (float32, error) {
	bits, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (r *Reader) readFloat64() (float64, error) {
	bits, err := r.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// unexpected reports header byte code, already consumed, as not accepted
// by target.
func (r *Reader) unexpected(code byte, target string) error {
	return malformed(r.offset-1, ErrUnexpectedCode, fmt.Sprintf("0x%02x for %s", code, target))
}

// readArg reads the argument selected by the minor bits of header byte
// code. maxMinor is the widest tier the target accepts.
func (r *Reader) readArg(code byte, maxMinor byte, target string) (uint64, error) {
	minor := code & 0x1f
	if minor > maxMinor {
		return 0, r.unexpected(code, target)
	}
	switch {
	case minor <= minorMaxInline:
		return uint64(minor), nil
	case minor == minorUint8:
		b, err := r.readByte()
		return uint64(b), err
	case minor == minorUint16:
		v, err := r.readUint16()
		return uint64(v), err
	case minor == minorUint32:
		v, err := r.readUint32()
		return uint64(v), err
	default:
		return r.readUint64()
	}
}

// readLen reads a length argument and checks it against the host int and,
// when known, against the input left. minSize is the smallest number of
// bytes one counted element can occupy.
func (r *Reader) readLen(code byte, target string, minSize int) (int, error) {
	start := r.offset - 1
	n, err := r.readArg(code, minorUint64, target)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return 0, malformed(start, ErrLengthOutOfRange, fmt.Sprintf("%s length %d", target, n))
	}
	length := int(n)
	if left, ok := r.remaining(); ok && minSize > 0 && length > left/minSize {
		return 0, ioFailure(r.offset, io.ErrUnexpectedEOF)
	}
	return length, nil
}

// readN reads exactly n bytes without trusting n for a single allocation.
func (r *Reader) readN(n int) ([]byte, error) {
	if _, known := r.remaining(); known || n <= chunkSize {
		out := make([]byte, n)
		if err := r.fill(out); err != nil {
			return nil, err
		}
		return out, nil
	}
	out := make([]byte, 0, chunkSize)
	for len(out) < n {
		step := n - len(out)
		if step > chunkSize {
			step = chunkSize
		}
		out = append(out, make([]byte, step)...)
		if err := r.fill(out[len(out)-step:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Reader) readText(n int) (string, error) {
	start := r.offset
	b, err := r.readN(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", malformed(start, ErrInvalidUTF8, "")
	}
	return string(b), nil
}

func prealloc(n int) int {
	if n > maxPrealloc {
		return maxPrealloc
	}
	return n
}

// enter records one more open container and fails past MaxDepth.
func (r *Reader) enter() error {
	if r.depth >= MaxDepth {
		return malformed(r.offset, ErrNestingTooDeep, fmt.Sprintf("more than %d nested containers", MaxDepth))
	}
	r.depth++
	return nil
}

func (r *Reader) leave() { r.depth-- }
