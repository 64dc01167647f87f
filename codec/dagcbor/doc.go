// Package dagcbor decodes the DAG-CBOR subset of CBOR into the ipld value
// model and into narrower typed targets.
//
// Every item starts with a header byte. Its high three bits select the
// major type (unsigned, negative, bytes, text, array, map, tag, simple) and
// its low five bits select how the argument (value or length) is stored:
// inline for 0-23, then 1, 2, 4 or 8 big-endian bytes for 24-27. The same
// ladder serves every major type.
//
// Accepted grammar:
//
//   - unsigned and negative integers up to 64-bit arguments
//   - definite-length byte and UTF-8 text strings
//   - definite-length arrays and maps with text keys
//   - false, true, null and undefined (both decode to ipld.Null)
//   - 32-bit (widened) and 64-bit floats
//   - links: tag 42 (0xd8 0x2a) around a one-byte-length byte string (0x58)
//     holding 0x00 followed by a binary CID
//
// Indefinite-length items, half-precision floats and all other tags are
// rejected. Duplicate map keys are accepted and the last entry wins.
//
// Encoding is delegated to github.com/fxamacker/cbor/v2 configured to emit
// the same grammar; see Marshal.
package dagcbor
