// Package localfs stores blocks as immutable files under a sharded directory.
package localfs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/ipld/storage"
)

// Store keeps one read-only file per block at <root>/<shard>/<cid>, where the
// shard is the last two characters of the CID string.
type Store struct {
	root        string
	compression Compression
}

var _ storage.Blockstore = (*Store)(nil)

// ErrBlockTooLarge means a block exceeds the largest size a block file can record.
var ErrBlockTooLarge = errors.New("localfs: block too large")

// Option configures a Store.
type Option func(*Store)

// WithCompression stores new blocks compressed with c. Reading does not
// depend on this setting; every file records its own compression.
func WithCompression(c Compression) Option {
	return func(s *Store) { s.compression = c }
}

// New opens or creates a store rooted at root.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put writes data to a temporary file in the shard directory and links it
// into place, so readers never observe a partial block. An existing file for
// the same CID must hold the same bytes.
func (s *Store) Put(data []byte, mhType uint64) (cid.Cid, error) {
	if len(data) > maxBlockSize {
		return cid.Undef, fmt.Errorf("%w: %d bytes, limit %d", ErrBlockTooLarge, len(data), maxBlockSize)
	}
	id, err := storage.Expected(data, mhType)
	if err != nil {
		return cid.Undef, err
	}
	path := s.pathFor(id)
	if s.Has(id) {
		return s.confirm(id, data)
	}

	encoded, err := encodeFile(data, s.compression)
	if err != nil {
		return cid.Undef, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}
	tmp, err := writeTemp(filepath.Dir(path), encoded)
	if err != nil {
		return cid.Undef, err
	}
	defer os.Remove(tmp)

	// Link refuses to replace an existing name, unlike Rename.
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return s.confirm(id, data)
		}
		return cid.Undef, err
	}
	return id, nil
}

func (s *Store) confirm(id cid.Cid, data []byte) (cid.Cid, error) {
	existing, err := s.Get(id)
	if err != nil || !bytes.Equal(existing, data) {
		// Unreadable or corrupted files count as a conflicting write.
		return cid.Undef, storage.ErrImmutable
	}
	return id, nil
}

func writeTemp(dir string, content []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	_, err = f.Write(content)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, 0o444)
	}
	if err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	raw, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	b, err := decodeFile(raw)
	if err != nil {
		return nil, storage.ErrCIDMismatch
	}
	if err := storage.Check(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

func (s *Store) pathFor(id cid.Cid) string {
	str := id.String()
	if len(str) < 2 {
		return filepath.Join(s.root, str)
	}
	// CIDv1 strings share a multibase/version prefix; shard on the tail.
	return filepath.Join(s.root, str[len(str)-2:], str)
}
