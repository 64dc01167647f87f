// Package bundle moves sets of blocks between stores as deterministic TAR
// archives, optionally zstd-compressed.
//
// Layout:
//
//	blocks/<cid>   raw block bytes, one entry per block, sorted by CID string
//	index.json     optional, non-authoritative metadata (codec, hashes, labels)
//
// Imports trust nothing but the CIDs: every block is re-hashed before it is
// written.
package bundle

import (
	"archive/tar"
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/klauspost/compress/zstd"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

const (
	indexName   = "index.json"
	blockPrefix = "blocks/"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Entries carry a fixed timestamp so archives depend only on their contents.
var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names to CIDs.
	// It is only written when IncludeIndex is set.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
	// Compress wraps the archive in a single zstd stream.
	Compress bool
}

// Export writes a deterministic bundle containing the blocks for ids.
// Duplicate ids are written once. Every block is checked against its CID
// before it is written.
func Export(w io.Writer, store storage.Blockstore, ids []cid.Cid, opts ExportOptions) (err error) {
	if store == nil {
		return errors.New("bundle: nil store")
	}
	sorted, err := sortedUnique(ids)
	if err != nil {
		return err
	}
	labels, err := sortedLabels(opts.Labels)
	if err != nil {
		return err
	}

	out := w
	if opts.Compress {
		zw, zerr := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if zerr != nil {
			return zerr
		}
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		out = zw
	}

	tw := tar.NewWriter(out)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	idx := indexJSON{Version: FormatVersion, CIDCodec: "dag-cbor", Labels: labels}
	for _, id := range sorted {
		data, err := store.Get(id)
		if err != nil {
			return fmt.Errorf("bundle: %s: %w", id, err)
		}
		if err := storage.Check(id, data); err != nil {
			return fmt.Errorf("bundle: %s: %w", id, err)
		}
		if err := writeEntry(tw, blockPrefix+id.String(), data); err != nil {
			return err
		}
		idx.Blocks = append(idx.Blocks, indexBlock{
			CID:       id.String(),
			Multihash: cidutil.HashName(id.Prefix().MhType),
			Size:      len(data),
		})
	}

	if !opts.IncludeIndex {
		return nil
	}
	// Struct fields and pre-sorted slices only, so the encoding is stable.
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return writeEntry(tw, indexName, append(b, '\n'))
}

func sortedUnique(ids []cid.Cid) ([]cid.Cid, error) {
	byKey := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return nil, storage.ErrInvalidCID
		}
		byKey[id.String()] = id
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]cid.Cid, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, nil
}

func sortedLabels(labels map[string]cid.Cid) ([]indexLabel, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	out := make([]indexLabel, 0, len(labels))
	for name, id := range labels {
		if name == "" {
			return nil, errors.New("bundle: empty label key")
		}
		if !id.Defined() {
			return nil, fmt.Errorf("bundle: label %q: %w", name, storage.ErrInvalidCID)
		}
		out = append(out, indexLabel{Name: name, CID: id.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown skips entries that are neither blocks nor index.json.
	// By default they fail the import.
	IgnoreUnknown bool
}

// Result describes what an import wrote.
type Result struct {
	// Blocks lists imported CIDs in archive order.
	Blocks []cid.Cid
	// Labels is read from index.json when present. It is not authoritative.
	Labels map[string]cid.Cid
}

// Import reads a plain or zstd-compressed bundle from r and writes its blocks
// into store, failing on unknown entries.
func Import(r io.Reader, store storage.Blockstore) (Result, error) {
	return ImportWithOptions(r, store, ImportOptions{})
}

// ImportWithOptions is Import with options. Each block is verified against
// the CID in its entry name, then written with the hash function that CID
// names, so the store returns the same CID.
//
// Blocks written before a failure stay in the store; they are valid blocks.
func ImportWithOptions(r io.Reader, store storage.Blockstore, opts ImportOptions) (Result, error) {
	var res Result
	if store == nil {
		return res, errors.New("bundle: nil store")
	}

	br := bufio.NewReader(r)
	src := io.Reader(br)
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return res, fmt.Errorf("bundle: zstd: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	tr := tar.NewReader(src)
	seen := make(map[string]struct{})
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("bundle: %w", err)
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return res, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		switch {
		case h.Typeflag != tar.TypeReg:
			if !opts.IgnoreUnknown {
				return res, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
			}
		case name == indexName:
			if res.Labels, err = readLabels(tr); err != nil {
				return res, err
			}
		case strings.HasPrefix(name, blockPrefix):
			id, err := importBlock(tr, strings.TrimPrefix(name, blockPrefix), store, seen)
			if err != nil {
				return res, err
			}
			res.Blocks = append(res.Blocks, id)
		case opts.IgnoreUnknown:
		default:
			return res, fmt.Errorf("bundle: unknown entry: %s", name)
		}
	}
}

func importBlock(r io.Reader, name string, store storage.Blockstore, seen map[string]struct{}) (cid.Cid, error) {
	id, err := cid.Decode(name)
	if err != nil || !id.Defined() {
		return cid.Undef, fmt.Errorf("bundle: entry %q: %w", name, storage.ErrInvalidCID)
	}
	key := id.String()
	if _, dup := seen[key]; dup {
		return cid.Undef, fmt.Errorf("bundle: duplicate block entry: %s", key)
	}
	seen[key] = struct{}{}

	data, err := io.ReadAll(r)
	if err != nil {
		return cid.Undef, fmt.Errorf("bundle: %s: %w", key, err)
	}
	if err := storage.Check(id, data); err != nil {
		return cid.Undef, err
	}
	got, err := store.Put(data, id.Prefix().MhType)
	if err != nil {
		return cid.Undef, err
	}
	if !got.Equals(id) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

type indexJSON struct {
	Version  int          `json:"version"`
	CIDCodec string       `json:"cidCodec"`
	Blocks   []indexBlock `json:"blocks"`
	Labels   []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID       string `json:"cid"`
	Multihash string `json:"multihash"`
	Size      int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func readLabels(r io.Reader) (map[string]cid.Cid, error) {
	var idx indexJSON
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return nil, fmt.Errorf("bundle: index.json: %w", err)
	}
	if idx.Version != FormatVersion {
		return nil, fmt.Errorf("bundle: unsupported index version %d", idx.Version)
	}
	if len(idx.Labels) == 0 {
		return nil, nil
	}
	out := make(map[string]cid.Cid, len(idx.Labels))
	for _, l := range idx.Labels {
		id, err := cid.Decode(l.CID)
		if err != nil {
			return nil, fmt.Errorf("bundle: label %q: %w", l.Name, storage.ErrInvalidCID)
		}
		out[l.Name] = id
	}
	return out, nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

// cleanTarPath normalizes an entry name and returns "" for anything that
// could escape the archive root.
func cleanTarPath(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
