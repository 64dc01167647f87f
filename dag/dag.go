// Package dag resolves slash-separated paths through DAG-CBOR blocks,
// following links from one block into the next.
package dag

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"

	"xdao.co/ipld/codec/dagcbor"
	"xdao.co/ipld/ipld"
	"xdao.co/ipld/path"
	"xdao.co/ipld/storage"
)

// DagPath names a value: a root block and a path inside the DAG below it.
type DagPath struct {
	Root cid.Cid
	Path path.Path
}

// NewPath parses p relative to root.
func NewPath(root cid.Cid, p string) DagPath {
	return DagPath{Root: root, Path: path.Parse(p)}
}

// RootPath names the root value of a block.
func RootPath(root cid.Cid) DagPath {
	return DagPath{Root: root}
}

func (p DagPath) String() string {
	if p.Path.IsEmpty() {
		return p.Root.String()
	}
	return p.Root.String() + path.Separator + p.Path.String()
}

// ParsePath parses "<cid>[/segment...]", with an optional leading "/ipld/" or "/".
func ParsePath(s string) (DagPath, error) {
	segs := path.Parse(s)
	if len(segs) > 0 && segs[0] == "ipld" {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return DagPath{}, fmt.Errorf("dag: empty path")
	}
	root, err := cid.Decode(segs[0])
	if err != nil {
		return DagPath{}, fmt.Errorf("dag: invalid root %q: %w", segs[0], err)
	}
	return DagPath{Root: root, Path: segs[1:]}, nil
}

// Dag reads and writes values through a block store.
//
// A Dag holds no mutable state; it is safe for concurrent use when its store is.
type Dag struct {
	store     storage.Blockstore
	log       *logrus.Entry
	maxBlocks int
}

// Option configures a Dag.
type Option func(*Dag)

// WithLogger traces every block load at debug level.
func WithLogger(log *logrus.Entry) Option {
	return func(d *Dag) { d.log = log }
}

// WithMaxBlocks bounds how many blocks a single Get, Resolve or Walk may load.
// Zero means no bound.
func WithMaxBlocks(n int) Option {
	return func(d *Dag) { d.maxBlocks = n }
}

func New(store storage.Blockstore, opts ...Option) *Dag {
	d := &Dag{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Store returns the underlying block store.
func (d *Dag) Store() storage.Blockstore { return d.store }

// GetValue fetches and decodes the block id.
func (d *Dag) GetValue(id cid.Cid) (ipld.Value, error) {
	return d.load(id)
}

// Put encodes v as DAG-CBOR and writes it with the hash function mhType.
func (d *Dag) Put(v ipld.Value, mhType uint64) (cid.Cid, error) {
	b, err := dagcbor.Marshal(v)
	if err != nil {
		return cid.Undef, err
	}
	return d.store.Put(b, mhType)
}

// Get resolves p. A missing map key yields (nil, false, nil); every other
// failure is an error.
func (d *Dag) Get(p DagPath) (ipld.Value, bool, error) {
	res, err := d.Resolve(p)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Found, nil
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Value is the resolved value, or nil when not found.
	Value ipld.Value
	Found bool
	// Block is the last block the walk loaded.
	Block cid.Cid
	// Remaining holds the unresolved segments when not found, starting with the missing key.
	Remaining path.Path
	// Blocks counts the blocks loaded, including the root.
	Blocks int
}

// Resolve walks p from its root block. List segments must be in-range
// non-negative decimal indices; map segments are keys; a link reached by
// any segment is loaded and the walk continues from that block's root.
func (d *Dag) Resolve(p DagPath) (Resolution, error) {
	w := walker{d: d}
	cur, err := w.load(p.Root)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Block: p.Root}

	for i, seg := range p.Path {
		var (
			next ipld.Value
			ok   bool
		)
		switch v := cur.(type) {
		case ipld.List:
			idx, err := parseIndex(seg)
			if err != nil {
				return Resolution{}, traversalError(seg, i, v, err)
			}
			if idx >= uint64(len(v)) {
				return Resolution{}, traversalError(seg, i, v, ErrIndexOutOfRange)
			}
			next, ok = v[idx], true
		case *ipld.Map:
			next, ok = v.Get(seg)
		default:
			return Resolution{}, traversalError(seg, i, v, ErrNotIndexable)
		}
		if !ok {
			res.Remaining = append(path.Path(nil), p.Path[i:]...)
			res.Blocks = w.loaded
			return res, nil
		}
		if link, isLink := next.(ipld.Link); isLink {
			next, err = w.load(link.Cid)
			if err != nil {
				return Resolution{}, fmt.Errorf("dag: segment %d %q: %w", i, seg, err)
			}
			res.Block = link.Cid
		}
		cur = next
	}

	res.Value, res.Found, res.Blocks = cur, true, w.loaded
	return res, nil
}

// Walk loads every block reachable from root, each once, calling fn with
// its CID and decoded value. Order is breadth-first with links visited in
// the depth-first order ipld.Links reports them. Returning a non-nil error
// from fn stops the walk and is returned.
func (d *Dag) Walk(root cid.Cid, fn func(id cid.Cid, v ipld.Value) error) error {
	w := walker{d: d}
	seen := map[cid.Cid]struct{}{root: {}}
	queue := []cid.Cid{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		v, err := w.load(id)
		if err != nil {
			return err
		}
		if err := fn(id, v); err != nil {
			return err
		}
		for _, l := range ipld.Links(v) {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			queue = append(queue, l)
		}
	}
	return nil
}

// walker counts block loads for one operation.
type walker struct {
	d      *Dag
	loaded int
}

func (w *walker) load(id cid.Cid) (ipld.Value, error) {
	if w.d.maxBlocks > 0 && w.loaded >= w.d.maxBlocks {
		return nil, fmt.Errorf("%w: %d", ErrTooManyBlocks, w.d.maxBlocks)
	}
	w.loaded++
	return w.d.load(id)
}

func (d *Dag) load(id cid.Cid) (ipld.Value, error) {
	if d.log != nil {
		d.log.WithField("cid", id.String()).Debug("load block")
	}
	b, err := d.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("dag: get %s: %w", id, err)
	}
	v, err := dagcbor.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("dag: decode %s: %w", id, err)
	}
	return v, nil
}

func parseIndex(seg string) (uint64, error) {
	n, err := strconv.ParseUint(seg, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrIndexOutOfRange
		}
		return 0, ErrInvalidIndex
	}
	return n, nil
}
