package dag

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/codec/dagcbor"
	"xdao.co/ipld/ipld"
	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/dsstore"
)

func put(t *testing.T, d *Dag, v ipld.Value) cid.Cid {
	t.Helper()
	id, err := d.Put(v, cidutil.Blake2b256)
	if err != nil {
		t.Fatalf("Put(%v): %v", v, err)
	}
	return id
}

func TestGet_CrossesLinks(t *testing.T) {
	d := New(dsstore.NewMemory())
	child := put(t, d, ipld.MapOf("a", ipld.NewInt(3)))
	root := put(t, d, ipld.MapOf("root", ipld.List{ipld.MapOf("child", ipld.NewLink(child))}))

	got, ok, err := d.Get(NewPath(root, "root/0/child/a"))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !ipld.Equal(got, ipld.NewInt(3)) {
		t.Fatalf("Get: got %v want 3", got)
	}
}

func TestGet_LinkDoesNotConsumeSegment(t *testing.T) {
	d := New(dsstore.NewMemory())
	x := put(t, d, ipld.MapOf("b", ipld.NewInt(7)))
	root := put(t, d, ipld.MapOf("a", ipld.NewLink(x)))

	got, ok, err := d.Get(NewPath(root, "a/b"))
	if err != nil || !ok || !ipld.Equal(got, ipld.NewInt(7)) {
		t.Fatalf("Get a/b: got %v ok=%v err=%v", got, ok, err)
	}

	// A path ending on a link yields the linked block's root value.
	got, ok, err = d.Get(NewPath(root, "a"))
	if err != nil || !ok || !ipld.Equal(got, ipld.MapOf("b", ipld.NewInt(7))) {
		t.Fatalf("Get a: got %v ok=%v err=%v", got, ok, err)
	}
}

func TestGet_EmptyPathReturnsRoot(t *testing.T) {
	d := New(dsstore.NewMemory())
	want := ipld.MapOf("x", ipld.List{ipld.Bool(true), ipld.Null{}})
	root := put(t, d, want)

	for _, p := range []DagPath{RootPath(root), NewPath(root, ""), NewPath(root, "/")} {
		got, ok, err := d.Get(p)
		if err != nil || !ok || !ipld.Equal(got, want) {
			t.Fatalf("Get(%s): got %v ok=%v err=%v", p, got, ok, err)
		}
	}
	raw, err := d.GetValue(root)
	if err != nil || !ipld.Equal(raw, want) {
		t.Fatalf("GetValue: got %v err=%v", raw, err)
	}
}

func TestGet_MissingKeyVersusOutOfRange(t *testing.T) {
	d := New(dsstore.NewMemory())
	root := put(t, d, ipld.MapOf("list", ipld.List{ipld.NewInt(1)}))

	got, ok, err := d.Get(NewPath(root, "nope"))
	if err != nil || ok || got != nil {
		t.Fatalf("missing key: got %v ok=%v err=%v", got, ok, err)
	}

	_, ok, err = d.Get(NewPath(root, "list/1"))
	if !errors.Is(err, ErrIndexOutOfRange) || ok {
		t.Fatalf("out of range: ok=%v err=%v", ok, err)
	}
	var te *TraversalError
	if !errors.As(err, &te) || te.Position != 1 || te.Segment != "1" || te.Kind != ipld.KindList {
		t.Fatalf("traversal error details: %+v", te)
	}
}

func TestGet_TraversalErrors(t *testing.T) {
	d := New(dsstore.NewMemory())
	root := put(t, d, ipld.MapOf(
		"list", ipld.List{ipld.String("a")},
		"n", ipld.NewInt(5),
	))

	cases := []struct {
		path string
		want error
	}{
		{"list/x", ErrInvalidIndex},
		{"list/-1", ErrInvalidIndex},
		{"list/+0", ErrInvalidIndex},
		{"list/99999999999999999999999", ErrIndexOutOfRange},
		{"n/0", ErrNotIndexable},
		{"list/0/deeper", ErrNotIndexable},
	}
	for _, tc := range cases {
		_, ok, err := d.Get(NewPath(root, tc.path))
		if ok || !errors.Is(err, tc.want) {
			t.Fatalf("Get(%s): ok=%v err=%v want %v", tc.path, ok, err, tc.want)
		}
	}

	_, _, err := d.Get(NewPath(root, "n/0"))
	var te *TraversalError
	if !errors.As(err, &te) || te.Kind != ipld.KindInteger || te.Value != "5" {
		t.Fatalf("scalar error should name the value: %v", err)
	}
}

func TestGet_StoreErrorsPropagate(t *testing.T) {
	store := dsstore.NewMemory()
	d := New(store)
	missing, err := cidutil.Sum([]byte("absent"), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.Get(RootPath(missing)); !storage.IsNotFound(err) {
		t.Fatalf("missing root: got %v want ErrNotFound", err)
	}

	root := put(t, d, ipld.MapOf("gone", ipld.NewLink(missing)))
	if _, _, err := d.Get(NewPath(root, "gone/x")); !storage.IsNotFound(err) {
		t.Fatalf("dangling link: got %v want ErrNotFound", err)
	}

	junk, err := store.Put([]byte{0xff}, cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.GetValue(junk); !errors.Is(err, dagcbor.ErrUnexpectedCode) {
		t.Fatalf("corrupt block: got %v want ErrUnexpectedCode", err)
	}
}

func TestResolve_ReportsLastBlockAndRemaining(t *testing.T) {
	d := New(dsstore.NewMemory())
	leaf := put(t, d, ipld.MapOf("v", ipld.String("leaf")))
	mid := put(t, d, ipld.MapOf("next", ipld.NewLink(leaf)))
	root := put(t, d, ipld.MapOf("mid", ipld.NewLink(mid)))

	res, err := d.Resolve(NewPath(root, "mid/next/v"))
	if err != nil || !res.Found {
		t.Fatalf("Resolve: %+v %v", res, err)
	}
	if !res.Block.Equals(leaf) || res.Blocks != 3 || !ipld.Equal(res.Value, ipld.String("leaf")) {
		t.Fatalf("Resolve: %+v", res)
	}

	res, err = d.Resolve(NewPath(root, "mid/missing/v"))
	if err != nil || res.Found {
		t.Fatalf("Resolve missing: %+v %v", res, err)
	}
	if !res.Block.Equals(mid) || res.Remaining.String() != "missing/v" {
		t.Fatalf("Resolve missing: %+v", res)
	}
}

func TestWithMaxBlocks(t *testing.T) {
	d := New(dsstore.NewMemory())
	leaf := put(t, d, ipld.MapOf("v", ipld.NewInt(1)))
	root := put(t, d, ipld.MapOf("l", ipld.NewLink(leaf)))

	limited := New(d.Store(), WithMaxBlocks(1))
	if _, _, err := limited.Get(NewPath(root, "l/v")); !errors.Is(err, ErrTooManyBlocks) {
		t.Fatalf("expected ErrTooManyBlocks, got %v", err)
	}
	if _, ok, err := New(d.Store(), WithMaxBlocks(2)).Get(NewPath(root, "l/v")); err != nil || !ok {
		t.Fatalf("two blocks should be allowed: ok=%v err=%v", ok, err)
	}
}

func TestWalk_VisitsEachBlockOnce(t *testing.T) {
	d := New(dsstore.NewMemory())
	shared := put(t, d, ipld.String("shared"))
	a := put(t, d, ipld.List{ipld.NewLink(shared)})
	b := put(t, d, ipld.MapOf("s", ipld.NewLink(shared), "again", ipld.NewLink(shared)))
	root := put(t, d, ipld.MapOf("a", ipld.NewLink(a), "b", ipld.NewLink(b)))

	var visited []cid.Cid
	err := d.Walk(root, func(id cid.Cid, v ipld.Value) error {
		visited = append(visited, id)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []cid.Cid{root, a, b, shared}
	if len(visited) != len(want) {
		t.Fatalf("visited %v want %v", visited, want)
	}
	for i := range want {
		if !visited[i].Equals(want[i]) {
			t.Fatalf("visit %d: got %s want %s", i, visited[i], want[i])
		}
	}

	stop := errors.New("stop")
	if err := d.Walk(root, func(cid.Cid, ipld.Value) error { return stop }); err != stop {
		t.Fatalf("Walk should return the callback error, got %v", err)
	}
}

func TestWithLogger_TracesLoads(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	d := New(dsstore.NewMemory(), WithLogger(logrus.NewEntry(logger)))
	root := put(t, d, ipld.NewInt(1))
	if _, err := d.GetValue(root); err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(root.String())) {
		t.Fatalf("expected a trace line naming %s, got %q", root, buf.String())
	}
}

func TestParsePath(t *testing.T) {
	d := New(dsstore.NewMemory())
	root := put(t, d, ipld.NewInt(1))

	for _, s := range []string{root.String() + "/a/0", "/ipld/" + root.String() + "/a/0", "/" + root.String() + "/a/0/"} {
		p, err := ParsePath(s)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", s, err)
		}
		if !p.Root.Equals(root) || p.Path.String() != "a/0" {
			t.Fatalf("ParsePath(%q) = %s", s, p)
		}
	}
	if _, err := ParsePath(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := ParsePath("not-a-cid/a"); err == nil {
		t.Fatalf("expected error for bad root")
	}
}
