package model

import (
	"encoding/json"
	"errors"
	"testing"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/codec/dagcbor"
	"xdao.co/ipld/dag"
	"xdao.co/ipld/ipld"
	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/dsstore"
)

func TestSnapshot_ResolveResult_JSONShape(t *testing.T) {
	d := dag.New(dsstore.NewMemory())
	root, err := d.Put(ipld.MapOf("a", ipld.List{ipld.NewInt(3)}), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	p := dag.NewPath(root, "a/0")
	res, err := d.Resolve(p)
	if err != nil {
		t.Fatal(err)
	}
	out, err := NewResolveResult(p, res)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n" +
		"  \"root\": \"" + root.String() + "\",\n" +
		"  \"path\": \"a/0\",\n" +
		"  \"found\": true,\n" +
		"  \"block\": \"" + root.String() + "\",\n" +
		"  \"blocks\": 1,\n" +
		"  \"value\": 3\n" +
		"}"
	if string(b) != want {
		t.Fatalf("snapshot mismatch:\n%s", b)
	}

	res, err = d.Resolve(dag.NewPath(root, "missing/x"))
	if err != nil {
		t.Fatal(err)
	}
	out, err = NewResolveResult(dag.NewPath(root, "missing/x"), res)
	if err != nil {
		t.Fatal(err)
	}
	if out.Found || out.Value != nil || len(out.Remaining) != 2 {
		t.Fatalf("not found projection: %+v", out)
	}
}

func TestCodeOf_Sentinels(t *testing.T) {
	d := dag.New(dsstore.NewMemory())
	root, err := d.Put(ipld.MapOf("n", ipld.NewInt(1)), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = d.Get(dag.NewPath(root, "n/x"))
	if got := CodeOf(err); got != ErrTraversal {
		t.Fatalf("traversal: got %s (%v)", got, err)
	}

	missing, err := cidutil.Sum([]byte("missing"), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.GetValue(missing)
	if got := CodeOf(err); got != ErrNotFound {
		t.Fatalf("not found: got %s (%v)", got, err)
	}

	_, err = dagcbor.Unmarshal([]byte{0xff})
	if got := CodeOf(err); got != ErrMalformedBlock {
		t.Fatalf("malformed: got %s (%v)", got, err)
	}
	if got := CodeOf(errors.Join(storage.ErrUnsupportedHash)); got != ErrUnsupportedHash {
		t.Fatalf("unsupported hash: got %s", got)
	}
}
