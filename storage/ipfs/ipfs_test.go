package ipfs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/storage"
)

// fakeIPFS writes a shell script standing in for the ipfs binary.
func fakeIPFS(t *testing.T, script string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "ipfs")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestStore_PutChecksReturnedCID(t *testing.T) {
	data := []byte("block")
	id, err := cidutil.Sum(data, cidutil.DefaultHash)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	other, err := cidutil.Sum([]byte("other"), cidutil.DefaultHash)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}

	ok := New(Options{Bin: fakeIPFS(t, "cat >/dev/null\necho "+id.String()+"\n")})
	got, err := ok.Put(data, cidutil.DefaultHash)
	if err != nil || !got.Equals(id) {
		t.Fatalf("Put: got %s, %v", got, err)
	}

	bad := New(Options{Bin: fakeIPFS(t, "cat >/dev/null\necho "+other.String()+"\n")})
	if _, err := bad.Put(data, cidutil.DefaultHash); err != storage.ErrCIDMismatch {
		t.Fatalf("Put mismatch: got %v want %v", err, storage.ErrCIDMismatch)
	}
}

func TestStore_Get(t *testing.T) {
	data := []byte("stored block")
	id, err := cidutil.Sum(data, cidutil.Blake2b256)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	fixture := filepath.Join(t.TempDir(), "block")
	if err := os.WriteFile(fixture, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := New(Options{Bin: fakeIPFS(t, "cat "+fixture+"\n")})
	got, err := s.Get(id)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("Get: got %q, %v", got, err)
	}
	if !s.Has(id) {
		t.Fatalf("Has: expected true")
	}

	missing := New(Options{Bin: fakeIPFS(t, "echo 'Error: block was not found locally (offline)' >&2\nexit 1\n")})
	if _, err := missing.Get(id); !storage.IsNotFound(err) {
		t.Fatalf("Get missing: got %v want ErrNotFound", err)
	}
	if missing.Has(id) {
		t.Fatalf("Has: expected false")
	}

	wrong := New(Options{Bin: fakeIPFS(t, "printf tampered\n")})
	if _, err := wrong.Get(id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get tampered: got %v want %v", err, storage.ErrCIDMismatch)
	}
}

func TestStore_RejectsUnsupportedHashBeforeExec(t *testing.T) {
	s := New(Options{Bin: filepath.Join(t.TempDir(), "does-not-exist")})
	if _, err := s.Put([]byte("x"), 0xd5); err == nil {
		t.Fatalf("expected unsupported hash error")
	}
}

func TestStore_PassesOfflineAndPin(t *testing.T) {
	data := []byte("flags")
	id, err := cidutil.Sum(data, cidutil.DefaultHash)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	argsFile := filepath.Join(t.TempDir(), "args")
	script := "echo \"$@\" >" + argsFile + "\necho \"$IPFS_PATH\" >>" + argsFile + "\ncat >/dev/null\necho " + id.String() + "\n"

	s := New(Options{Bin: fakeIPFS(t, script), RepoPath: "/repo", Offline: true, Pin: true})
	if _, err := s.Put(data, cidutil.DefaultHash); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, want := range []string{"--offline block put", "--pin=true", "--mhtype=sha2-256", "--cid-codec=dag-cbor", "/repo"} {
		if !bytes.Contains(got, []byte(want)) {
			t.Fatalf("invocation %q missing %q", got, want)
		}
	}
}

func TestStore_Timeout(t *testing.T) {
	id, err := cidutil.Sum([]byte("slow"), cidutil.DefaultHash)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	s := New(Options{Bin: fakeIPFS(t, "exec sleep 5\n"), Timeout: 100 * time.Millisecond})
	_, err = s.Get(id)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Get: got %v want deadline exceeded", err)
	}
	var cerr *CommandError
	if !errors.As(err, &cerr) || cerr.Args[0] != "block" {
		t.Fatalf("expected a CommandError for block get, got %#v", err)
	}
}
