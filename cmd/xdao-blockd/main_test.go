package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/storage/grpcstore"
)

func TestRun_ListBackends(t *testing.T) {
	var out bytes.Buffer
	if code := run(context.Background(), []string{"--list-backends"}, &out, io.Discard, nil); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out.String(), "localfs") || strings.Contains(out.String(), "grpc") {
		t.Fatalf("daemon backends: %q", out.String())
	}
}

func TestRun_BadFlags(t *testing.T) {
	if code := run(context.Background(), []string{"--nope"}, io.Discard, io.Discard, nil); code != 2 {
		t.Fatalf("unknown flag: exit %d", code)
	}
	if code := run(context.Background(), []string{"--backend", "localfs"}, io.Discard, io.Discard, nil); code != 2 {
		t.Fatalf("missing localfs dir: exit %d", code)
	}
}

func TestRun_ServesBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan int, 1)
	args := []string{"--listen", "127.0.0.1:0", "--backend", "localfs", "--localfs-dir", t.TempDir(), "--log-level", "error"}
	go func() { done <- run(ctx, args, io.Discard, io.Discard, ready) }()

	var addr net.Addr
	select {
	case addr = <-ready:
	case code := <-done:
		t.Fatalf("daemon exited early with %d", code)
	case <-time.After(5 * time.Second):
		t.Fatalf("daemon did not start")
	}

	client, err := grpcstore.Dial(addr.String(), grpcstore.DialOptions{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()
	client.Timeout = 2 * time.Second

	data := []byte{0xa1, 0x61, 'a', 0x03}
	id, err := client.Put(data, cidutil.Blake2b256)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := client.Get(id)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("Get: %x, %v", got, err)
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("exit %d after shutdown", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("daemon did not stop")
	}
}
