// Package ipfs stores blocks through the local Kubo "ipfs" CLI.
package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/storage"
)

// Store is a block store backed by the Kubo "ipfs" CLI.
//
// Blocks are written as CIDv1 dag-cbor with the caller's hash function, so
// Kubo computes the same CID as cidutil.Sum. Every read is verified against
// the requested CID; Kubo is a transport here, not a source of truth.
type Store struct {
	bin     string
	env     []string
	offline bool
	pin     bool
	timeout time.Duration
}

var _ storage.Blockstore = (*Store)(nil)

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// RepoPath sets IPFS_PATH for every command. Empty inherits it.
	RepoPath string
	// Env overrides the command environment. Nil uses the process
	// environment.
	Env []string
	// Offline passes --offline so reads never go to the network.
	Offline bool
	// Pin pins blocks as they are written.
	Pin bool
	// Timeout bounds each command when non-zero.
	Timeout time.Duration
}

func New(opts Options) *Store {
	s := &Store{
		bin:     opts.Bin,
		env:     opts.Env,
		offline: opts.Offline,
		pin:     opts.Pin,
		timeout: opts.Timeout,
	}
	if s.bin == "" {
		s.bin = "ipfs"
	}
	if opts.RepoPath != "" {
		if s.env == nil {
			s.env = os.Environ()
		}
		s.env = append(s.env, "IPFS_PATH="+opts.RepoPath)
	}
	return s
}

// CommandError reports a failed ipfs invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ipfs %s: %s", strings.Join(e.Args, " "), e.Stderr)
	}
	return fmt.Sprintf("ipfs %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

func (s *Store) Put(data []byte, mhType uint64) (cid.Cid, error) {
	want, err := storage.Expected(data, mhType)
	if err != nil {
		return cid.Undef, err
	}

	out, err := s.run(data, s.offline,
		"block", "put",
		"--quiet",
		"--cid-codec=dag-cbor",
		"--mhtype="+cidutil.HashName(mhType),
		"--pin="+strconv.FormatBool(s.pin),
		"/dev/stdin",
	)
	if err != nil {
		return cid.Undef, err
	}

	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: unexpected block put output %q: %w", out, err)
	}
	if !got.Equals(want) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return want, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	out, err := s.run(nil, s.offline, "block", "get", id.String())
	if isNotFound(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := storage.Check(id, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Has only consults the local repository.
func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := s.run(nil, true, "block", "stat", id.String())
	return err == nil
}

func (s *Store) run(stdin []byte, offline bool, args ...string) ([]byte, error) {
	if offline {
		args = append([]string{"--offline"}, args...)
	}
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.bin, args...)
	cmd.Env = s.env
	cmd.WaitDelay = time.Second
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	cerr := &CommandError{Args: args, Err: err}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		cerr.Stderr = strings.TrimSpace(string(ee.Stderr))
	}
	if ctx.Err() != nil {
		cerr.Err = ctx.Err()
	}
	return nil, cerr
}

func isNotFound(err error) bool {
	var cerr *CommandError
	if !errors.As(err, &cerr) {
		return false
	}
	return strings.Contains(strings.ToLower(cerr.Stderr), "not found")
}
