package grpcstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ipld/storage"
)

// Client implements storage.Blockstore over a Blockstore gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client BlockstoreClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.Blockstore = (*Client)(nil)

// DialOptions configures Dial. The zero value dials without a deadline
// using grpc's default message limits.
type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

// Dial connects to an xdao-blockd at target over plaintext.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts.callLimits()...)
	dialOpts = append(dialOpts, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpcstore: dial %s: %w", target, err)
	}
	return NewClient(cc), nil
}

func (o DialOptions) callLimits() []grpc.DialOption {
	if o.MaxMsgBytes <= 0 {
		return nil
	}
	return []grpc.DialOption{grpc.WithDefaultCallOptions(
		grpc.MaxCallRecvMsgSize(o.MaxMsgBytes),
		grpc.MaxCallSendMsgSize(o.MaxMsgBytes),
	)}
}

// NewClient wraps an existing connection. Close closes cc.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewBlockstoreClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Put stores data under the server's backend and checks the returned CID
// against the one computed locally.
func (c *Client) Put(data []byte, mhType uint64) (cid.Cid, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.PutContext(ctx, data, mhType)
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.GetContext(ctx, id)
}

func (c *Client) Has(id cid.Cid) bool {
	ctx, cancel := c.ctx()
	defer cancel()
	ok, err := c.HasContext(ctx, id)
	return err == nil && ok
}

// PutContext is Put bounded by ctx instead of Timeout.
func (c *Client) PutContext(ctx context.Context, data []byte, mhType uint64) (cid.Cid, error) {
	want, err := storage.Expected(data, mhType)
	if err != nil {
		return cid.Undef, err
	}
	reply, err := c.client.Put(withHash(ctx, mhType), wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, mapRPC(err)
	}
	got, err := cid.Decode(reply.GetValue())
	switch {
	case err != nil, !got.Defined():
		return cid.Undef, fmt.Errorf("%w: server returned %q", storage.ErrInvalidCID, reply.GetValue())
	case !got.Equals(want):
		return cid.Undef, fmt.Errorf("%w: server stored %s, expected %s", storage.ErrCIDMismatch, got, want)
	}
	return got, nil
}

// GetContext is Get bounded by ctx. Bytes are verified before they are
// returned, so a faulty server cannot substitute content.
func (c *Client) GetContext(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	reply, err := c.client.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	data := reply.GetValue()
	if err := storage.Check(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

// HasContext reports presence, returning transport failures instead of
// folding them into false.
func (c *Client) HasContext(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	reply, err := c.client.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(context.Background(), c.Timeout)
	}
	return context.WithCancel(context.Background())
}
