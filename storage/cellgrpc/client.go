package cellgrpc

import (
	"context"
	"errors"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/storage"
)

// Client is a storage.CAS whose objects live behind a CellStore server.
//
// The transport is never trusted: fetched bytes are re-hashed against the
// requested CID, and a Put reply must echo the CID computed locally.
type Client struct {
	cc   *grpc.ClientConn
	stub CellStoreClient

	// Timeout bounds each RPC when non-zero.
	Timeout time.Duration
}

var errNotConnected = errors.New("cellgrpc: client not connected")

type DialOptions struct {
	// Timeout bounds the initial dial when non-zero.
	Timeout time.Duration
	// MaxMsgBytes caps send and receive message sizes when non-zero.
	// Chains are small; bundles fetched object by object never hit this.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
			grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
		))
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, stub: NewCellStoreClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(data []byte) (cid.Cid, error) {
	if c == nil || c.stub == nil {
		return cid.Undef, errNotConnected
	}
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}

	ctx, cancel := c.rpcContext()
	defer cancel()
	reply, err := c.stub.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, fromStatus(err)
	}

	got, err := cid.Decode(reply.GetValue())
	if err != nil || !got.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}
	if !got.Equals(want) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return got, nil
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	if c == nil || c.stub == nil {
		return nil, errNotConnected
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}

	ctx, cancel := c.rpcContext()
	defer cancel()
	reply, err := c.stub.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, fromStatus(err)
	}

	data := reply.GetValue()
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

func (c *Client) Has(id cid.Cid) bool {
	if c == nil || c.stub == nil || !id.Defined() {
		return false
	}
	ctx, cancel := c.rpcContext()
	defer cancel()
	reply, err := c.stub.Has(ctx, wrapperspb.String(id.String()))
	return err == nil && reply.GetValue()
}

func (c *Client) rpcContext() (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(context.Background(), c.Timeout)
	}
	return context.WithCancel(context.Background())
}
