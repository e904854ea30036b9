package cellgrpc

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/ratewire/cell"
	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/localfs"
)

func startBufClient(t *testing.T) *Client {
	t.Helper()

	dir := t.TempDir()
	cas, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterCellStoreServer(srv, &Server{CAS: cas})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, stub: NewCellStoreClient(cc), Timeout: 2 * time.Second}
}

func TestCellGRPC_LocalFS_RoundTrip(t *testing.T) {
	client := startBufClient(t)

	payload := []byte("hello cellgrpc")
	id, err := client.Put(payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !id.Defined() {
		t.Fatalf("Put returned an undefined CID")
	}
	if !client.Has(id) {
		t.Fatalf("Has(%s) = false after Put", id)
	}
	got, err := client.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Get = %q, want %q", got, payload)
	}
}

func TestCellGRPC_CellRoundTripAndNotFound(t *testing.T) {
	client := startBufClient(t)

	b := cell.NewBuilder()
	if err := b.StoreUint(0xDEAD, 16); err != nil {
		t.Fatalf("StoreUint: %v", err)
	}
	root := b.Build()
	id, err := storage.PutCell(client, root)
	if err != nil {
		t.Fatalf("PutCell: %v", err)
	}

	back, err := storage.GetCell(client, id)
	if err != nil {
		t.Fatalf("GetCell: %v", err)
	}
	if back.Hash() != root.Hash() {
		t.Fatalf("cell hash mismatch after gRPC round trip")
	}

	// Mint a CID the backing store has never seen.
	missing, err := cidutil.CIDv1RawSHA256CID([]byte("never stored"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	if client.Has(missing) {
		t.Fatalf("Has: expected false for missing CID")
	}
	if _, err := client.Get(missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get missing: got %v, want storage.ErrNotFound", err)
	}
	if _, err := client.Get(cid.Undef); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("Get undef: got %v, want storage.ErrInvalidCID", err)
	}
}
