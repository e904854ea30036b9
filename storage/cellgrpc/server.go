package cellgrpc

import (
	"context"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/storage"
)

// Server exposes a storage.CAS over the CellStore gRPC service.
//
// CIDs are re-verified server side in both directions, so a misbehaving
// backend cannot serve bytes under the wrong name even to a trusting client.
type Server struct {
	UnimplementedCellStoreServer
	CAS storage.CAS
}

func (s *Server) backend() (storage.CAS, error) {
	if s == nil || s.CAS == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing CAS")
	}
	return s.CAS, nil
}

// decodeWireCID parses a CID off the wire; anything undecodable or undefined
// is an InvalidArgument carrying the ErrInvalidCID message.
func decodeWireCID(raw string) (cid.Cid, error) {
	id, err := cid.Decode(raw)
	if err != nil || !id.Defined() {
		return cid.Undef, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	return id, nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	cas, err := s.backend()
	if err != nil {
		return nil, err
	}
	data := in.GetValue()
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	id, err := cas.Put(data)
	if err != nil {
		return nil, toStatus(err)
	}
	if !id.Equals(want) {
		return nil, status.Error(codes.DataLoss, storage.ErrCIDMismatch.Error())
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	cas, err := s.backend()
	if err != nil {
		return nil, err
	}
	id, err := decodeWireCID(in.GetValue())
	if err != nil {
		return nil, err
	}
	data, err := cas.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	if !got.Equals(id) {
		return nil, status.Error(codes.DataLoss, storage.ErrCIDMismatch.Error())
	}
	return wrapperspb.Bytes(data), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	cas, err := s.backend()
	if err != nil {
		return nil, err
	}
	id, err := decodeWireCID(in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(cas.Has(id)), nil
}
