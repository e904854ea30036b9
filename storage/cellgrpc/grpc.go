package cellgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CellStoreServer is the server API for the CellStore gRPC service.
//
// Requests and responses reuse the protobuf well-known wrapper types, which
// keeps protoc and generated code out of the build.
//
// Proto definition: cellstore.proto.
type CellStoreServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// UnimplementedCellStoreServer can be embedded to have forward compatible implementations.
type UnimplementedCellStoreServer struct{}

func (UnimplementedCellStoreServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedCellStoreServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedCellStoreServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}

// RegisterCellStoreServer registers the CellStore service on a gRPC server.
func RegisterCellStoreServer(s grpc.ServiceRegistrar, srv CellStoreServer) {
	s.RegisterService(&CellStore_ServiceDesc, srv)
}

// CellStoreClient is the client API for the CellStore gRPC service.
type CellStoreClient interface {
	Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type cellStoreClient struct{ cc grpc.ClientConnInterface }

func NewCellStoreClient(cc grpc.ClientConnInterface) CellStoreClient { return &cellStoreClient{cc: cc} }

func (c *cellStoreClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/xdao.ratewire.storage.cellgrpc.v1.CellStore/Put", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cellStoreClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/xdao.ratewire.storage.cellgrpc.v1.CellStore/Get", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cellStoreClient) Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	err := c.cc.Invoke(ctx, "/xdao.ratewire.storage.cellgrpc.v1.CellStore/Has", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _CellStore_Put_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellStoreServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.ratewire.storage.cellgrpc.v1.CellStore/Put"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellStoreServer).Put(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _CellStore_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellStoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.ratewire.storage.cellgrpc.v1.CellStore/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellStoreServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _CellStore_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellStoreServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.ratewire.storage.cellgrpc.v1.CellStore/Has"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellStoreServer).Has(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// CellStore_ServiceDesc is the grpc.ServiceDesc for the CellStore service.
var CellStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.ratewire.storage.cellgrpc.v1.CellStore",
	HandlerType: (*CellStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: _CellStore_Put_Handler},
		{MethodName: "Get", Handler: _CellStore_Get_Handler},
		{MethodName: "Has", Handler: _CellStore_Has_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cellstore.proto",
}
