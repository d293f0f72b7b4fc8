package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region service-desc
// ServiceName is the fully qualified gRPC service name. Payloads use the
// well-known wrapper messages: CSV bytes in, artifact bytes out and back.
const ServiceName = "baler.codec.v1.Codec"

const (
	methodCompress   = "/" + ServiceName + "/Compress"
	methodDecompress = "/" + ServiceName + "/Decompress"
	methodInfo       = "/" + ServiceName + "/Info"
)

// CodecServiceServer is implemented by Server.
type CodecServiceServer interface {
	Compress(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Decompress(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Info(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes the codec service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodecServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compress", Handler: compressHandler},
		{MethodName: "Decompress", Handler: decompressHandler},
		{MethodName: "Info", Handler: infoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "baler/codec/v1/codec.proto",
}

func compressHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServiceServer).Compress(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCompress}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CodecServiceServer).Compress(ctx, req.(*wrapperspb.BytesValue))
	})
}

func decompressHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServiceServer).Decompress(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDecompress}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CodecServiceServer).Decompress(ctx, req.(*wrapperspb.BytesValue))
	})
}

func infoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServiceServer).Info(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodInfo}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CodecServiceServer).Info(ctx, req.(*emptypb.Empty))
	})
}

// #endregion service-desc

// #region service-client
// CodecServiceClient is the client side of the codec service.
type CodecServiceClient interface {
	Compress(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Decompress(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Info(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type codecServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCodecServiceClient binds the codec service to a connection.
func NewCodecServiceClient(cc grpc.ClientConnInterface) CodecServiceClient {
	return &codecServiceClient{cc: cc}
}

func (c *codecServiceClient) Compress(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodCompress, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *codecServiceClient) Decompress(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodDecompress, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *codecServiceClient) Info(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodInfo, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion service-client
