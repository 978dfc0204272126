package tfgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/kinemesh/frametf/internal/tfwire"
)

// TransformServer is the interface Server implements and cmd/tfd registers
// against a *grpc.Server via RegisterTransformServiceServer. It mirrors
// spec.md's core contract: ingest, point lookup, a non-throwing probe,
// and registry introspection.
type TransformServer interface {
	SetTransform(context.Context, *tfwire.Sample) (*tfwire.Ack, error)
	LookupTransform(context.Context, *tfwire.LookupRequest) (*tfwire.LookupReply, error)
	CanTransform(context.Context, *tfwire.LookupRequest) (*tfwire.CanTransformReply, error)
	AllFrames(context.Context, *Empty) (*tfwire.FramesReply, error)
}

// serviceDesc is the hand-rolled analogue of what protoc-gen-go-grpc
// would emit for a TransformService with these four RPCs. Handlers are
// wired directly to TransformServer rather than through a generated
// _TransformService_serviceDesc.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "tfgrpc.TransformService",
	HandlerType: (*TransformServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SetTransform",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(tfwire.Sample)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(TransformServer).SetTransform(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tfgrpc.TransformService/SetTransform"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(TransformServer).SetTransform(ctx, req.(*tfwire.Sample))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "LookupTransform",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(tfwire.LookupRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(TransformServer).LookupTransform(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tfgrpc.TransformService/LookupTransform"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(TransformServer).LookupTransform(ctx, req.(*tfwire.LookupRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "CanTransform",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(tfwire.LookupRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(TransformServer).CanTransform(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tfgrpc.TransformService/CanTransform"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(TransformServer).CanTransform(ctx, req.(*tfwire.LookupRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "AllFrames",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(Empty)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(TransformServer).AllFrames(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tfgrpc.TransformService/AllFrames"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(TransformServer).AllFrames(ctx, req.(*Empty))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Metadata: "tfgrpc/service.proto",
}

// RegisterTransformServiceServer registers impl against s using the
// tfwire codec. Callers must construct s with
// grpc.ForceServerCodec(Codec()) so the negotiated wire format matches.
func RegisterTransformServiceServer(s *grpc.Server, impl TransformServer) {
	s.RegisterService(&serviceDesc, impl)
}

// Codec returns the grpc codec tfgrpc servers and clients must share,
// via grpc.ForceServerCodec/grpc.ForceCodec.
func Codec() encoding.Codec { return codec{} }
