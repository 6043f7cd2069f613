package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mmdsgate.v1.Translator"

// Full method names.
const (
	TranslateMethod = "/" + ServiceName + "/Translate"
	CountersMethod  = "/" + ServiceName + "/Counters"
)

// TranslatorServer is the server API for the translator service.
type TranslatorServer interface {
	Translate(context.Context, *TranslateRequest) (*TranslateResponse, error)
	Counters(context.Context, *CountersRequest) (*CountersResponse, error)
}

// RegisterTranslatorServer registers srv on s.
func RegisterTranslatorServer(s grpc.ServiceRegistrar, srv TranslatorServer) {
	s.RegisterService(&TranslatorServiceDesc, srv)
}

// TranslatorServiceDesc describes the translator service for grpc.Server.
var TranslatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranslatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Translate", Handler: translateHandler},
		{MethodName: "Counters", Handler: countersHandler},
	},
	Metadata: "mmdsgate/v1/translator",
}

func translateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TranslateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslatorServer).Translate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TranslateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranslatorServer).Translate(ctx, req.(*TranslateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func countersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CountersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslatorServer).Counters(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CountersMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranslatorServer).Counters(ctx, req.(*CountersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TranslatorClient calls the translator service over the JSON codec.
type TranslatorClient struct {
	cc grpc.ClientConnInterface
}

// NewTranslatorClient returns a client using cc.
func NewTranslatorClient(cc grpc.ClientConnInterface) *TranslatorClient {
	return &TranslatorClient{cc: cc}
}

// Translate calls the Translate RPC.
func (c *TranslatorClient) Translate(ctx context.Context, in *TranslateRequest, opts ...grpc.CallOption) (*TranslateResponse, error) {
	out := new(TranslateResponse)
	if err := c.cc.Invoke(ctx, TranslateMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// Counters calls the Counters RPC.
func (c *TranslatorClient) Counters(ctx context.Context, in *CountersRequest, opts ...grpc.CallOption) (*CountersResponse, error) {
	out := new(CountersResponse)
	if err := c.cc.Invoke(ctx, CountersMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TranslatorClient) callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
