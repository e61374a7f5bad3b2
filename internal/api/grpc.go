package api

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"github.com/heysubinoy/pyazkv/pkg/kv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	kvServiceName = "pyazkv.KV"
	kvGetMethod   = "/" + kvServiceName + "/Get"
	kvSetMethod   = "/" + kvServiceName + "/Set"
)

// KVServer is the server API for the pyazkv.KV service.
//
// Messages are protobuf well-known types: Get takes the key as a
// StringValue, Set takes a Struct with string fields "key" and "value".
// Both return the value as a StringValue.
type KVServer interface {
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Set(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

// RegisterKVServer registers srv on s.
func RegisterKVServer(s grpc.ServiceRegistrar, srv KVServer) {
	s.RegisterService(&kvServiceDesc, srv)
}

var kvServiceDesc = grpc.ServiceDesc{
	ServiceName: kvServiceName,
	HandlerType: (*KVServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: kvGetHandler},
		{MethodName: "Set", Handler: kvSetHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pyazkv/kv.proto",
}

func kvGetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: kvGetMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func kvSetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: kvSetMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVServer).Set(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCServer implements KVServer on top of a kv.Store.
type GRPCServer struct {
	Store  kv.Store
	Logger hclog.Logger
}

var _ KVServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC service with the given store.
func NewGRPCServer(store kv.Store, logger hclog.Logger) *GRPCServer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GRPCServer{
		Store:  store,
		Logger: logger,
	}
}

// NewGRPCTransport returns a grpc.Server with svc registered and panics
// recovered into codes.Internal.
func NewGRPCTransport(svc *GRPCServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(RecoveryInterceptor(svc.Logger)))
	s := grpc.NewServer(opts...)
	RegisterKVServer(s, svc)
	return s
}

// Get retrieves a value by key.
func (s *GRPCServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	key := req.GetValue()
	if key == "" {
		return nil, s.statusError(kv.ErrEmptyKey)
	}

	value, err := s.Store.Get(key)
	if err != nil {
		return nil, s.statusError(err)
	}
	return wrapperspb.String(value), nil
}

// Set stores a key-value pair and echoes the value.
func (s *GRPCServer) Set(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	key := fields["key"].GetStringValue()
	if key == "" {
		return nil, s.statusError(kv.ErrEmptyKey)
	}
	v, ok := fields["value"].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "value must be a string")
	}
	if !utf8.ValidString(v.StringValue) {
		return nil, s.statusError(kv.ErrInvalidEncoding)
	}

	if err := s.Store.Set(key, v.StringValue); err != nil {
		return nil, s.statusError(err)
	}
	s.Logger.Info("setting data", "key", key, "bytes", len(v.StringValue))
	return wrapperspb.String(v.StringValue), nil
}

// CodeFor maps an error from the kv taxonomy to a gRPC status code.
func CodeFor(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, kv.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, kv.ErrInvalidEncoding), errors.Is(err, kv.ErrEmptyKey):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

func (s *GRPCServer) statusError(err error) error {
	code := CodeFor(err)
	if code == codes.Internal {
		s.Logger.Error("rpc failed", "error", err)
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(logger hclog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic serving rpc", "method", info.FullMethod, "panic", fmt.Sprint(p))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
