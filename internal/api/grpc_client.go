package api

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/heysubinoy/pyazkv/pkg/kv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// KVClient is a client for the pyazkv.KV service. Errors are translated
// back into the kv error taxonomy.
type KVClient struct {
	cc grpc.ClientConnInterface
}

func NewKVClient(cc grpc.ClientConnInterface) *KVClient {
	return &KVClient{cc: cc}
}

func (c *KVClient) Get(ctx context.Context, key string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, kvGetMethod, wrapperspb.String(key), out, opts...); err != nil {
		return "", fromStatus(err)
	}
	return out.GetValue(), nil
}

// Set stores value under key and returns the value echoed by the server.
func (c *KVClient) Set(ctx context.Context, key, value string, opts ...grpc.CallOption) (string, error) {
	if !utf8.ValidString(value) {
		return "", kv.ErrInvalidEncoding
	}
	in, err := structpb.NewStruct(map[string]interface{}{
		"key":   key,
		"value": value,
	})
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, kvSetMethod, in, out, opts...); err != nil {
		return "", fromStatus(err)
	}
	return out.GetValue(), nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return kv.ErrNotFound
	case codes.InvalidArgument:
		for _, e := range []error{kv.ErrEmptyKey, kv.ErrInvalidEncoding} {
			if st.Message() == e.Error() {
				return e
			}
		}
	case codes.Internal:
		return fmt.Errorf("%w: %s", kv.ErrInternal, st.Message())
	}
	return err
}
