package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/heysubinoy/pyazkv/internal/api"
	"github.com/heysubinoy/pyazkv/pkg/kv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// remote is satisfied by both transports.
type remote interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) (string, error)
}

type grpcRemote struct{ c *api.KVClient }

func (r grpcRemote) Get(ctx context.Context, key string) (string, error) {
	return r.c.Get(ctx, key)
}

func (r grpcRemote) Set(ctx context.Context, key, value string) (string, error) {
	return r.c.Set(ctx, key, value)
}

type options struct {
	addr     string
	grpcAddr string
	timeout  time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "kv-cli",
		Short:         "Client for a pyazkv server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultAddr := os.Getenv("KV_ADDR")
	if defaultAddr == "" {
		defaultAddr = "http://127.0.0.1:3030"
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.addr, "addr", defaultAddr, "HTTP base URL of the server (env KV_ADDR)")
	pf.StringVar(&opts.grpcAddr, "grpc", "", "use gRPC at this host:port instead of HTTP")
	pf.DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")

	root.AddCommand(newGetCmd(opts), newPutCmd(opts))
	return root
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd.Context(), opts, func(ctx context.Context, r remote) error {
				value, err := r.Get(ctx, args[0])
				if errors.Is(err, kv.ErrNotFound) {
					return fmt.Errorf("key %q not found", args[0])
				}
				if err != nil {
					return fmt.Errorf("get failed: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func newPutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "put <key> <value>",
		Aliases: []string{"set"},
		Short:   "Store value under key",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd.Context(), opts, func(ctx context.Context, r remote) error {
				value, err := r.Set(ctx, args[0], args[1])
				if err != nil {
					return fmt.Errorf("put failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set '%s' = '%s'\n", args[0], value)
				return nil
			})
		},
	}
}

func withRemote(ctx context.Context, opts *options, fn func(context.Context, remote) error) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if opts.grpcAddr == "" {
		return fn(ctx, api.NewHTTPClient(opts.addr))
	}

	// Connect using passthrough resolver for direct address connection
	conn, err := grpc.NewClient("passthrough:///"+opts.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	return fn(ctx, grpcRemote{c: api.NewKVClient(conn)})
}
