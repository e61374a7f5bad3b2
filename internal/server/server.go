// Package server binds the configured listeners around one shared store and
// runs them until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/heysubinoy/pyazkv/internal/api"
	"github.com/heysubinoy/pyazkv/internal/store"
	"github.com/heysubinoy/pyazkv/pkg/config"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

type Server struct {
	cfg    *config.Config
	logger hclog.Logger
	store  *store.InstrumentedStore

	httpSrv *http.Server
	httpLn  net.Listener

	grpcSrv *grpc.Server
	grpcLn  net.Listener

	metricsSrv *http.Server
	metricsLn  net.Listener
}

// Start creates the store and binds every enabled listener. Nothing is
// served until Run is called.
func Start(cfg *config.Config, logger hclog.Logger) (*Server, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		store:  store.NewInstrumentedStore(store.NewMemStore()),
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen http on %s: %w", cfg.HTTPAddr, err)
	}
	s.httpLn = ln
	s.httpSrv = &http.Server{
		Handler:           api.NewServer(s.store, logger.Named("http")).Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ErrorLog:          logger.Named("http").StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}

	if cfg.GRPCAddr != "" {
		ln, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			s.closeListeners()
			return nil, fmt.Errorf("listen grpc on %s: %w", cfg.GRPCAddr, err)
		}
		s.grpcLn = ln
		s.grpcSrv = api.NewGRPCTransport(api.NewGRPCServer(s.store, logger.Named("grpc")))
	}

	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			s.closeListeners()
			return nil, fmt.Errorf("listen metrics on %s: %w", cfg.MetricsAddr, err)
		}
		s.metricsLn = ln
		s.metricsSrv = &http.Server{
			Handler:           api.MetricsMux(s.store),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		}
	}

	return s, nil
}

// HTTPAddr returns the bound address of the data listener.
func (s *Server) HTTPAddr() string { return s.httpLn.Addr().String() }

// GRPCAddr returns the bound gRPC address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s.grpcLn == nil {
		return ""
	}
	return s.grpcLn.Addr().String()
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (s *Server) MetricsAddr() string {
	if s.metricsLn == nil {
		return ""
	}
	return s.metricsLn.Addr().String()
}

// Run serves until ctx is cancelled or a listener fails, then shuts every
// listener down within the configured timeout. Returns nil on a clean
// cancellation.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", s.HTTPAddr())
		if err := s.httpSrv.Serve(s.httpLn); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	if s.grpcSrv != nil {
		g.Go(func() error {
			s.logger.Info("gRPC server listening", "addr", s.GRPCAddr())
			if err := s.grpcSrv.Serve(s.grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve grpc: %w", err)
			}
			return nil
		})
	}

	if s.metricsSrv != nil {
		g.Go(func() error {
			s.logger.Info("metrics server listening", "addr", s.MetricsAddr())
			if err := s.metricsSrv.Serve(s.metricsLn); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}
	}
	if s.grpcSrv != nil {
		stopGRPC(ctx, s.grpcSrv)
	}
	return errors.Join(errs...)
}

// stopGRPC drains in-flight RPCs, forcing a stop once ctx expires.
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}

func (s *Server) closeListeners() {
	for _, ln := range []net.Listener{s.httpLn, s.grpcLn, s.metricsLn} {
		if ln != nil {
			ln.Close()
		}
	}
}
