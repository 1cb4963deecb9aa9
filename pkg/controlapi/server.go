package controlapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rina-go/rinad/internal/logger"
	"github.com/rina-go/rinad/pkg/config"
	"github.com/rina-go/rinad/pkg/controlapi/auth"
	"github.com/rina-go/rinad/pkg/controlapi/wire"
	"github.com/rina-go/rinad/pkg/kipcm"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Server runs both halves of the control-plane surface: the gRPC
// ControlService and the chi JSON façade, started and stopped together,
// mirroring dittofs's pkg/controlplane/api.Server Start/Stop/
// shutdownOnce shape.
type Server struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	grpcAddr   string

	shutdownOnce sync.Once
}

// NewServer wires ops behind both transports. An empty cfg.JWTSecret
// leaves the façade without an auth service, which disables session
// enforcement on the HTTP façade entirely (useful for
// loopback development); the gRPC service carries no auth of its own —
// it is intended for a trusted IPC-manager peer on a private control
// network, the same trust boundary the kernel's control device assumes.
func NewServer(cfg config.ControlAPIConfig, k *kipcm.KIPCM) (*Server, error) {
	ops := NewOps(k)

	var authSvc *auth.Service
	if cfg.JWTSecret != "" {
		svc, err := auth.NewService(cfg.JWTSecret, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("controlapi: %w", err)
		}
		authSvc = svc
	}

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(encodingCodec()))
	grpcServer.RegisterService(&ServiceDesc, NewGRPCService(ops))

	var handler http.Handler = NewRouter(ops, authSvc)
	if cfg.MaxPDUSize > 0 {
		handler = http.MaxBytesHandler(handler, int64(cfg.MaxPDUSize))
	}
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddress,
		Handler: handler,
	}

	return &Server{
		grpcServer: grpcServer,
		httpServer: httpServer,
		grpcAddr:   cfg.GRPCAddress,
	}, nil
}

func encodingCodec() encoding.Codec {
	return encoding.GetCodec(wire.CodecName)
}

// Start runs both listeners until ctx is cancelled, then shuts both
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("controlapi: grpc listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("controlapi grpc server listening", "addr", s.grpcAddr)
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("controlapi: grpc serve: %w", err)
		}
	}()
	go func() {
		logger.Info("controlapi http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("controlapi: http serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Stop gracefully shuts both servers down. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("controlapi: http shutdown: %w", err)
		}
		logger.Info("controlapi server stopped")
	})
	return shutdownErr
}
