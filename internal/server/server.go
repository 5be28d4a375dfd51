// Package server は HTTP / gRPC / metrics の各リスナを起動し、まとめて止める。
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hijjiri/todo-api/internal/config"
	httpadapter "github.com/hijjiri/todo-api/internal/interface/http"
	grpcadapter "github.com/hijjiri/todo-api/internal/interface/grpc"
	"github.com/hijjiri/todo-api/internal/observability"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

type Server struct {
	cfg    config.Config
	logger *zap.Logger

	httpSrv    *http.Server
	grpcSrv    *grpc.Server
	healthSrv  *health.Server
	metricsSrv *http.Server

	httpLis    net.Listener
	grpcLis    net.Listener
	metricsLis net.Listener
}

// New は設定に従って各サーバを組み立てる。"off" のリスナは作らない。
func New(cfg config.Config, uc todo_usecase.Usecase, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	s := &Server{cfg: cfg, logger: logger}

	if config.Enabled(cfg.HTTPAddr) {
		s.httpSrv = &http.Server{
			Handler: httpadapter.NewRouter(uc, httpadapter.Options{
				Logger:         logger,
				Observer:       metrics,
				RequestTimeout: cfg.RequestTimeout,
			}),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}

	if config.Enabled(cfg.GRPCAddr) {
		s.grpcSrv, s.healthSrv = grpcadapter.NewServer(uc, grpcadapter.ServerOptions{
			Logger:         logger,
			Observer:       metrics,
			RequestTimeout: cfg.RequestTimeout,
		})
	}

	if config.Enabled(cfg.MetricsAddr) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		s.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	return s
}

// Listen は有効なリスナをすべて開く。途中で失敗したら開いた分は閉じる。
func (s *Server) Listen() error {
	var err error
	if s.httpSrv != nil {
		if s.httpLis, err = net.Listen("tcp", s.cfg.HTTPAddr); err != nil {
			return s.listenFailed("http", s.cfg.HTTPAddr, err)
		}
	}
	if s.grpcSrv != nil {
		if s.grpcLis, err = net.Listen("tcp", s.cfg.GRPCAddr); err != nil {
			return s.listenFailed("grpc", s.cfg.GRPCAddr, err)
		}
	}
	if s.metricsSrv != nil {
		if s.metricsLis, err = net.Listen("tcp", s.cfg.MetricsAddr); err != nil {
			return s.listenFailed("metrics", s.cfg.MetricsAddr, err)
		}
	}
	return nil
}

func (s *Server) listenFailed(kind, addr string, err error) error {
	for _, l := range []net.Listener{s.httpLis, s.grpcLis, s.metricsLis} {
		if l != nil {
			_ = l.Close()
		}
	}
	return fmt.Errorf("listen %s on %s: %w", kind, addr, err)
}

// HTTPAddr は実際に bind したアドレス（":0" 指定時のテスト用）。
func (s *Server) HTTPAddr() string { return addrOf(s.httpLis) }

func (s *Server) GRPCAddr() string { return addrOf(s.grpcLis) }

func (s *Server) MetricsAddr() string { return addrOf(s.metricsLis) }

func addrOf(l net.Listener) string {
	if l == nil {
		return ""
	}
	return l.Addr().String()
}

// Serve は ctx が終わるか、どれかのサーバが落ちるまでブロックし、
// その後 ShutdownTimeout 以内で graceful に止める。
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 3)

	if s.httpLis != nil {
		s.logger.Info("HTTP server is starting", zap.String("addr", s.HTTPAddr()))
		go func() {
			if err := s.httpSrv.Serve(s.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}
	if s.grpcLis != nil {
		s.logger.Info("gRPC server is starting", zap.String("addr", s.GRPCAddr()))
		go func() {
			if err := s.grpcSrv.Serve(s.grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}
	if s.metricsLis != nil {
		s.logger.Info("metrics server started", zap.String("addr", s.MetricsAddr()))
		go func() {
			if err := s.metricsSrv.Serve(s.metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		s.logger.Error("server exited with error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	return errors.Join(runErr, s.shutdown(shutdownCtx))
}

// Run は Listen と Serve をまとめて呼ぶ。
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) shutdown(ctx context.Context) error {
	var errs []error

	// 先に NOT_SERVING にして LB から外してもらう
	if s.healthSrv != nil {
		s.healthSrv.Shutdown()
	}

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}

	if s.grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			s.grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("gRPC graceful stop timed out, forcing stop")
			s.grpcSrv.Stop()
			<-done
		}
	}

	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
		}
	}

	s.logger.Info("servers stopped")
	return errors.Join(errs...)
}
