package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shouni/vibe-wallpaper/internal/config"
	"github.com/shouni/vibe-wallpaper/internal/metrics"
	"github.com/shouni/vibe-wallpaper/internal/server/sse"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

// keepAliveInterval は SSE のコメント送信間隔です。
const keepAliveInterval = 25 * time.Second

// Server は Orchestrator を HTTP/JSON と SSE で公開します。
type Server struct {
	cfg      config.ServerConfig
	orch     *session.Orchestrator
	hub      *sse.Hub
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	log      *slog.Logger

	engine      *gin.Engine
	unsubscribe func()
}

// Option は Server の任意設定です。
type Option func(*Server)

// WithMetrics は計測と /metrics の公開元を設定します。
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithLogger はリクエストログの出力先を設定します。
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New は Server を組み立て、状態変化を SSE へ中継する購読を開始します。
func New(cfg config.ServerConfig, orch *session.Orchestrator, opts ...Option) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	s := &Server{
		cfg:  cfg,
		orch: orch,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hub = sse.NewHub(func(n int) {
		if s.metrics != nil {
			s.metrics.EventStreamSubscribers.Set(float64(n))
		}
	})
	s.unsubscribe = orch.Subscribe(func(st session.State) {
		payload, err := json.Marshal(newStateView(st))
		if err != nil {
			s.log.Error("状態のエンコードに失敗しました", "error", err)
			return
		}
		s.hub.Publish(payload)
	})
	s.engine = s.routes()
	return s, nil
}

// Handler は http.Handler を返します。
func (s *Server) Handler() http.Handler { return s.engine }

// Close は Orchestrator の購読を解除します。
func (s *Server) Close() { s.unsubscribe() }

// Run は ctx がキャンセルされるまで待ち受け、その後グレースフルに停止します。
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP サーバーを起動します", "address", s.cfg.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.log.Info("HTTP サーバーを停止します")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
