// Package server はセッション単位の作業状態を JSON API として公開します。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/forge"
	"golang.org/x/time/rate"
)

const (
	// DefaultAddr は既定の待ち受けアドレスです。
	DefaultAddr = "localhost:8080"
	// DefaultSessionTTL は最後のアクセスからセッションを破棄するまでの時間です。
	DefaultSessionTTL = 2 * time.Hour
	// DefaultRateInterval は生成リクエストを受け付ける最短間隔です。
	DefaultRateInterval = 2 * time.Second

	ReadTimeout     = 30 * time.Second
	WriteTimeout    = 30 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 30 * time.Second

	// MaxRequestBodySize は JSON リクエスト本文の上限です。data URI を含むため大きめにしています。
	MaxRequestBodySize = 64 << 20
	// MaxUploadMemory は multipart 解析時にメモリへ載せる上限です。
	MaxUploadMemory = 32 << 20

	// SessionHeader はセッション ID を運ぶヘッダー名です。
	SessionHeader = "X-Session-ID"
)

// SessionFactory は新しいセッションを作ります。
type SessionFactory func() *forge.Session

// Config はサーバーの設定です。ゼロ値の項目は既定値になります。
type Config struct {
	Addr         string
	SessionTTL   time.Duration
	RateInterval time.Duration
	RateBurst    int
	// Defaults は /api/options で返す初期値です。ゼロ値なら domain.DefaultParams です。
	Defaults     domain.GenerationParams
}

// Server は HTTP API サーバーです。
type Server struct {
	addr       string
	server     *http.Server
	sessions   *cache.Cache
	newSession SessionFactory
	limiter    *rate.Limiter
	defaults   domain.GenerationParams
	now        func() time.Time
}

// NewServer は Server を生成します。
func NewServer(cfg Config, factory SessionFactory) (*Server, error) {
	if factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.RateInterval <= 0 {
		cfg.RateInterval = DefaultRateInterval
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 2
	}

	s := &Server{
		addr:       cfg.Addr,
		sessions:   cache.New(cfg.SessionTTL, cfg.SessionTTL/2),
		newSession: factory,
		limiter:    rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.RateBurst),
		defaults:   cfg.Defaults.WithDefaults(domain.DefaultParams()),
		now:        time.Now,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
	return s, nil
}

// Handler はルーティング済みのハンドラーを返します。
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.HandleFunc("GET /api/options", s.handleOptions)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions", s.withSession(s.handleDeleteSession))
	mux.HandleFunc("GET /api/state", s.withSession(s.handleState))

	mux.HandleFunc("POST /api/references", s.withSession(s.handleAddReferences))
	mux.HandleFunc("DELETE /api/references/{id}", s.withSession(s.handleRemoveReference))

	mux.HandleFunc("PUT /api/params", s.withSession(s.handleSetParams))
	mux.HandleFunc("PATCH /api/params", s.withSession(s.handlePatchParams))

	mux.HandleFunc("POST /api/generate", s.withSession(s.handleGenerate))
	mux.HandleFunc("DELETE /api/error", s.withSession(s.handleDismissError))

	mux.HandleFunc("POST /api/history/{id}/select", s.withSession(s.handleSelectHistory))
	mux.HandleFunc("GET /api/history/{id}/image", s.withSession(s.handleHistoryImage))
	mux.HandleFunc("GET /api/export", s.withSession(s.handleExport))
}

// ListenAndServe は ctx がキャンセルされるまでサーバーを動かし、終了時は穏やかに停止します。
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("サーバーを起動しました", "addr", "http://"+s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("サーバーを停止しています...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		slog.Info("サーバーを停止しました")
		return nil

	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}
