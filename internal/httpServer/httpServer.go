package httpServer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/asset_tracker/config"
)

type HTTPServer struct {
	srv *http.Server
}

func New(cfg *config.Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

func (s *HTTPServer) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("error while srv.ListenAndServe", slog.String("err", err.Error()))
			panic(err)
		}
	}()
	slog.Info("http server started!", slog.String("addr", s.srv.Addr))
}

func (s *HTTPServer) Stop(ctx context.Context) {
	slog.Info("start stopping http server")
	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Error("error while srv.Shutdown", slog.String("err", err.Error()))
	}
	slog.Info("http server stopped")
}
