// Package api 暴露给页面侧脚本使用的 HTTP 接口：匹配作者、链接单个作者页。
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/John-Robertt/absauthor/internal/app/run"
	"github.com/John-Robertt/absauthor/internal/logging"
)

// maxBodyBytes 限制请求体大小（接口只接收很小的 JSON）。
const maxBodyBytes = 64 * 1024

// Server 持有处理请求所需的 Pipeline。
type Server struct {
	Pipeline *run.Pipeline
	Log      *slog.Logger
}

// NewRouter 构造路由：
//
//	GET  /healthz
//	POST /api/resolve {"candidates": [...]}
//	POST /api/link    {"url": "...", "apply": false}
//	POST /api/directory/refresh
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger()))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.HealthHandler)
	r.Route("/api", func(r chi.Router) {
		r.Post("/resolve", s.ResolveHandler)
		r.Post("/link", s.LinkHandler)
		r.Post("/directory/refresh", s.RefreshHandler)
	})
	return r
}

func (s *Server) logger() *slog.Logger {
	if s.Log == nil {
		return logging.NewNop()
	}
	return s.Log
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("dur", time.Since(started)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
