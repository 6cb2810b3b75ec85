// Package server 提供HTTP服务：Prometheus指标暴露、健康检查、最新 item 查询。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/logger"
	"github.com/varnish-agent/pkg/report"
)

// ItemSource 最新上报数据的只读视图
type ItemSource interface {
	Snapshot() []report.Data
}

// Server HTTP服务实例，封装核心依赖和配置
type Server struct {
	cfg      *config.ServerConfig
	version  string
	gatherer prometheus.Gatherer
	items    ItemSource
	server   *http.Server
	mux      *customMux

	mu       sync.Mutex
	listener net.Listener
}

// statusWriter 包装ResponseWriter，捕获状态码
type statusWriter struct {
	http.ResponseWriter
	status int
}

// customMux 自定义Mux，兼容原生用法并记录路由
type customMux struct {
	http.ServeMux
	routes []string
	mu     sync.Mutex
}

const defaultShutdownTimeout = 5 * time.Second

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
	<meta charset="UTF-8">
	<title>Varnish Agent</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		h1 { color: #333; }
		a { display: block; margin: 8px 0; font-size: 18px; }
		code { background-color: #f0f0f0; padding: 2px 4px; }
	</style>
</head>
<body>
	<h1>Varnish Agent</h1>
	<p>Version: <code>{{.Version}}</code></p>
	<p>Service is running.</p>
	<h2>Available Endpoints:</h2>
	<a href="/health">/health - 健康检查</a>
	<a href="/metrics">/metrics - Prometheus 指标暴露</a>
	<a href="/items">/items - 最新上报 item（JSON）</a>
</body>
</html>
`))

// Handle 重写Handle，注册路由时记录路径
func (m *customMux) Handle(pattern string, handler http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, route := range m.routes {
		if route == pattern {
			m.ServeMux.Handle(pattern, handler)
			return
		}
	}

	m.routes = append(m.routes, pattern)
	m.ServeMux.Handle(pattern, handler)
}

// HandleFunc 重写HandleFunc
func (m *customMux) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	m.Handle(pattern, http.HandlerFunc(handler))
}

// NewHTTPServer 创建HTTP服务实例
func NewHTTPServer(cfg *config.ServerConfig, version string, gatherer prometheus.Gatherer, items ItemSource) *Server {
	mux := &customMux{}

	srv := &Server{
		cfg:      cfg,
		version:  version,
		gatherer: gatherer,
		items:    items,
		mux:      mux,
	}

	// 注册核心端点
	srv.registerEndpoints()

	srv.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.logMiddleware(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return srv
}

// Handler 供测试直接调用
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// logMiddleware 统一日志记录
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Debug(
			"HTTP request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// registerEndpoints 注册核心路由
func (s *Server) registerEndpoints() {
	// 根路径 / 显示 HTML 页面，包含可点击的链接
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = indexTemplate.Execute(w, struct{ Version string }{s.version})
	})

	// /metrics 端点
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logger.GetGlobalLogger()),
	}))

	// /health 端点
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// /items 端点：每个 (host, key) 的最新值
	s.mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		items := s.items.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(items); err != nil {
			logger.Warn("encode items failed", zap.Error(err))
		}
	})
}

// WriteHeader 捕获状态码
func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Start 同步监听端口后在后台提供服务，端口占用等错误直接返回
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.Info(
		"starting HTTP server",
		zap.String("listen_addr", ln.Addr().String()),
		zap.Strings("handle_funcs", s.mux.routes),
	)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr 实际监听地址（配置端口为 0 时有用）
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown 优雅关闭HTTP服务
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("shutdown timeout exceeded")
			return nil
		}
		logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("HTTP server shutdown successfully")
	return nil
}
