package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"flipview/internal/engine"
	"flipview/internal/loader"
	"flipview/internal/logger"
	"flipview/internal/partition"
	"flipview/internal/strategy"

	"github.com/gin-gonic/gin"
)

// QueryEngine is what the API needs from engine.Engine.
type QueryEngine interface {
	Execute(ctx context.Context, kind string, params map[string]string) (*strategy.Result, error)
	Partitions(ctx context.Context) ([]partition.Key, error)
	RefreshIndex(ctx context.Context) ([]partition.Key, error)
	Browser() *engine.Browser
	Loader() *loader.Loader
}

// Server exposes the query engine over HTTP.
type Server struct {
	addr   string
	engine QueryEngine
	router *gin.Engine
	reqTTL time.Duration
}

type Config struct {
	Addr           string
	Engine         QueryEngine
	RequestTimeout time.Duration
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:   cfg.Addr,
		engine: cfg.Engine,
		router: router,
		reqTTL: cfg.RequestTimeout,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api")
	api.GET("/partitions", s.handlePartitions)
	api.POST("/partitions/refresh", s.handleRefresh)
	api.GET("/query/:kind", s.handleQueryGet)
	api.POST("/query", s.handleQueryPost)

	browse := api.Group("/browse")
	browse.POST("", s.handleBrowseOpen)
	browse.POST("/more", s.handleBrowseMore)
	browse.POST("/all", s.handleBrowseAll)
	browse.POST("/reset", s.handleBrowseReset)
	browse.GET("/progress", s.handleBrowseProgress)
	browse.GET("/records", s.handleBrowseRecords)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// requestLogger logs every request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[http] listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
