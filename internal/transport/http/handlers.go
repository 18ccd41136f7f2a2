package apihttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"flipview/internal/accumulator"
	"flipview/internal/engine"
	"flipview/internal/logger"
	"flipview/internal/query"

	"github.com/gin-gonic/gin"
)

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.reqTTL > 0 {
		return context.WithTimeout(c.Request.Context(), s.reqTTL)
	}
	return context.WithCancel(c.Request.Context())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePartitions(c *gin.Context) {
	keys, err := s.engine.Partitions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"partitions": keys,
		"indexed":    keys != nil,
		"missing":    s.engine.Loader().Cache().Entries(),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	keys, err := s.engine.RefreshIndex(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partitions": keys})
}

func (s *Server) handleQueryGet(c *gin.Context) {
	params := make(map[string]string)
	for name, vals := range c.Request.URL.Query() {
		if len(vals) > 0 {
			params[name] = vals[0]
		}
	}
	s.runQuery(c, c.Param("kind"), params)
}

func (s *Server) handleQueryPost(c *gin.Context) {
	var req struct {
		Kind   string         `json:"kind" binding:"required"`
		Params map[string]any `json:"params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params := make(map[string]string, len(req.Params))
	for k, v := range req.Params {
		if v == nil {
			continue
		}
		params[k] = fmt.Sprint(v)
	}
	s.runQuery(c, req.Kind, params)
}

func (s *Server) runQuery(c *gin.Context, kind string, params map[string]string) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	res, err := s.engine.Execute(ctx, kind, params)
	if errors.Is(err, engine.ErrNoDataAvailable) && res != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "result": res})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (s *Server) handleBrowseOpen(c *gin.Context) {
	var span query.DateSpan
	if err := c.ShouldBindJSON(&span); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	progress, err := s.engine.Browser().Open(c.Request.Context(), span)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

func (s *Server) handleBrowseMore(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	progress, err := s.engine.Browser().More(ctx)
	s.writeProgress(c, progress, err)
}

func (s *Server) handleBrowseAll(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	progress, err := s.engine.Browser().All(ctx)
	s.writeProgress(c, progress, err)
}

func (s *Server) handleBrowseReset(c *gin.Context) {
	b := s.engine.Browser()
	b.Reset()
	c.JSON(http.StatusOK, gin.H{"progress": b.Progress()})
}

func (s *Server) handleBrowseProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"progress": s.engine.Browser().Progress()})
}

func (s *Server) handleBrowseRecords(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer", "param": "offset"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer", "param": "limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": s.engine.Browser().Page(offset, limit)})
}

func (s *Server) writeProgress(c *gin.Context, progress accumulator.Progress, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

func writeError(c *gin.Context, err error) {
	var qerr *query.Error
	switch {
	case errors.As(err, &qerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": qerr.Message, "code": qerr.Code, "param": qerr.Param})
	case errors.Is(err, engine.ErrNoSession), errors.Is(err, accumulator.ErrStaleResult):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		logger.Errorf("[http] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
