// Package web is the http front end: the entry page, the conversion
// endpoint and the download endpoint.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robertkozin/wizardconvert/archive"
	"github.com/robertkozin/wizardconvert/convert"
	"github.com/robertkozin/wizardconvert/workdir"
)

type Converter interface {
	Convert(ctx context.Context, req convert.Request) (convert.Result, error)
}

// Archive is satisfied by *archive.Mirror.
type Archive interface {
	Put(ctx context.Context, entry archive.Entry, path string) error
	Get(ctx context.Context, id string) (archive.Manifest, io.ReadCloser, error)
}

type Server struct {
	Converter Converter
	Workdirs  workdir.Store
	Sessions  SessionStore
	Archive   Archive // optional
	Logger    *slog.Logger
}

type response struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ConversionID string `json:"conversion_id,omitempty"`
	Title        string `json:"title,omitempty"`
}

func errorResponse(message string) response {
	return response{Status: "error", Message: message}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(indexTemplate)

	r.Use(requestLogger(s.Logger))
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		s.Logger.Error("panic serving request", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(msgInternal))
	}))
	r.Use(s.Sessions.Middleware())

	r.GET("/", s.index)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/convert", s.convert)
	r.GET("/download/:id", s.download)

	r.NoRoute(func(c *gin.Context) {
		s.renderIndex(c, http.StatusNotFound)
	})

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}
