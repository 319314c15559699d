// Package api exposes the wizard over HTTP. Handlers stay thin: they bind,
// schema-check, and delegate to the domain packages. Sessions are scoped by
// the X-Session-ID header.
package api

import (
	"net/http"
	"time"

	"funding-apply/internal/common/logger"
	"funding-apply/internal/docupload"
	"funding-apply/internal/draft"
	"funding-apply/internal/pipeline"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionHeader = "X-Session-ID"

// Server wires the HTTP surface to the domain packages.
type Server struct {
	store    *draft.Store
	saver    *draft.Saver
	pipe     *pipeline.Pipeline
	uploader *docupload.Uploader
	logger   logger.Logger
}

func NewServer(store *draft.Store, saver *draft.Saver, pipe *pipeline.Pipeline,
	uploader *docupload.Uploader, log logger.Logger) *Server {
	return &Server{
		store:    store,
		saver:    saver,
		pipe:     pipe,
		uploader: uploader,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Router builds the gin engine with CORS, health, and metrics endpoints.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsCfg.AllowOrigins = allowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, sessionHeader)
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(s.requireSession())
	{
		v1.GET("/draft", s.loadDraft)
		v1.POST("/draft", s.saveDraft)
		v1.DELETE("/draft", s.clearDraft)
		v1.POST("/steps/:step/validate", s.validateStep)
		v1.POST("/submit", s.submit)
		v1.POST("/documents", s.uploadDocuments)
	}
	return r
}

// requireSession rejects requests that carry no session id, since every
// endpoint under the group is session-scoped.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(sessionHeader) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "missing " + sessionHeader + " header",
			})
			return
		}
		c.Next()
	}
}

func session(c *gin.Context) string {
	return c.GetHeader(sessionHeader)
}
