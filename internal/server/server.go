// Package server exposes the orchestrator over HTTP: server-rendered forms
// with urlencoded posts, a JSON submit API, layouts and Link lookups.
package server

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jalsampada/go-frappeforms/pkg/failure"
	"github.com/jalsampada/go-frappeforms/pkg/logger"
	"github.com/jalsampada/go-frappeforms/pkg/orchestrator"
)

const (
	defaultFormsPath  = "/forms"
	defaultAPIPath    = "/api"
	defaultAssetsPath = "/assets"
)

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithFormsPath sets the prefix HTML forms are served under. It must match
// the orchestrator's forms path.
func WithFormsPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.formsPath = strings.TrimRight(path, "/")
		}
	}
}

// WithAssets serves fsys (the browser runtime) under path.
func WithAssets(path string, fsys fs.FS) Option {
	return func(s *Server) {
		if path != "" {
			s.assetsPath = strings.TrimRight(path, "/")
		}
		s.assets = fsys
	}
}

// Server routes HTTP requests to an Orchestrator.
type Server struct {
	orch       *orchestrator.Orchestrator
	engine     *gin.Engine
	log        *logger.Logger
	formsPath  string
	assetsPath string
	assets     fs.FS
}

// New builds the gin engine and registers every route.
func New(orch *orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:       orch,
		formsPath:  defaultFormsPath,
		assetsPath: defaultAssetsPath,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.log = logger.OrNop(s.log).WithComponent("server")

	engine := gin.New()
	engine.Use(RequestID(s.log), AccessLog(s.log), Recovery())
	s.engine = engine
	s.routes()
	return s
}

// LinkEndpoint is the path Link inputs query; pass it to
// orchestrator.WithPaths.
func LinkEndpoint() string {
	return defaultAPIPath + "/link"
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.healthz)

	forms := s.engine.Group(s.formsPath)
	forms.GET("/:doctype/:name", s.showForm)
	forms.POST("/:doctype", s.submitForm)
	forms.POST("/:doctype/:name", s.submitForm)
	forms.POST("/:doctype/:name/delete", s.deleteForm)

	api := s.engine.Group(defaultAPIPath)
	api.GET("/layouts", s.listLayouts)
	api.GET("/layouts/:doctype", s.showLayout)
	api.GET("/link/:doctype", s.searchLink)
	api.POST("/forms/:doctype", s.submitJSON)
	api.POST("/forms/:doctype/:name", s.submitJSON)

	if s.assets != nil {
		s.engine.StaticFS(s.assetsPath, http.FS(s.assets))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer wraps the handler in an *http.Server with the given timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail answers err as JSON. Unknown doctypes are 404; everything else is
// classified.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, orchestrator.ErrUnknownDoctype) {
		c.JSON(http.StatusNotFound, &failure.Failure{Kind: failure.KindUnknown, Detail: err.Error()})
		return
	}
	f := failure.Classify(err)
	c.JSON(f.HTTPStatus(), f)
}
