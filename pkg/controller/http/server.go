package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/newsdesk/pkg/interfaces"
	"github.com/m-mizutani/newsdesk/pkg/service/session"
)

const (
	DefaultLoginLimit  = 10
	DefaultLoginWindow = time.Minute
)

// Server is the JSON HTTP API in front of the article and auth use cases
type Server struct {
	router   *gin.Engine
	articles interfaces.ArticleUseCase
	auth     interfaces.AuthGateway

	basePath     string
	issuer       *session.Issuer
	counter      RateCounter
	loginLimit   int64
	loginWindow  time.Duration
	allowOrigins []string
	mcp          http.Handler
}

type Option func(*Server)

// WithBasePath mounts the API routes under path, e.g. "/api"
func WithBasePath(path string) Option {
	return func(s *Server) {
		s.basePath = path
	}
}

// WithSession requires a bearer token issued by issuer on article and MCP routes and
// returns a token on login
func WithSession(issuer *session.Issuer) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

// WithLoginRateLimit limits password checks (login and password change) per client IP
// to limit per window
func WithLoginRateLimit(counter RateCounter, limit int, window time.Duration) Option {
	return func(s *Server) {
		s.counter = counter
		if limit > 0 {
			s.loginLimit = int64(limit)
		}
		if window > 0 {
			s.loginWindow = window
		}
	}
}

// WithAllowOrigins enables CORS for the given origins. "*" allows any origin.
func WithAllowOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowOrigins = append(s.allowOrigins, origins...)
	}
}

// WithMCP serves handler at /mcp
func WithMCP(handler http.Handler) Option {
	return func(s *Server) {
		s.mcp = handler
	}
}

// New creates the HTTP server
func New(articles interfaces.ArticleUseCase, auth interfaces.AuthGateway, opts ...Option) *Server {
	s := &Server{
		articles:    articles,
		auth:        auth,
		loginLimit:  DefaultLoginLimit,
		loginWindow: DefaultLoginWindow,
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(), requestLogger())

	if len(s.allowOrigins) > 0 {
		r.Use(cors.New(s.corsConfig()))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.mcp != nil {
		r.Any("/mcp", s.requireSession(), gin.WrapH(s.mcp))
	}

	api := r.Group(s.basePath)
	api.POST("/auth", s.rateLimit(), s.login)
	api.PUT("/auth", s.rateLimit(), s.changePassword)

	protected := api.Group("", s.requireSession())
	protected.GET("/articles", s.listArticles)
	protected.POST("/articles", s.saveArticle)
	protected.DELETE("/articles", s.deleteArticle)
	protected.POST("/generate", s.generate)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Mcp-Session-Id"},
		ExposeHeaders: []string{"Content-Length", "Mcp-Session-Id"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range s.allowOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}

	cfg.AllowOrigins = s.allowOrigins
	cfg.AllowCredentials = true
	return cfg
}
