package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
)

const ctxKeyUser = "user"

// RateCounter counts events per key in fixed windows
type RateCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// requestLogger attaches a request scoped logger to the request context and logs
// every request when it completes
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		logger := logging.Default().With("request_id", uuid.NewString())
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), logger))

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		if v, ok := c.Get(ctxKeyUser); ok {
			if user, ok := v.(*model.User); ok {
				attrs = append(attrs, "user_id", user.ID)
			}
		}
		logger.Info("request", attrs...)
	}
}

// recovery turns panics into a 500 JSON response
func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.From(c.Request.Context()).Error("panic in handler",
			"error", goerr.New("panic recovered", goerr.V("recovered", recovered)),
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": model.PublicMessage(nil)})
	})
}

// requireSession rejects requests without a valid bearer token. It lets every request
// through when no session issuer is configured.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.issuer == nil {
			c.Next()
			return
		}

		claims, err := s.issuer.Parse(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			s.abortWithError(c, err)
			return
		}

		c.Set(ctxKeyUser, claims.User())
		c.Next()
	}
}

// rateLimit limits password checks per client IP. Login and password change share one
// counter. Counter failures let the request through.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.counter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		count, err := s.counter.Incr(ctx, "auth:"+c.ClientIP(), s.loginWindow)
		if err != nil {
			logging.From(ctx).Warn("rate limit counter failed", "error", err)
			c.Next()
			return
		}

		if count > s.loginLimit {
			logging.From(ctx).Warn("auth rate limit exceeded", "ip", c.ClientIP(), "count", count)
			c.Header("Retry-After", strconv.Itoa(int(s.loginWindow.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Please try again later."})
			return
		}

		c.Next()
	}
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return ""
}
