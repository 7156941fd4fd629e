// Package middleware provides gin middleware for the balance API.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"balance-ledger/internal/pkg/auth"
)

// Context keys set by the middleware.
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyRole      = "role"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Allower decides whether a client may make another request.
type Allower interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"status": false, "message": message})
}

// RequestID assigns each request an id, reusing a well-formed inbound one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(KeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logger writes one access log line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}

		event.
			Str("request_id", c.GetString(KeyRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int64("user_id", c.GetInt64(KeyUserID)).
			Msg("HTTP request")
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", c.GetString(KeyRequestID)).
					Str("path", c.Request.URL.Path).
					Msg("Recovered from panic in handler")
				abort(c, http.StatusInternalServerError, "internal error")
			}
		}()
		c.Next()
	}
}

// bearerClaims validates the Authorization header. On failure it returns the
// message to send with a 401.
func bearerClaims(c *gin.Context, validator TokenValidator) (*auth.Claims, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, "authorization header required"
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, "invalid authorization format"
	}

	claims, err := validator.Validate(token)
	if err != nil {
		return nil, "invalid or expired token"
	}
	return claims, ""
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(KeyUserID, claims.UserID)
	c.Set(KeyRole, claims.Role)
}

// Identify stores the caller's user id and role when the request carries a
// valid bearer token. It never rejects a request; Auth does that.
func Identify(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _ := bearerClaims(c, validator); claims != nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// Auth requires a valid bearer token and stores its user id and role.
// A request already identified by Identify is not validated twice.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(KeyUserID); ok {
			c.Next()
			return
		}

		claims, message := bearerClaims(c, validator)
		if claims == nil {
			abort(c, http.StatusUnauthorized, message)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RequireRole rejects authenticated callers without the given role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(KeyRole) != role {
			log.Warn().
				Int64("user_id", c.GetInt64(KeyUserID)).
				Str("path", c.FullPath()).
				Msg("Caller lacks required role")
			abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// RateLimit limits requests per identified user, or per client IP when the
// request carries no valid token. A limiter failure lets the request through.
func RateLimit(limiter Allower) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if uid := c.GetInt64(KeyUserID); uid > 0 {
			key = "user:" + strconv.FormatInt(uid, 10)
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		c.Next()
	}
}

// UserID returns the authenticated user id, or 0 when none is set.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(KeyUserID)
}
