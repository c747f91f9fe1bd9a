package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/controller"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Middleware struct {
	limiter *RateLimiter
}

func NewMiddleware(limiter *RateLimiter) *Middleware {
	return &Middleware{limiter: limiter}
}

// AuthMiddleware validates the host's bearer token and stores its claims under
// constants.ContextTokenData.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrMissingAuthorizationHeader, "missing authorization header")
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrInvalidTokenFormat, "invalid authorization header")
			}

			claims, err := utils.ValidateAndParseToken(token)
			if err != nil {
				code := errors.ErrUnauthorized
				if appErr, ok := errors.As(err); ok {
					code = appErr.Code
				}
				return controller.NewErrorResponse(http.StatusUnauthorized, code, "unauthorized")
			}
			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}

// RateLimit applies the per-IP limiter. A nil limiter disables it.
func (m *Middleware) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.limiter != nil && !m.limiter.Allow(c.RealIP()) {
				return controller.NewErrorResponse(http.StatusTooManyRequests, errors.ErrTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

// RequestLogger assigns a request id and logs one line per request.
func (m *Middleware) RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqID := c.Request().Header.Get(constants.HeaderRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(constants.HeaderRequestID, reqID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("HTTP:Request",
				"request_id", reqID,
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP(),
			)
			return nil
		}
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Cleanup drops visitors idle longer than the TTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idleTTL)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}
