package http

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
	"github.com/suchimauz/docplanner-slots-gateway/internal/utils"
	"golang.org/x/time/rate"
)

const (
	headerRequestID = "X-Request-ID"

	contextKeyRequestID = "requestId"
	contextKeyClient    = "client"

	limiterIdleTimeout = 10 * time.Minute
)

func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := strings.TrimSpace(ctx.GetHeader(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		ctx.Set(contextKeyRequestID, id)
		ctx.Header(headerRequestID, id)
		ctx.Request = ctx.Request.WithContext(utils.WithRequestID(ctx.Request.Context(), id))

		ctx.Next()
	}
}

func requestLogger(logger out.LoggerPort) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		fields := out.LogFields{
			"requestId": ctx.GetString(contextKeyRequestID),
			"method":    ctx.Request.Method,
			"path":      ctx.FullPath(),
			"status":    ctx.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  ctx.ClientIP(),
		}

		switch status := ctx.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("http.request", fields)
		case status >= http.StatusBadRequest:
			logger.Warn("http.request", fields)
		default:
			logger.Info("http.request", fields)
		}
	}
}

// recovery превращает панику в 500 с телом Result
func recovery(logger out.LoggerPort) gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		logger.Error("http.panic", out.LogFields{
			"requestId": ctx.GetString(contextKeyRequestID),
			"path":      ctx.Request.URL.Path,
			"panic":     fmt.Sprint(recovered),
		})
		ctx.AbortWithStatusJSON(http.StatusInternalServerError,
			errorResponse("Internal server error", "An unexpected error occurred"))
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter token bucket на каждый IP клиента
type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newIPRateLimiter(tokens int, period time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(period / time.Duration(tokens)),
		burst:    tokens,
		now:      time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdleTimeout {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTimeout {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func rateLimit(limiter *ipRateLimiter, logger out.LoggerPort) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if !limiter.allow(ip) {
			logger.Warn("http.rate_limit.exceeded", out.LogFields{
				"requestId": ctx.GetString(contextKeyRequestID),
				"clientIp":  ip,
			})
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests,
				errorResponse("Too many requests", "Rate limit exceeded, try again later"))
			return
		}
		ctx.Next()
	}
}

// authRequired принимает Bearer JWT или Basic с клиентом из конфигурации
func authRequired(auth *Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")

		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			client, err := auth.ParseToken(strings.TrimSpace(token))
			if err != nil {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized,
					errorResponse("Unauthorized", "Invalid or expired token"))
				return
			}
			ctx.Set(contextKeyClient, client)
			ctx.Next()
			return
		}

		username, password, hasAuth := ctx.Request.BasicAuth()
		if !hasAuth || !auth.CheckCredentials(username, password) {
			ctx.Header("WWW-Authenticate", "Basic realm=Authorization Required")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized,
				errorResponse("Unauthorized", "Valid Bearer token or Basic credentials are required"))
			return
		}

		ctx.Set(contextKeyClient, username)
		ctx.Next()
	}
}

func errorResponse(message string, errs ...string) domain.Result[any] {
	return domain.Fail[any](domain.ErrorKindNone, message, errs...)
}
