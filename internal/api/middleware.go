package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetadmin/internal/logging"
)

const (
	headerRequestID = "X-Request-ID"
	headerActor     = "X-Actor"
	ctxLoggerKey    = "logger"
)

// RequestID проставляет X-Request-ID и логгер запроса, затем пишет строку access-лога.
func RequestID(base *zap.Logger) gin.HandlerFunc {
	base = logging.OrNop(base)
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request.Header.Set(headerRequestID, requestID)
		}
		c.Header(headerRequestID, requestID)

		l := base.With(zap.String("request_id", requestID))
		c.Set(ctxLoggerKey, l)
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), l))

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case c.Writer.Status() >= 500:
			l.Error("request", fields...)
		case c.Writer.Status() >= 400:
			l.Warn("request", fields...)
		default:
			l.Info("request", fields...)
		}
	}
}

// loggerFrom: логгер запроса или общий
func loggerFrom(c *gin.Context, storage *Storage) *zap.Logger {
	if v, ok := c.Get(ctxLoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return storage.logger()
}

// BearerAuth: статический токен; пустой токен отключает проверку
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortErrors(c, http.StatusUnauthorized, ferr("unauthorized", "", "missing authorization header"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortErrors(c, http.StatusUnauthorized, ferr("unauthorized", "", "invalid authorization header format"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			abortErrors(c, http.StatusUnauthorized, ferr("unauthorized", "", "invalid token"))
			return
		}
		c.Next()
	}
}

// actor: кто выполняет изменение (для аудита записей)
func actor(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(headerActor))
}
