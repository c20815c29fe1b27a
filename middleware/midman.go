package middleware

import (
	"sync"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MiddlewareManager holds middlewares that can be added after the engine is
// built. Mount it once with Use.
type MiddlewareManager struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

func (m *MiddlewareManager) Add(h ...gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h...)
}

func (m *MiddlewareManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = nil
}

// Use runs a snapshot of the registered middlewares, stopping at the first
// abort.
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]gin.HandlerFunc{}, m.mids...)
		m.mu.RUnlock()

		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

// RequestLog logs one line per request.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if uid, ok := c.Get("userId"); ok {
			fields = append(fields, zap.Any("user", uid))
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("[HTTP] request", fields...)
			return
		}
		logger.Debug("[HTTP] request", fields...)
	}
}

// Recovery turns a handler panic into a logged 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[HTTP] panic", zap.String("path", c.Request.URL.Path), zap.Error(errs.ErrPanic(r)))
				c.AbortWithStatusJSON(500, gin.H{"statusCode": 500, "message": "internal server error"})
			}
		}()
		c.Next()
	}
}
