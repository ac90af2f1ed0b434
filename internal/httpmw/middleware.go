// Package httpmw carries the gin middleware chain shared by every service's
// HTTP surface, adapted from the teacher's internal/api/middleware.go:
// request-ID propagation, structured request logging, per-IP rate limiting,
// request timeouts, and CORS.
package httpmw

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RequestIDKey/TraceIDKey are the gin context keys set by RequestID.
const (
	RequestIDKey = "requestId"
	TraceIDKey   = "traceId"
)

// RequestID assigns (or propagates) a request ID and trace ID per request,
// mirroring the teacher's RequestIDMiddleware but adding trace-id
// propagation the spec's correlation requirement needs across services.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := c.GetHeader("X-Trace-Id")
		if traceID == "" {
			traceID = reqID
		}
		c.Set(RequestIDKey, reqID)
		c.Set(TraceIDKey, traceID)
		c.Writer.Header().Set("X-Request-Id", reqID)
		c.Writer.Header().Set("X-Trace-Id", traceID)
		c.Next()
	}
}

// RequestIDFrom / TraceIDFrom read the values RequestID set.
func RequestIDFrom(c *gin.Context) string { return c.GetString(RequestIDKey) }
func TraceIDFrom(c *gin.Context) string    { return c.GetString(TraceIDKey) }

// RequestLogger logs every request at Info with method/path/status/latency,
// replacing the teacher's log.Printf call with a structured logrus entry.
func RequestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.WithFields(logrus.Fields{
			"requestId": RequestIDFrom(c),
			"method":    method,
			"path":      path,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  c.ClientIP(),
		}).Info("http request")
	}
}

// RequestCounter increments a Prometheus counter per method, route and
// response status text,
// wired alongside RequestLogger so /metrics reflects the same traffic.
func RequestCounter(counter *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if counter == nil {
			return
		}
		counter.WithLabelValues(c.Request.Method, c.FullPath(), http.StatusText(c.Writer.Status())).Inc()
	}
}

type limiterStore struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	s := &limiterStore{limiters: make(map[string]*rate.Limiter), rps: rps, burst: burst}
	go s.evictLoop()
	return s
}

func (s *limiterStore) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		s.limiters = make(map[string]*rate.Limiter)
		s.mu.Unlock()
	}
}

func (s *limiterStore) get(ip string) *rate.Limiter {
	s.mu.RLock()
	l, ok := s.limiters[ip]
	s.mu.RUnlock()
	if ok {
		return l
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[ip]; ok {
		return l
	}
	l = rate.NewLimiter(rate.Limit(s.rps), s.burst)
	s.limiters[ip] = l
	return l
}

// RateLimit enforces a per-IP token bucket, same shape as the teacher's
// RateLimitMiddleware (20 req/s, burst 50 by default).
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst)
	return func(c *gin.Context) {
		if !store.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// Timeout aborts a handler that runs past d, matching the teacher's
// TimeoutMiddleware goroutine/panic-recovery shape.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		finished := make(chan struct{})
		panicked := make(chan interface{}, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					panicked <- p
				}
			}()
			c.Next()
			close(finished)
		}()

		select {
		case p := <-panicked:
			c.Error(fmt.Errorf("panic: %v", p))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		case <-finished:
		case <-ctx.Done():
			c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": "request timeout"})
		}
	}
}

// CORS allows cross-origin requests from the operator dashboard/chat client.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token, X-Request-Id, X-Trace-Id")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
