package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client", c.ClientIP()),
			zap.Duration("took", time.Since(start)))
	}
}

// clientLimiters holds one limiter per client IP. Entries idle long enough
// for their bucket to refill are dropped, since a fresh limiter behaves the
// same.
type clientLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	every     rate.Limit
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

func newClientLimiters(perMinute float64) *clientLimiters {
	idle := time.Minute
	if refill := time.Duration(float64(time.Minute) / perMinute); refill > idle {
		idle = refill
	}
	return &clientLimiters{
		limiters: make(map[string]*clientLimiter),
		every:    rate.Limit(perMinute / 60),
		idle:     idle,
		now:      time.Now,
	}
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastPrune) >= l.idle {
		l.prune(now)
	}
	e, ok := l.limiters[ip]
	if !ok {
		e = &clientLimiter{lim: rate.NewLimiter(l.every, 1)}
		l.limiters[ip] = e
	}
	e.seen = now
	return e.lim
}

func (l *clientLimiters) prune(now time.Time) {
	for ip, e := range l.limiters {
		if now.Sub(e.seen) >= l.idle {
			delete(l.limiters, ip)
		}
	}
	l.lastPrune = now
}

func limitScans(l *clientLimiters, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.get(ip).Allow() {
			log.Warn("scan rate limit exceeded", zap.String("client", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many scans, try again later"})
			return
		}
		c.Next()
	}
}
