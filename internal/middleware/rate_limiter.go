package middleware

import (
	"net/http"
	"sync"
	"time"

	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL  = 3 * time.Minute
	visitorSweepGap = time.Minute
)

// visitorTable: satu token bucket per client IP
type visitorTable struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func newVisitorTable(limit rate.Limit, burst int) *visitorTable {
	t := &visitorTable{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
	}
	go t.sweep(visitorSweepGap, visitorIdleTTL)
	return t
}

// allow mengambil satu token dari bucket milik ip
func (t *visitorTable) allow(ip string, now time.Time) bool {
	t.mu.Lock()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	t.mu.Unlock()

	return v.bucket.AllowN(now, 1)
}

func (t *visitorTable) sweep(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for now := range ticker.C {
		t.evictIdle(now, idle)
	}
}

// evictIdle membuang IP yang tidak aktif lebih lama dari idle
func (t *visitorTable) evictIdle(now time.Time, idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for ip, v := range t.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(t.visitors, ip)
			evicted++
		}
	}
	return evicted
}

// RateLimitMiddleware: rps request per detik per IP, dengan burst.
// Webhook Midtrans tidak lewat middleware ini.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	table := newVisitorTable(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !table.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.ErrorResponse{
				Success: false,
				Code:    "rate_limited",
				Message: "Terlalu banyak request! Santai dulu kawan.",
			})
			return
		}
		c.Next()
	}
}
