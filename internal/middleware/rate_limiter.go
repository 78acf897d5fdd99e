package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/malevo2026ma-wq/backend/internal/apierror"

	"github.com/gin-gonic/gin"
)

// ipEntry tracks requests per IP within a sliding window.
type ipEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

var (
	ipMap   = make(map[string]*ipEntry)
	ipMapMu sync.Mutex
)

// RateLimiter limits requests per IP within the given window.
func RateLimiter(max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		ipMapMu.Lock()
		entry, exists := ipMap[ip]
		if !exists {
			entry = &ipEntry{}
			ipMap[ip] = entry
		}
		ipMapMu.Unlock()

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(window)
		}

		entry.count++
		if entry.count > max {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.WithCode("RATE_LIMITED", "Demasiadas solicitudes. Intente más tarde."))
			return
		}
		c.Next()
	}
}
