package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// userLimiters hands out one token bucket per authenticated user. Entries
// live for the process lifetime; the uid space of active users is small.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func (u *userLimiters) get(uid string) *rate.Limiter {
	u.mu.Lock()
	defer u.mu.Unlock()

	l, ok := u.limiters[uid]
	if !ok {
		l = rate.NewLimiter(u.limit, u.burst)
		u.limiters[uid] = l
	}
	return l
}

// ChatRateLimiter limits chat requests per user. Generation calls are the
// expensive resource here, so the bucket sits in front of the chat routes
// only. Must run after the auth middleware.
func ChatRateLimiter(perMinute int) gin.HandlerFunc {
	limiters := &userLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}

	return func(c *gin.Context) {
		uid := c.GetString("firebase_uid")
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		if !limiters.get(uid).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
