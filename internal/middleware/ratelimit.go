package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/bioage-mcp-server/internal/domain"
)

// OwnerRateLimiter keeps one token bucket per owner.
type OwnerRateLimiter struct {
	limit  rate.Limit
	burst  int
	idle   time.Duration
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[string]*ownerLimiter
}

type ownerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewOwnerRateLimiter creates a limiter allowing rps requests per second with
// the given burst for each owner.
func NewOwnerRateLimiter(config domain.RateLimitConfig, logger *logrus.Logger) *OwnerRateLimiter {
	return &OwnerRateLimiter{
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   config.Burst,
		idle:    10 * time.Minute,
		logger:  logger,
		clients: make(map[string]*ownerLimiter),
	}
}

// Allow reports whether ownerID may make a request now.
func (rl *OwnerRateLimiter) Allow(ownerID string) bool {
	return rl.AllowAt(ownerID, time.Now())
}

// AllowAt is Allow at a given instant.
func (rl *OwnerRateLimiter) AllowAt(ownerID string, now time.Time) bool {
	rl.mu.Lock()
	client, ok := rl.clients[ownerID]
	if !ok {
		client = &ownerLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ownerID] = client
	}
	client.lastSeen = now
	rl.mu.Unlock()

	return client.limiter.AllowN(now, 1)
}

// Cleanup forgets owners idle for longer than the idle window and returns how
// many were removed.
func (rl *OwnerRateLimiter) Cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, client := range rl.clients {
		if now.Sub(client.lastSeen) > rl.idle {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *OwnerRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := rl.Cleanup(now); n > 0 {
					rl.logger.WithField("removed", n).Debug("Cleaned up idle rate limiters")
				}
			}
		}
	}()
}

// Middleware rejects requests over the owner's limit with 429. It must run
// after Authenticate.
func (rl *OwnerRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := OwnerID(c)
		if rl.Allow(ownerID) {
			c.Next()
			return
		}

		rl.logger.WithField("owner_id", ownerID).Warn("Request denied: rate limit exceeded")
		retryAfter := 1
		if rl.limit > 0 {
			retryAfter = int(1/float64(rl.limit)) + 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrCodeRateLimit,
			"Rate limit exceeded",
			"too many requests, retry later",
			c.GetString(CorrelationIDKey),
		))
	}
}
