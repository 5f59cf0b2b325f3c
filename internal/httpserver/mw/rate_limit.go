package mw

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

type RateLimitConfig struct {
	PerSecond     float64 // token refill rate per client, <= 0 disables limiting
	Burst         int
	MaxEntries    int
	SweepInterval time.Duration
	IdleTTL       time.Duration
	TrustProxy    bool // resolve IP from proxy headers when true
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool keeps one token bucket per client key.
type limiterPool struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &limiterPool{
		cfg:       cfg,
		entries:   make(map[string]*limiterEntry, 1024),
		lastSweep: time.Now(),
	}
}

func (p *limiterPool) get(key string, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Sub(p.lastSweep) >= p.cfg.SweepInterval ||
		(p.cfg.MaxEntries > 0 && len(p.entries) >= p.cfg.MaxEntries) {
		p.sweepLocked(now)
	}
	e := p.entries[key]
	if e == nil {
		e = &limiterEntry{l: rate.NewLimiter(rate.Limit(p.cfg.PerSecond), p.cfg.Burst)}
		p.entries[key] = e
	}
	e.lastSeen = now
	return e.l
}

func (p *limiterPool) sweepLocked(now time.Time) {
	for k, e := range p.entries {
		if now.Sub(e.lastSeen) > p.cfg.IdleTTL {
			delete(p.entries, k)
		}
	}
	p.lastSweep = now
}

// allow consumes one token for key. When none is available it returns the
// wait before the next one.
func (p *limiterPool) allow(key string, now time.Time) (bool, time.Duration) {
	res := p.get(key, now).ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

// clientKey prefers the declared identity so users behind one NAT do not
// share a bucket.
func clientKey(r *http.Request, trustProxy bool) string {
	if u := strings.TrimSpace(r.Header.Get(api.HeaderUser)); u != "" {
		return "user:" + u
	}
	return "ip:" + utils.ClientIP(r, trustProxy)
}

func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.PerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	p := newLimiterPool(cfg)
	limitStr := strconv.Itoa(p.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := p.allow(clientKey(r, p.cfg.TrustProxy), time.Now())
			w.Header().Set("X-RateLimit-Limit", limitStr)
			if !ok {
				sec := int(math.Ceil(wait.Seconds()))
				if sec < 1 {
					sec = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(sec))
				reject(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
