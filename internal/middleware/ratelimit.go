package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterIdle is how long a client may stay silent before its bucket is dropped.
	limiterIdle = 3 * time.Minute
	// maxLimiters caps the number of tracked clients.
	maxLimiters = 1024
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle buckets are evicted
// and at most maxClients are tracked.
type RateLimiter struct {
	bucket     map[string]*clientLimiter
	rate       rate.Limit
	burstSize  int
	idle       time.Duration
	maxClients int
	lastSweep  time.Time
	now        func() time.Time
	mutex      sync.Mutex
}

func NewRateLimiter(reqRate rate.Limit, burstSize int) *RateLimiter {
	return &RateLimiter{
		bucket:     make(map[string]*clientLimiter),
		rate:       reqRate,
		burstSize:  burstSize,
		idle:       limiterIdle,
		maxClients: maxLimiters,
		now:        time.Now,
	}
}

func (r *RateLimiter) GetLimiterFrom(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.idle {
		r.sweep(now)
	}

	entry, exist := r.bucket[ip]
	if !exist {
		if len(r.bucket) >= r.maxClients {
			r.evictOldest()
		}
		entry = &clientLimiter{limiter: rate.NewLimiter(r.rate, r.burstSize)}
		r.bucket[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Clients returns the number of tracked client buckets.
func (r *RateLimiter) Clients() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.bucket)
}

func (r *RateLimiter) sweep(now time.Time) {
	for ip, entry := range r.bucket {
		if now.Sub(entry.lastSeen) >= r.idle {
			delete(r.bucket, ip)
		}
	}
	r.lastSweep = now
}

func (r *RateLimiter) evictOldest() {
	var oldestIP string
	var oldest time.Time
	for ip, entry := range r.bucket {
		if oldestIP == "" || entry.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, entry.lastSeen
		}
	}
	delete(r.bucket, oldestIP)
}

// Limit rejects requests over the per-client rate with 429.
func (r *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.GetLimiterFrom(clientIP(req)).Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
