package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "studytrackr:ratelimit"

type socketAddrKey struct{}

// SocketAddr remembers the address of the TCP peer before chi's RealIP
// replaces r.RemoteAddr with a client-supplied header. It must be installed
// ahead of RealIP.
func SocketAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), socketAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitOptions configures NewIPRateLimiter.
type RateLimitOptions struct {
	// Rate uses limiter's notation: "20-M" is 20 per minute, "5-S" 5 per
	// second. Empty disables limiting.
	Rate string
	// TrustProxy keys the limiter on the address RealIP derived from
	// X-Forwarded-For / X-Real-IP. Only safe behind a proxy that overwrites
	// those headers; otherwise every request can pick its own key.
	TrustProxy bool
	// Redis, when non-nil, holds the counters so every instance of the
	// server shares them. Otherwise they live in process memory.
	Redis *redis.Client
}

// NewIPRateLimiter returns middleware that limits requests per client IP.
func NewIPRateLimiter(opts RateLimitOptions) (func(next http.Handler) http.Handler, error) {
	if opts.Rate == "" {
		return noopMiddleware, nil
	}
	rate, err := limiter.NewRateFromFormatted(opts.Rate)
	if err != nil {
		return nil, fmt.Errorf("parsing rate %q: %w", opts.Rate, err)
	}

	var store limiter.Store
	if opts.Redis != nil {
		store, err = sredis.NewStoreWithOptions(opts.Redis, limiter.StoreOptions{
			Prefix:   rateLimitPrefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("creating redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(memoryStoreOptions())
	}

	keyGetter := peerIP
	if opts.TrustProxy {
		keyGetter = forwardedIP
	}

	instance := limiter.New(store, rate)
	return stdlib.NewMiddleware(instance,
		stdlib.WithKeyGetter(keyGetter),
		stdlib.WithLimitReachedHandler(limitReached),
	).Handler, nil
}

// memoryStoreOptions sets a cleanup interval; without one the in-memory
// store never evicts expired counters.
func memoryStoreOptions() limiter.StoreOptions {
	return limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
}

// peerIP is the IP of the TCP peer, as recorded by SocketAddr.
func peerIP(r *http.Request) string {
	addr, ok := r.Context().Value(socketAddrKey{}).(string)
	if !ok {
		addr = r.RemoteAddr
	}
	return hostOnly(addr)
}

// forwardedIP is whatever r.RemoteAddr holds after RealIP.
func forwardedIP(r *http.Request) string {
	return hostOnly(r.RemoteAddr)
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func limitReached(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "rate_limited",
		"message": "too many requests, try again later",
	})
}

func noopMiddleware(next http.Handler) http.Handler {
	return next
}
