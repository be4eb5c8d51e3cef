package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/photobooth/boothsync/internal/cache"
)

// RateLimit creates middleware capping requests per client IP within a
// one-minute window. Guests hammer the download links from event wifi,
// so the limit is per-IP rather than global.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	counters := cache.NewTTLMap[int](time.Minute, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			count := counters.Update(ip, func(current int, found bool) int {
				if !found {
					return 1
				}
				return current + 1
			})

			if count > requestsPerMinute {
				w.Header().Set("Retry-After", "60")
				writeAuthError(w, http.StatusTooManyRequests, "Too many requests.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the remote IP, trusting X-Forwarded-For only as far
// as its first hop
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
