package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lite-drive/internal/auth"
	"lite-drive/internal/models"
)

type contextKey string

const (
	userContextKey    = contextKey("user")
	accountContextKey = contextKey("account")

	accessTokenCookie = "access_token"
)

// bearerToken returns the token, or a message for the client when there is
// none.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
			return cookie.Value, ""
		}
		return "", "Authorization header required"
	}

	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" {
		return "", "Invalid Authorization header format"
	}
	return headerParts[1], ""
}

// AuthMiddleware accepts the access token either as a Bearer header or as
// the cookie set at login.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, problem := bearerToken(r)
		if problem != "" {
			http.Error(w, problem, http.StatusUnauthorized)
			return
		}

		claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActiveAccountMiddleware loads the account behind the token and turns away
// deleted or disabled ones. It must run after AuthMiddleware.
func (s *Server) ActiveAccountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r.Context())
		if claims == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := s.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			s.logger.Error("failed to load account", "user_id", claims.UserID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "Account no longer exists", http.StatusUnauthorized)
			return
		}
		if !user.IsActive {
			http.Error(w, "Account is disabled", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware trusts the database rather than the token, so revoking
// admin rights takes effect immediately.
func (s *Server) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := GetAccountFromContext(r.Context())
		if account == nil || !account.IsAdmin {
			http.Error(w, "Administrator privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserFromContext(ctx context.Context) *auth.AppClaims {
	if claims, ok := ctx.Value(userContextKey).(*auth.AppClaims); ok {
		return claims
	}
	return nil
}

func GetAccountFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(accountContextKey).(*models.User); ok {
		return user
	}
	return nil
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client address. Buckets idle
// for longer than idleTTL are dropped on the next sweep.
type ipRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPRateLimiter(requestsPerMinute int) *ipRateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &ipRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(float64(requestsPerMinute) / 60),
		burst:    requestsPerMinute * 2,
		idleTTL:  3 * time.Minute,
		now:      time.Now,
	}
}

// reserve reports how long the client has to wait; zero means go ahead.
func (l *ipRateLimiter) reserve(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.idleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now

	res := e.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay
	}
	return 0
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) RateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wait := s.limiter.reserve(clientIP(r)); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			respondMessage(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Please try again in %.1f seconds", wait.Seconds()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
