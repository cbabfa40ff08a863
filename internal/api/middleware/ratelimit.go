package middleware

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/api/metrics"
	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	TierDefault       = "default"
	TierAuthenticated = "authenticated"
	TierAdmin         = "admin"
	TierAuthFailure   = "auth_failure"
)

// RateLimitTiers holds the request quota of each caller class per Window.
type RateLimitTiers struct {
	Default       int
	Authenticated int
	Admin         int
	Window        time.Duration
}

// RateLimit counts requests per user id, or per client IP for anonymous
// callers, and rejects them once the tier quota is spent. A nil limiter
// disables limiting. Limiter failures let the request through.
func RateLimit(limiter ports.RateLimiter, tiers RateLimitTiers, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			tier, limit, key := tiers.classify(c)

			res, err := limiter.Hit(c.Request().Context(), key, limit, tiers.Window)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(res.ResetIn)))

			if !res.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(tier).Inc()
				return &domain.RateLimitError{
					Message:    "Too many requests. Please try again later.",
					RetryAfter: res.ResetIn,
				}
			}
			return next(c)
		}
	}
}

// ThrottleAuthFailures counts requests that fail bearer authentication per
// client IP and refuses further attempts once Default is reached within
// Window. It must run before Auth. Successful requests are not counted.
func ThrottleAuthFailures(limiter ports.RateLimiter, tiers RateLimitTiers, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := "auth-failure:" + c.RealIP()

			attempts, resetIn, err := limiter.Attempts(ctx, key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			} else if attempts >= tiers.Default {
				metrics.RateLimitRejectionsTotal.WithLabelValues(TierAuthFailure).Inc()
				return &domain.RateLimitError{
					Message:    "Too many requests. Please try again later.",
					RetryAfter: resetIn,
				}
			}

			err = next(c)
			if errors.Is(err, domain.ErrUnauthenticated) {
				if _, herr := limiter.Hit(ctx, key, tiers.Default, tiers.Window); herr != nil {
					log.Warn().Err(herr).Str("key", key).Msg("rate limiter unavailable")
				}
			}
			return err
		}
	}
}

func (t RateLimitTiers) classify(c echo.Context) (tier string, limit int, key string) {
	p := PrincipalFrom(c)
	if p == nil || p.User == nil {
		return TierDefault, t.Default, "api:" + c.RealIP()
	}
	key = "api:" + strconv.FormatInt(p.User.ID, 10)
	if a := accessFrom(c); a != nil && a.HasRole(domain.RoleAdmin) {
		return TierAdmin, t.Admin, key
	}
	return TierAuthenticated, t.Authenticated, key
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
