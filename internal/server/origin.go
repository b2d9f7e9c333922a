package server

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// OriginChecker accepts browser upgrades from the configured origins. With no
// origins configured every origin is accepted.
type OriginChecker struct {
	allowedOrigins []string
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	return &OriginChecker{
		lo.Map(allowedOrigins, func(origin string, _ int) string {
			return strings.TrimSuffix(strings.ToLower(origin), "/")
		}),
	}
}

func (c *OriginChecker) Check(r *http.Request) bool {
	if len(c.allowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients do not send an origin.
		return true
	}

	return lo.Contains(c.allowedOrigins, strings.ToLower(origin))
}
