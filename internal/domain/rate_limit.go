package domain

import (
	"time"
)

// RateLimitPolicy bounds how often one key may hit a route.
type RateLimitPolicy struct {
	Scope  string
	Limit  int
	Window time.Duration
}

const (
	RateLimitScopeIP    = "ip"
	RateLimitScopeActor = "actor"
)
