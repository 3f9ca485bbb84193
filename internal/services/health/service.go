package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB and the Redis counter.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewService constructs a health service over the named dependencies.
// Nil pingers are skipped.
func NewService(checks map[string]Pinger) *Service {
	filtered := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			filtered[name] = p
		}
	}
	return &Service{checks: filtered, timeout: 2 * time.Second}
}

// Status pings every dependency and reports per-check results.
func (s *Service) Status(ctx context.Context) (bool, map[string]string) {
	ok := true
	out := map[string]string{}
	for name, p := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := p.PingContext(cctx)
		cancel()
		if err != nil {
			ok = false
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	return ok, out
}
