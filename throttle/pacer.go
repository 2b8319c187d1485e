package throttle

import (
	"context"

	"golang.org/x/time/rate"
)

// Limit is a token bucket for one API.
type Limit struct {
	Rate  float64 // requests per second
	Burst int
}

// Pacer spaces out requests per API before they are sent, so a client stays
// under a known service quota instead of discovering it through 429s.
// APIs without a configured Limit are never delayed. The limiter map is
// built once and only read afterwards.
type Pacer struct {
	limiters map[string]*rate.Limiter
}

// NewPacer builds a Pacer from per-API limits. Entries with a non-positive
// rate are ignored.
func NewPacer(limits map[string]Limit) *Pacer {
	p := &Pacer{limiters: make(map[string]*rate.Limiter, len(limits))}
	for api, l := range limits {
		if l.Rate <= 0 {
			continue
		}
		burst := l.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiters[api] = rate.NewLimiter(rate.Limit(l.Rate), burst)
	}
	return p
}

// Wait blocks until api may send or ctx is done.
func (p *Pacer) Wait(ctx context.Context, api string) error {
	if p == nil {
		return nil
	}
	l, ok := p.limiters[api]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}

// Paced reports whether api has a limit configured.
func (p *Pacer) Paced(api string) bool {
	if p == nil {
		return false
	}
	_, ok := p.limiters[api]
	return ok
}
