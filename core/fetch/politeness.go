package fetch

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// politeness spaces out requests: a random delay in [min, max] between
// consecutive requests (never before the first), widened to the host's
// robots.txt crawl-delay, plus an overall requests-per-minute cap.
type politeness struct {
	min, max   time.Duration
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	crawlDelay func(host string) time.Duration

	mu      sync.Mutex
	started bool
}

func newPoliteness(min, max time.Duration, rpm int, sleep func(context.Context, time.Duration) error, crawlDelay func(string) time.Duration) *politeness {
	if max < min {
		max = min
	}
	p := &politeness{min: min, max: max, sleep: sleep, crawlDelay: crawlDelay}
	if rpm > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	return p
}

func (p *politeness) wait(ctx context.Context, host string) error {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if !first {
		d := p.delay()
		if cd := p.crawlDelay(host); cd > d {
			d = cd
		}
		if d > 0 {
			if err := p.sleep(ctx, d); err != nil {
				return err
			}
		}
	}
	if p.limiter != nil {
		return p.limiter.Wait(ctx)
	}
	return nil
}

func (p *politeness) delay() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + rand.N(p.max-p.min+1)
}
