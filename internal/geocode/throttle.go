package geocode

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// Throttled enforces a minimum inter-call delay in front of another
// Geocoder. The limiter is shared by all callers, so concurrent pipeline
// workers collectively respect the provider quota rather than each getting
// their own budget.
type Throttled struct {
	inner   Geocoder
	limiter *rate.Limiter
}

// NewThrottled wraps inner with a global minimum delay between calls.
func NewThrottled(inner Geocoder, minInterval time.Duration) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (t *Throttled) Geocode(ctx context.Context, phrase string) (*domain.Geo, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Geocode(ctx, phrase)
}
