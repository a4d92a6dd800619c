// Package geocode resolves free-text location phrases to coordinates inside
// the configured region.
package geocode

import (
	"context"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// Geocoder resolves a location phrase to a coordinate.
//
// A (nil, nil) return is a miss: empty phrase, URL-like phrase, no provider
// result, or a result outside the regional bounding box. Misses are expected
// and non-fatal; callers keep the location text and leave coordinates unset.
// A non-nil error means the provider itself failed (transport, non-2xx).
type Geocoder interface {
	Geocode(ctx context.Context, phrase string) (*domain.Geo, error)
}
