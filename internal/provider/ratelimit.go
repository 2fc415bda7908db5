package provider

import (
	"context"
	"time"

	"github.com/smarttransit/interline-booking-backend/internal/models"
	"golang.org/x/time/rate"
)

type rateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider spaces out searches against p by at least interval.
// Bookings skip the limiter: they are rare, never retried and already run
// under their own deadline.
func NewRateLimitedProvider(p Provider, interval time.Duration) Provider {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &rateLimitedProvider{
		provider: p,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

func (r *rateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *rateLimitedProvider) Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Search(ctx, req)
}

func (r *rateLimitedProvider) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingResponse, error) {
	return r.provider.Book(ctx, req)
}
