package provider

import (
	"context"
	"errors"
	"time"

	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/wb-go/wbf/retry"
)

const initialBackoff = 80 * time.Millisecond

type retryingProvider struct {
	provider Provider
	strategy retry.Strategy
}

// NewRetryingProvider retries searches that fail with ErrTemporary up to
// maxRetries times, doubling the pause each time. Bookings are never retried.
func NewRetryingProvider(p Provider, maxRetries int) Provider {
	return newRetryingProvider(p, maxRetries, initialBackoff)
}

func newRetryingProvider(p Provider, maxRetries int, delay time.Duration) *retryingProvider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryingProvider{
		provider: p,
		strategy: retry.Strategy{Attempts: maxRetries + 1, Delay: delay, Backoff: 2},
	}
}

func (r *retryingProvider) Name() string {
	return r.provider.Name()
}

func (r *retryingProvider) Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error) {
	var (
		itineraries []models.Itinerary
		final       error
		attempt     int
	)

	// retry.DoContext retries every error and pauses after the last one too,
	// so terminal failures are parked in final and reported as success.
	err := retry.DoContext(ctx, r.strategy, func() error {
		attempt++
		found, err := r.provider.Search(ctx, req)
		if err == nil {
			itineraries = found
			return nil
		}
		if !errors.Is(err, ErrTemporary) || attempt >= r.strategy.Attempts {
			final = err
			return nil
		}
		return err
	})
	if final != nil {
		return nil, final
	}
	if err != nil {
		return nil, err
	}
	return itineraries, nil
}

func (r *retryingProvider) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingResponse, error) {
	return r.provider.Book(ctx, req)
}
