package provider

import (
	"context"
	"time"

	"github.com/smarttransit/interline-booking-backend/internal/cache"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

type cachedProvider struct {
	provider Provider
	store    cache.Store[[]models.Itinerary]
	ttl      time.Duration
}

// NewCachedProvider serves repeated searches from store for ttl
func NewCachedProvider(p Provider, store cache.Store[[]models.Itinerary], ttl time.Duration) Provider {
	return &cachedProvider{provider: p, store: store, ttl: ttl}
}

func (c *cachedProvider) Name() string {
	return c.provider.Name()
}

func (c *cachedProvider) Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error) {
	key := req.CacheKey()
	if cached, ok := c.store.Get(ctx, key); ok {
		return cached, nil
	}
	itineraries, err := c.provider.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	c.store.Set(ctx, key, itineraries, c.ttl)
	return itineraries, nil
}

func (c *cachedProvider) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingResponse, error) {
	return c.provider.Book(ctx, req)
}
