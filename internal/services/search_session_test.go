package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/itinerary"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider serves canned itineraries. When hold is set, Search and Book
// signal on started and wait for hold to close.
type stubProvider struct {
	mu          sync.Mutex
	itineraries []models.Itinerary
	searchErr   error
	bookResp    *models.BookingResponse
	bookErr     error
	hold        chan struct{}
	started     chan struct{}

	searchCalls atomic.Int32
	bookCalls   atomic.Int32
	lastBook    *models.BookingRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) wait(ctx context.Context) error {
	if p.hold == nil {
		return nil
	}
	if p.started != nil {
		p.started <- struct{}{}
	}
	select {
	case <-p.hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *stubProvider) Search(ctx context.Context, req provider.SearchRequest) ([]models.Itinerary, error) {
	p.searchCalls.Add(1)
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return models.CloneItineraries(p.itineraries), nil
}

func (p *stubProvider) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingResponse, error) {
	p.bookCalls.Add(1)
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastBook = req
	if p.bookErr != nil {
		return nil, p.bookErr
	}
	return p.bookResp, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testAgent() models.Agent {
	return models.Agent{
		ID:          uuid.New(),
		POS:         "LK-CMB-001",
		OnAccount:   "Yes",
		CompanyName: "Lanka Travels",
	}
}

// makeItinerary builds a CMB-DXB-LHR itinerary departing at hour h
func makeItinerary(id string, price float64, h int) models.Itinerary {
	dep := time.Date(2026, 12, 1, h, 0, 0, 0, time.UTC)
	it := models.Itinerary{
		ID:             id,
		TransactionID:  "tx-" + id,
		BasePrice:      price,
		Currency:       "USD",
		SeatsAvailable: 9,
		CabinClass:     models.CabinEconomy,
		Segments: []models.Segment{
			{
				AirlineCode: "UL", AirlineName: "SriLankan Airlines", FlightNumber: "UL225",
				OriginCode: "CMB", OriginName: "Colombo", DestinationCode: "DXB", DestinationName: "Dubai",
				DepartureTime: dep, ArrivalTime: dep.Add(4 * time.Hour),
			},
			{
				AirlineCode: "EK", AirlineName: "Emirates", FlightNumber: "EK001",
				OriginCode: "DXB", OriginName: "Dubai", DestinationCode: "LHR", DestinationName: "London Heathrow",
				DepartureTime: dep.Add(6 * time.Hour), ArrivalTime: dep.Add(13 * time.Hour),
			},
		},
	}
	it.Normalize()
	return it
}

func sevenItineraries() []models.Itinerary {
	out := make([]models.Itinerary, 0, 7)
	prices := []float64{540, 410, 620, 395, 410, 700, 455}
	for i, p := range prices {
		out = append(out, makeItinerary(fmt.Sprintf("it-%d", i+1), p, 23-i))
	}
	return out
}

func oneWayCriteria() models.SearchCriteria {
	return models.SearchCriteria{
		TripType:      models.TripTypeOneWay,
		FromCity:      "cmb",
		ToCity:        "LHR",
		DepartureDate: models.MustParseDate("2026-12-01"),
		CabinClass:    models.CabinEconomy,
		Adults:        2,
		Children:      1,
		Infants:       1,
	}
}

func setupSearchSessionTest(t *testing.T) (*SearchSession, *stubProvider) {
	t.Helper()
	p := &stubProvider{itineraries: sevenItineraries()}
	return NewSearchSession(testAgent(), p, time.Second, quietLogger()), p
}

func TestSearchSession_ValidationRejectsWithoutProviderCall(t *testing.T) {
	returnBefore := models.MustParseDate("2026-11-30")

	tests := []struct {
		name    string
		mutate  func(c *models.SearchCriteria)
		message string
	}{
		{"same city", func(c *models.SearchCriteria) { c.ToCity = "CMB" }, "origin and destination cannot be the same"},
		{"return before departure", func(c *models.SearchCriteria) {
			c.TripType = models.TripTypeRoundTrip
			c.ReturnDate = &returnBefore
		}, "return date must be after departure date"},
		{"too many passengers", func(c *models.SearchCriteria) { c.Adults, c.Children, c.Infants = 5, 4, 1 }, "total passengers cannot exceed 9"},
		{"infants exceed adults", func(c *models.SearchCriteria) { c.Adults, c.Infants = 1, 2 }, "infants cannot exceed adults"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, p := setupSearchSessionTest(t)
			criteria := oneWayCriteria()
			tt.mutate(&criteria)

			_, err := session.Search(context.Background(), criteria)

			var vErr *models.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.message, vErr.Message)
			assert.Zero(t, p.searchCalls.Load())
		})
	}
}

func TestSearchSession_SearchStoresResults(t *testing.T) {
	session, _ := setupSearchSessionTest(t)

	results, err := session.Search(context.Background(), oneWayCriteria())
	require.NoError(t, err)
	assert.Len(t, results, 7)

	view := session.View()
	assert.Equal(t, 7, view.TotalResults)
	assert.Equal(t, 1, view.Page.Number)
	assert.Equal(t, 2, view.Page.TotalPages)
	assert.Len(t, view.Page.Items, itinerary.PageSize)
	require.NotNil(t, view.Criteria)
	assert.Equal(t, "CMB", view.Criteria.FromCity)
	require.NotNil(t, view.Counts)
	assert.Equal(t, 4, view.Counts.Total)
	assert.False(t, view.IsSearching)
}

func TestSearchSession_NewSearchClearsSelectionAndPage(t *testing.T) {
	session, _ := setupSearchSessionTest(t)
	ctx := context.Background()

	_, err := session.Search(ctx, oneWayCriteria())
	require.NoError(t, err)
	require.NoError(t, session.Select("it-3"))
	require.NoError(t, session.SetPage(2))

	_, err = session.Search(ctx, oneWayCriteria())
	require.NoError(t, err)

	view := session.View()
	assert.Empty(t, view.SelectedID)
	assert.Nil(t, view.Selected)
	assert.Equal(t, 1, view.Page.Number)
}

func TestSearchSession_ConcurrentSearchRejected(t *testing.T) {
	session, p := setupSearchSessionTest(t)
	p.hold = make(chan struct{})
	p.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := session.Search(context.Background(), oneWayCriteria())
		done <- err
	}()
	<-p.started

	assert.True(t, session.View().IsSearching)
	_, err := session.Search(context.Background(), oneWayCriteria())
	assert.ErrorIs(t, err, models.ErrSearchInFlight)
	assert.ErrorIs(t, session.SortBy("price"), models.ErrSearchInFlight)

	close(p.hold)
	require.NoError(t, <-done)
	assert.False(t, session.View().IsSearching)
	assert.Equal(t, int32(1), p.searchCalls.Load())
}

func TestSearchSession_ProviderFailureEmptiesResults(t *testing.T) {
	session, p := setupSearchSessionTest(t)
	ctx := context.Background()

	_, err := session.Search(ctx, oneWayCriteria())
	require.NoError(t, err)

	p.searchErr = fmt.Errorf("upstream: %w", provider.ErrTemporary)
	_, err = session.Search(ctx, oneWayCriteria())

	var pErr *models.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "search", pErr.Op)
	assert.True(t, errors.Is(err, provider.ErrTemporary))

	view := session.View()
	assert.Zero(t, view.TotalResults)
	assert.Empty(t, view.Page.Items)
	assert.False(t, view.IsSearching)
}

func TestSearchSession_SortKeepsPage(t *testing.T) {
	session, _ := setupSearchSessionTest(t)
	_, err := session.Search(context.Background(), oneWayCriteria())
	require.NoError(t, err)
	require.NoError(t, session.SetPage(2))

	require.NoError(t, session.SortBy("price"))

	view := session.View()
	assert.Equal(t, 2, view.Page.Number)
	require.Len(t, view.Page.Items, 2)
	assert.Equal(t, 620.0, view.Page.Items[0].BasePrice)
	assert.Equal(t, 700.0, view.Page.Items[1].BasePrice)

	require.NoError(t, session.SetPage(1))
	first := session.View().Page.Items
	assert.Equal(t, "it-4", first[0].ID)
	// equal prices keep their prior order
	assert.Equal(t, "it-2", first[1].ID)
	assert.Equal(t, "it-5", first[2].ID)

	err = session.SortBy("duration")
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestSearchSession_SortIsReappliedAfterSearch(t *testing.T) {
	session, _ := setupSearchSessionTest(t)
	ctx := context.Background()
	_, err := session.Search(ctx, oneWayCriteria())
	require.NoError(t, err)
	require.NoError(t, session.SortBy("departure"))

	results, err := session.Search(ctx, oneWayCriteria())
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.False(t, results[i].FirstDeparture().Before(results[i-1].FirstDeparture()))
	}
	assert.Equal(t, itinerary.SortByDeparture, session.View().SortBy)
}

func TestSearchSession_FiltersResetPage(t *testing.T) {
	session, _ := setupSearchSessionTest(t)
	_, err := session.Search(context.Background(), oneWayCriteria())
	require.NoError(t, err)
	require.NoError(t, session.SetPage(2))

	maxPrice := 450.0
	require.NoError(t, session.ApplyFilters(itinerary.Filters{PriceRange: itinerary.PriceRange{Max: &maxPrice}}))

	view := session.View()
	assert.Equal(t, 1, view.Page.Number)
	assert.Equal(t, 3, view.Page.TotalItems)
	assert.Equal(t, 7, view.TotalResults)

	assert.ErrorIs(t, session.SetPage(2), models.ErrPageOutOfRange)

	minPrice := 500.0
	err = session.ApplyFilters(itinerary.Filters{PriceRange: itinerary.PriceRange{Min: &minPrice, Max: &maxPrice}})
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestSearchSession_SetPageBounds(t *testing.T) {
	session, _ := setupSearchSessionTest(t)

	// an empty session still has a landing page
	assert.NoError(t, session.SetPage(1))
	assert.ErrorIs(t, session.SetPage(2), models.ErrPageOutOfRange)

	_, err := session.Search(context.Background(), oneWayCriteria())
	require.NoError(t, err)

	for _, page := range []int{0, -1, 3} {
		assert.ErrorIs(t, session.SetPage(page), models.ErrPageOutOfRange, "page %d", page)
	}
	require.NoError(t, session.SetPage(2))
	assert.Len(t, session.View().Page.Items, 2)
}

func TestSearchSession_Selection(t *testing.T) {
	session, _ := setupSearchSessionTest(t)

	_, _, err := session.Selected()
	assert.ErrorIs(t, err, models.ErrNoSelection)

	_, err = session.Search(context.Background(), oneWayCriteria())
	require.NoError(t, err)

	assert.ErrorIs(t, session.Select("missing"), models.ErrItineraryNotFound)

	require.NoError(t, session.Select("it-6"))
	it, criteria, err := session.Selected()
	require.NoError(t, err)
	assert.Equal(t, "it-6", it.ID)
	assert.Equal(t, "LHR", criteria.ToCity)

	view := session.View()
	assert.Equal(t, "it-6", view.SelectedID)
	require.NotNil(t, view.Selected)
	assert.Equal(t, 700.0, view.Selected.BasePrice)
}

func TestSearchSession_ViewDoesNotAliasResults(t *testing.T) {
	session, _ := setupSearchSessionTest(t)
	_, err := session.Search(context.Background(), oneWayCriteria())
	require.NoError(t, err)

	view := session.View()
	view.Page.Items[0].Segments[0].FlightNumber = "XX999"

	assert.NotEqual(t, "XX999", session.View().Page.Items[0].Segments[0].FlightNumber)
}

func TestSearchSession_CloseDropsInFlightSearch(t *testing.T) {
	session, p := setupSearchSessionTest(t)
	p.hold = make(chan struct{})
	p.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := session.Search(context.Background(), oneWayCriteria())
		done <- err
	}()
	<-p.started

	session.Close()
	close(p.hold)

	assert.ErrorIs(t, <-done, models.ErrSessionNotFound)
	assert.Zero(t, session.View().TotalResults)
	assert.ErrorIs(t, session.Select("it-1"), models.ErrSessionNotFound)
}
