package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/itinerary"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/provider"
)

// SearchSession holds one agent's search results together with the sort,
// filter, page and selection state applied to them.
type SearchSession struct {
	ID        uuid.UUID
	AgentID   uuid.UUID
	CreatedAt time.Time

	provider provider.Provider
	pos      string
	timeout  time.Duration
	logger   *logrus.Logger

	mu          sync.Mutex
	isSearching bool
	closed      bool
	criteria    *models.SearchCriteria
	results     []models.Itinerary
	sortBy      itinerary.SortCriterion
	filters     itinerary.Filters
	page        int
	selectedID  string
	searchedAt  *time.Time
	touched     time.Time
}

// SearchView is a read-only snapshot of a search session
type SearchView struct {
	ID           uuid.UUID               `json:"id"`
	Criteria     *models.SearchCriteria  `json:"criteria,omitempty"`
	IsSearching  bool                    `json:"is_searching"`
	SortBy       itinerary.SortCriterion `json:"sort_by,omitempty"`
	Filters      itinerary.Filters       `json:"filters"`
	TotalResults int                     `json:"total_results"`
	Page         itinerary.Page          `json:"page"`
	SelectedID   string                  `json:"selected_id,omitempty"`
	Selected     *models.Itinerary       `json:"selected,omitempty"`
	Counts       *models.PassengerCounts `json:"counts,omitempty"`
	SearchedAt   *time.Time              `json:"searched_at,omitempty"`
}

// NewSearchSession creates an empty search session for an agent
func NewSearchSession(agent models.Agent, p provider.Provider, timeout time.Duration, logger *logrus.Logger) *SearchSession {
	return &SearchSession{
		ID:        uuid.New(),
		AgentID:   agent.ID,
		CreatedAt: time.Now(),
		provider:  p,
		pos:       agent.POS,
		timeout:   timeout,
		logger:    logger,
		page:      1,
		touched:   time.Now(),
	}
}

// Search validates criteria and replaces the held results with the provider's
// answer. Only one search may be in flight per session.
func (s *SearchSession) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Itinerary, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, models.ErrSessionNotFound
	}
	if s.isSearching {
		s.mu.Unlock()
		return nil, models.ErrSearchInFlight
	}
	s.isSearching = true
	s.touched = time.Now()
	s.mu.Unlock()

	results, err := s.fetch(ctx, criteria)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSearching = false

	if s.closed {
		return nil, models.ErrSessionNotFound
	}

	c := criteria
	s.criteria = &c
	s.selectedID = ""
	s.page = 1
	now := time.Now()
	s.searchedAt = &now

	if err != nil {
		s.results = nil
		return nil, &models.ProviderError{Op: "search", Err: err}
	}

	s.results = results
	if s.sortBy != "" {
		itinerary.Sort(s.results, s.sortBy)
	}
	return models.CloneItineraries(s.results), nil
}

// fetch runs the provider call outside the session lock
func (s *SearchSession) fetch(ctx context.Context, criteria models.SearchCriteria) ([]models.Itinerary, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	results, err := s.provider.Search(ctx, provider.NewSearchRequest(criteria, s.pos))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": s.ID,
			"provider":   s.provider.Name(),
			"from":       criteria.FromCity,
			"to":         criteria.ToCity,
			"temporary":  errors.Is(err, provider.ErrTemporary),
		}).WithError(err).Error("Itinerary search failed")
		return nil, err
	}
	return results, nil
}

// SortBy reorders the held results. The current page is kept.
func (s *SearchSession) SortBy(criterion string) error {
	by, err := itinerary.ParseSortCriterion(criterion)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	s.sortBy = by
	itinerary.Sort(s.results, by)
	return nil
}

// ApplyFilters replaces the active filters and returns to page 1
func (s *SearchSession) ApplyFilters(f itinerary.Filters) error {
	if f.PriceRange.Min != nil && f.PriceRange.Max != nil && *f.PriceRange.Min > *f.PriceRange.Max {
		return models.ErrInvalidInput("minimum price cannot exceed maximum price")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	s.filters = f
	s.page = 1
	return nil
}

// SetPage moves to page n of the filtered results
func (s *SearchSession) SetPage(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if err := itinerary.ValidatePage(n, len(s.visible())); err != nil {
		return err
	}
	s.page = n
	return nil
}

// Select marks one of the held itineraries as the one to book
func (s *SearchSession) Select(itineraryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	for _, it := range s.results {
		if it.ID == itineraryID {
			s.selectedID = it.ID
			return nil
		}
	}
	return fmt.Errorf("%w: %s", models.ErrItineraryNotFound, itineraryID)
}

// Selected returns the selected itinerary and the criteria it was found with
func (s *SearchSession) Selected() (models.Itinerary, models.SearchCriteria, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSearching {
		return models.Itinerary{}, models.SearchCriteria{}, models.ErrSearchInFlight
	}
	it, ok := s.selected()
	if !ok || s.criteria == nil {
		return models.Itinerary{}, models.SearchCriteria{}, models.ErrNoSelection
	}
	return it.Clone(), *s.criteria, nil
}

// View returns a snapshot of the current page and session state
func (s *SearchSession) View() SearchView {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := s.visible()
	page, err := itinerary.Paginate(visible, s.page)
	if err != nil {
		page, _ = itinerary.Paginate(visible, 1)
	}
	page.Items = models.CloneItineraries(page.Items)

	view := SearchView{
		ID:           s.ID,
		IsSearching:  s.isSearching,
		SortBy:       s.sortBy,
		Filters:      s.filters,
		TotalResults: len(s.results),
		Page:         page,
		SelectedID:   s.selectedID,
		SearchedAt:   s.searchedAt,
	}
	if s.criteria != nil {
		c := *s.criteria
		counts := c.Counts()
		view.Criteria = &c
		view.Counts = &counts
	}
	if it, ok := s.selected(); ok {
		clone := it.Clone()
		view.Selected = &clone
	}
	return view
}

// Close discards the session. A search still in flight is dropped on return.
func (s *SearchSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.results = nil
	s.selectedID = ""
}

func (s *SearchSession) usable() error {
	if s.closed {
		return models.ErrSessionNotFound
	}
	if s.isSearching {
		return models.ErrSearchInFlight
	}
	s.touched = time.Now()
	return nil
}

// idleSince returns when the session was last used. A session with a
// search in flight is never idle.
func (s *SearchSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSearching {
		return time.Now()
	}
	return s.touched
}

func (s *SearchSession) visible() []models.Itinerary {
	if s.filters.IsZero() {
		return s.results
	}
	return itinerary.ApplyFilters(s.results, s.filters)
}

func (s *SearchSession) selected() (models.Itinerary, bool) {
	if s.selectedID == "" {
		return models.Itinerary{}, false
	}
	for _, it := range s.results {
		if it.ID == s.selectedID {
			return it, true
		}
	}
	return models.Itinerary{}, false
}
