package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/fare"
	"github.com/smarttransit/interline-booking-backend/internal/itinerary"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/provider"
	"github.com/smarttransit/interline-booking-backend/internal/utils"
	"github.com/smarttransit/interline-booking-backend/internal/wizard"
)

var errMissingConfirmation = errors.New("provider returned no booking confirmation")

// BookingRecorder persists confirmed bookings
type BookingRecorder interface {
	Create(record *models.BookingRecord) error
	GetByPNR(agentID uuid.UUID, pnr string) (*models.BookingRecord, error)
	ListByAgent(agentID uuid.UUID, limit, offset int) ([]models.BookingRecord, int, error)
}

// AgentAccounts reads and debits agency balances
type AgentAccounts interface {
	GetByAgentID(agentID uuid.UUID) (*models.AgentAccount, error)
	Debit(agentID uuid.UUID, amount float64) error
}

// SearchLogger stores search analytics
type SearchLogger interface {
	LogSearch(log *models.SearchLog) error
}

// BookingOrchestratorConfig holds configuration for the orchestrator
type BookingOrchestratorConfig struct {
	SearchTimeout     time.Duration // Per provider search call (default 30s)
	SubmissionTimeout time.Duration // Per provider booking call (default 60s)
	CheckAgentBalance bool          // Reject bookings the agent balance cannot cover
	DefaultCurrency   string        // Used when the provider omits a currency
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() BookingOrchestratorConfig {
	return BookingOrchestratorConfig{
		SearchTimeout:     30 * time.Second,
		SubmissionTimeout: 60 * time.Second,
		CheckAgentBalance: true,
		DefaultCurrency:   "USD",
	}
}

// bookingEntry guards one booking session. The session value is only ever
// replaced by a snapshot returned from the wizard.
type bookingEntry struct {
	mu        sync.Mutex
	session   models.BookingSession
	abandoned bool
	touched   time.Time
}

// BookingOrchestratorService owns the in-memory search and booking sessions
// and drives the Search → Select → Wizard → Submit flow.
type BookingOrchestratorService struct {
	provider  provider.Provider
	machine   *wizard.Machine
	assembler *BookingAssembler
	records   BookingRecorder
	accounts  AgentAccounts
	searchLog SearchLogger
	config    BookingOrchestratorConfig
	logger    *logrus.Logger

	mu       sync.RWMutex
	searches map[uuid.UUID]*SearchSession
	bookings map[uuid.UUID]*bookingEntry
}

// NewBookingOrchestratorService creates a new orchestrator service.
// records, accounts and searchLog may be nil when no database is configured.
func NewBookingOrchestratorService(
	p provider.Provider,
	machine *wizard.Machine,
	assembler *BookingAssembler,
	records BookingRecorder,
	accounts AgentAccounts,
	searchLog SearchLogger,
	config BookingOrchestratorConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	return &BookingOrchestratorService{
		provider:  p,
		machine:   machine,
		assembler: assembler,
		records:   records,
		accounts:  accounts,
		searchLog: searchLog,
		config:    config,
		logger:    logger,
		searches:  make(map[uuid.UUID]*SearchSession),
		bookings:  make(map[uuid.UUID]*bookingEntry),
	}
}

// ============================================================================
// SEARCH SESSIONS
// ============================================================================

// CreateSearchSession opens an empty search session for agent
func (s *BookingOrchestratorService) CreateSearchSession(agent models.Agent) SearchView {
	session := NewSearchSession(agent, s.provider, s.config.SearchTimeout, s.logger)

	s.mu.Lock()
	s.searches[session.ID] = session
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"agent_id":   agent.ID,
		"session_id": session.ID,
	}).Info("Search session created")

	return session.View()
}

// Search runs criteria against the provider and returns the refreshed view
func (s *BookingOrchestratorService) Search(
	ctx context.Context,
	agent models.Agent,
	sessionID uuid.UUID,
	criteria models.SearchCriteria,
	client utils.RequestClient,
) (SearchView, error) {
	session, err := s.searchSession(agent, sessionID)
	if err != nil {
		return SearchView{}, err
	}

	if err := criteria.Validate(); err != nil {
		return SearchView{}, err
	}

	startTime := time.Now()
	results, err := session.Search(ctx, criteria)
	responseTime := time.Since(startTime)

	var pErr *models.ProviderError
	if err != nil && !errors.As(err, &pErr) {
		return SearchView{}, err
	}

	go s.logSearch(agent, criteria, len(results), err == nil, responseTime, client)

	if err != nil {
		return session.View(), err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"from":        criteria.FromCity,
		"to":          criteria.ToCity,
		"results":     len(results),
		"response_ms": responseTime.Milliseconds(),
	}).Info("Search completed successfully")

	return session.View(), nil
}

// SortResults reorders a session's results
func (s *BookingOrchestratorService) SortResults(agent models.Agent, sessionID uuid.UUID, criterion string) (SearchView, error) {
	return s.withSearch(agent, sessionID, func(session *SearchSession) error {
		return session.SortBy(criterion)
	})
}

// FilterResults replaces a session's filters
func (s *BookingOrchestratorService) FilterResults(agent models.Agent, sessionID uuid.UUID, filters itinerary.Filters) (SearchView, error) {
	return s.withSearch(agent, sessionID, func(session *SearchSession) error {
		return session.ApplyFilters(filters)
	})
}

// SetPage changes the visible results page
func (s *BookingOrchestratorService) SetPage(agent models.Agent, sessionID uuid.UUID, page int) (SearchView, error) {
	return s.withSearch(agent, sessionID, func(session *SearchSession) error {
		return session.SetPage(page)
	})
}

// SelectItinerary marks the itinerary to book
func (s *BookingOrchestratorService) SelectItinerary(agent models.Agent, sessionID uuid.UUID, itineraryID string) (SearchView, error) {
	return s.withSearch(agent, sessionID, func(session *SearchSession) error {
		return session.Select(itineraryID)
	})
}

// ViewSearch returns the current search session view
func (s *BookingOrchestratorService) ViewSearch(agent models.Agent, sessionID uuid.UUID) (SearchView, error) {
	return s.withSearch(agent, sessionID, func(*SearchSession) error { return nil })
}

// DeleteSearchSession discards a search session
func (s *BookingOrchestratorService) DeleteSearchSession(agent models.Agent, sessionID uuid.UUID) error {
	session, err := s.searchSession(agent, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.searches, sessionID)
	s.mu.Unlock()

	session.Close()
	return nil
}

func (s *BookingOrchestratorService) withSearch(agent models.Agent, sessionID uuid.UUID, fn func(*SearchSession) error) (SearchView, error) {
	session, err := s.searchSession(agent, sessionID)
	if err != nil {
		return SearchView{}, err
	}
	if err := fn(session); err != nil {
		return SearchView{}, err
	}
	return session.View(), nil
}

func (s *BookingOrchestratorService) searchSession(agent models.Agent, sessionID uuid.UUID) (*SearchSession, error) {
	s.mu.RLock()
	session, ok := s.searches[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if session.AgentID != agent.ID {
		return nil, models.ErrSessionForbidden
	}
	return session, nil
}

// logSearch logs the search request for analytics
func (s *BookingOrchestratorService) logSearch(
	agent models.Agent,
	criteria models.SearchCriteria,
	resultsCount int,
	succeeded bool,
	responseTime time.Duration,
	client utils.RequestClient,
) {
	if s.searchLog == nil {
		return
	}

	log := &models.SearchLog{
		AgentID:        agent.ID,
		FromCity:       criteria.FromCity,
		ToCity:         criteria.ToCity,
		DepartureDate:  criteria.DepartureDate.Time,
		CabinClass:     string(criteria.CabinClass),
		Adults:         criteria.Adults,
		Children:       criteria.Children,
		Infants:        criteria.Infants,
		ResultsCount:   resultsCount,
		ResponseTimeMs: responseTime.Milliseconds(),
		Succeeded:      succeeded,
		IPAddress:      optionalString(client.IP),
		DeviceType:     optionalString(client.DeviceType),
		Browser:        optionalString(client.Browser),
	}
	if criteria.ReturnDate != nil {
		t := criteria.ReturnDate.Time
		log.ReturnDate = &t
	}

	if err := s.searchLog.LogSearch(log); err != nil {
		s.logger.WithError(err).Warn("Failed to log search")
	}
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// ============================================================================
// BOOKING SESSIONS
// ============================================================================

// StartBooking opens a booking wizard for the session's selected itinerary
func (s *BookingOrchestratorService) StartBooking(agent models.Agent, searchSessionID uuid.UUID) (models.BookingSession, error) {
	search, err := s.searchSession(agent, searchSessionID)
	if err != nil {
		return models.BookingSession{}, err
	}

	it, criteria, err := search.Selected()
	if err != nil {
		return models.BookingSession{}, err
	}

	session := models.NewBookingSession(agent.ID, searchSessionID, it, criteria.TripType, criteria.Counts())

	s.mu.Lock()
	s.bookings[session.ID] = &bookingEntry{session: session, touched: time.Now()}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"agent_id":     agent.ID,
		"booking_id":   session.ID,
		"itinerary_id": it.ID,
		"passengers":   session.Counts.Total,
	}).Info("Booking session started")

	return session.Clone(), nil
}

// GetBookingSession returns the current snapshot of a booking session
func (s *BookingOrchestratorService) GetBookingSession(agent models.Agent, sessionID uuid.UUID) (models.BookingSession, error) {
	entry, err := s.bookingEntry(agent, sessionID)
	if err != nil {
		return models.BookingSession{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.abandoned {
		return models.BookingSession{}, models.ErrSessionNotFound
	}
	return entry.session.Clone(), nil
}

// UpdatePassenger merges patch into the passenger at index
func (s *BookingOrchestratorService) UpdatePassenger(agent models.Agent, sessionID uuid.UUID, index int, patch models.PassengerPatch) (models.BookingSession, error) {
	return s.dispatch(agent, sessionID, wizard.UpdatePassengerField{Index: index, Patch: patch})
}

// UpdateContact merges patch into the booking contact
func (s *BookingOrchestratorService) UpdateContact(agent models.Agent, sessionID uuid.UUID, patch models.ContactPatch) (models.BookingSession, error) {
	return s.dispatch(agent, sessionID, wizard.UpdateContactField{Patch: patch})
}

// Advance moves past the passenger details step
func (s *BookingOrchestratorService) Advance(agent models.Agent, sessionID uuid.UUID) (models.BookingSession, error) {
	return s.dispatch(agent, sessionID, wizard.AdvanceStep{})
}

// Retreat returns to the passenger details step
func (s *BookingOrchestratorService) Retreat(agent models.Agent, sessionID uuid.UUID) (models.BookingSession, error) {
	return s.dispatch(agent, sessionID, wizard.RetreatStep{})
}

// Reset clears all entered data and restarts the wizard
func (s *BookingOrchestratorService) Reset(agent models.Agent, sessionID uuid.UUID) (models.BookingSession, error) {
	return s.dispatch(agent, sessionID, wizard.Reset{})
}

// FareBreakdown returns the payable amount of a booking session per passenger type
func (s *BookingOrchestratorService) FareBreakdown(agent models.Agent, sessionID uuid.UUID) (fare.Breakdown, error) {
	session, err := s.GetBookingSession(agent, sessionID)
	if err != nil {
		return fare.Breakdown{}, err
	}
	return fare.ComputeBreakdown(session.Itinerary.BasePrice, session.Counts).Rounded(), nil
}

// Abandon discards a booking session. A submission still in flight completes
// at the provider but its result is dropped.
func (s *BookingOrchestratorService) Abandon(agent models.Agent, sessionID uuid.UUID) error {
	entry, err := s.bookingEntry(agent, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.bookings, sessionID)
	s.mu.Unlock()

	entry.mu.Lock()
	entry.abandoned = true
	submitting := entry.session.IsSubmitting
	entry.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"booking_id": sessionID,
		"submitting": submitting,
	}).Info("Booking session abandoned")
	return nil
}

func (s *BookingOrchestratorService) dispatch(agent models.Agent, sessionID uuid.UUID, action wizard.Action) (models.BookingSession, error) {
	entry, err := s.bookingEntry(agent, sessionID)
	if err != nil {
		return models.BookingSession{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.abandoned {
		return models.BookingSession{}, models.ErrSessionNotFound
	}

	next, err := s.machine.Dispatch(entry.session, action)
	entry.session = next
	entry.touched = time.Now()
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_id": sessionID,
			"action":     action.Name(),
			"step":       next.Step,
		}).WithError(err).Info("Wizard action rejected")
	}
	return next.Clone(), err
}

func (s *BookingOrchestratorService) bookingEntry(agent models.Agent, sessionID uuid.UUID) (*bookingEntry, error) {
	s.mu.RLock()
	entry, ok := s.bookings[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	// AgentID is immutable after creation
	if entry.session.AgentID != agent.ID {
		return nil, models.ErrSessionForbidden
	}
	return entry, nil
}

// ============================================================================
// SUBMISSION
// ============================================================================

// Submit validates the contact, assembles the booking request and sends it
// to the provider. The session lock is not held during the provider call.
func (s *BookingOrchestratorService) Submit(ctx context.Context, agent models.Agent, sessionID uuid.UUID) (models.BookingSession, error) {
	entry, err := s.bookingEntry(agent, sessionID)
	if err != nil {
		return models.BookingSession{}, err
	}

	// 1. Guarded transition into the submitting state
	entry.mu.Lock()
	if entry.abandoned {
		entry.mu.Unlock()
		return models.BookingSession{}, models.ErrSessionNotFound
	}
	next, err := s.machine.Dispatch(entry.session, wizard.StartSubmission{})
	entry.session = next
	entry.touched = time.Now()
	entry.mu.Unlock()
	if err != nil {
		return next.Clone(), err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"agent_id":   agent.ID,
		"booking_id": sessionID,
	})

	// 2. Assemble the request
	req, err := s.assembler.Assemble(next, agent)
	if err != nil {
		logger.WithError(err).Warn("Failed to assemble booking request")
		return s.failSubmission(entry, err)
	}

	// 3. Business rules
	if err := s.checkBalance(agent, req.CWPaymentAmount); err != nil {
		logger.WithError(err).Warn("Booking rejected by business rule")
		return s.failSubmission(entry, err)
	}

	// 4. Provider call, detached from the caller so a dropped connection does
	// not leave a half-issued booking
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.SubmissionTimeout)
	defer cancel()

	startTime := time.Now()
	resp, err := s.provider.Book(callCtx, req)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.abandoned {
		logger.WithField("pnr", pnrOf(resp)).Warn("Discarding submission result for abandoned session")
		return models.BookingSession{}, models.ErrSessionNotFound
	}

	if err == nil && resp == nil {
		err = errMissingConfirmation
	}
	if err != nil {
		pErr := &models.ProviderError{Op: "book", Err: err}
		logger.WithError(err).Error("Booking submission failed")
		return s.recordFailure(entry, pErr)
	}

	confirmed, err := s.machine.Dispatch(entry.session, wizard.SubmissionSucceeded{Response: resp})
	if err != nil {
		logger.WithError(err).Error("Failed to record booking confirmation")
		return s.recordFailure(entry, fmt.Errorf("failed to record confirmation: %w", err))
	}
	entry.session = confirmed
	entry.touched = time.Now()

	logger.WithFields(logrus.Fields{
		"pnr":         resp.PNR,
		"amount":      req.CWPaymentAmount,
		"response_ms": time.Since(startTime).Milliseconds(),
	}).Info("Booking confirmed")

	s.persist(confirmed, req, resp)
	s.closeSearch(confirmed.SearchSessionID)

	return confirmed.Clone(), nil
}

func (s *BookingOrchestratorService) failSubmission(entry *bookingEntry, cause error) (models.BookingSession, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.abandoned {
		return models.BookingSession{}, models.ErrSessionNotFound
	}
	return s.recordFailure(entry, cause)
}

// recordFailure clears the submitting guard. Caller holds entry.mu.
func (s *BookingOrchestratorService) recordFailure(entry *bookingEntry, cause error) (models.BookingSession, error) {
	failed, err := s.machine.Dispatch(entry.session, wizard.SubmissionFailed{Err: cause})
	if err == nil {
		entry.session = failed
	} else {
		s.logger.WithError(err).WithField("booking_id", entry.session.ID).Error("Failed to clear submission state")
	}
	entry.touched = time.Now()
	return entry.session.Clone(), cause
}

func (s *BookingOrchestratorService) checkBalance(agent models.Agent, amount float64) error {
	if !s.config.CheckAgentBalance || s.accounts == nil {
		return nil
	}
	account, err := s.accounts.GetByAgentID(agent.ID)
	if err != nil {
		if errors.Is(err, models.ErrAgentAccountMissing) {
			return &models.BusinessRuleError{
				Code:    models.RuleInsufficientBalance,
				Message: "no on-account balance is set up for this agent",
			}
		}
		return fmt.Errorf("failed to read agent balance: %w", err)
	}
	if !account.CanCover(amount) {
		return &models.BusinessRuleError{
			Code:    models.RuleInsufficientBalance,
			Message: fmt.Sprintf("insufficient balance: %.2f %s available, %.2f required", account.Balance, account.Currency, amount),
		}
	}
	return nil
}

// persist records the confirmation and debits the agent. Failures are logged
// only; the booking is already issued at the provider.
func (s *BookingOrchestratorService) persist(session models.BookingSession, req *models.BookingRequest, resp *models.BookingResponse) {
	logger := s.logger.WithFields(logrus.Fields{
		"booking_id": session.ID,
		"pnr":        resp.PNR,
	})

	if s.records != nil {
		record, err := models.NewBookingRecord(session, req, resp)
		if err != nil {
			logger.WithError(err).Warn("Failed to build booking record")
		} else {
			if record.Currency == "" {
				record.Currency = s.config.DefaultCurrency
			}
			if err := s.records.Create(record); err != nil {
				logger.WithError(err).Warn("Failed to persist booking record")
			}
		}
	}

	if s.config.CheckAgentBalance && s.accounts != nil {
		if err := s.accounts.Debit(session.AgentID, req.CWPaymentAmount); err != nil {
			logger.WithError(err).Warn("Failed to debit agent balance")
		}
	}
}

func (s *BookingOrchestratorService) closeSearch(searchSessionID uuid.UUID) {
	s.mu.Lock()
	search, ok := s.searches[searchSessionID]
	delete(s.searches, searchSessionID)
	s.mu.Unlock()
	if ok {
		search.Close()
	}
}

func pnrOf(resp *models.BookingResponse) string {
	if resp == nil {
		return ""
	}
	return resp.PNR
}

// ============================================================================
// HISTORY & MAINTENANCE
// ============================================================================

// GetBooking returns a persisted confirmation by PNR
func (s *BookingOrchestratorService) GetBooking(agent models.Agent, pnr string) (*models.BookingRecord, error) {
	if s.records == nil {
		return nil, models.ErrBookingNotFound
	}
	return s.records.GetByPNR(agent.ID, pnr)
}

// ListBookings returns the agent's booking history, newest first
func (s *BookingOrchestratorService) ListBookings(agent models.Agent, limit, offset int) ([]models.BookingRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if s.records == nil {
		return []models.BookingRecord{}, 0, nil
	}
	return s.records.ListByAgent(agent.ID, limit, offset)
}

// SweepIdle discards sessions untouched for longer than maxIdle. Booking
// sessions with a submission in flight are kept.
func (s *BookingOrchestratorService) SweepIdle(maxIdle time.Duration) (searches, bookings int) {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.RLock()
	searchSnapshot := make(map[uuid.UUID]*SearchSession, len(s.searches))
	for id, search := range s.searches {
		searchSnapshot[id] = search
	}
	bookingSnapshot := make(map[uuid.UUID]*bookingEntry, len(s.bookings))
	for id, entry := range s.bookings {
		bookingSnapshot[id] = entry
	}
	s.mu.RUnlock()

	for id, search := range searchSnapshot {
		if !search.idleSince().Before(cutoff) {
			continue
		}
		s.mu.Lock()
		delete(s.searches, id)
		s.mu.Unlock()
		search.Close()
		searches++
	}

	// entry locks are never held while taking s.mu here
	for id, entry := range bookingSnapshot {
		entry.mu.Lock()
		idle := !entry.session.IsSubmitting && entry.touched.Before(cutoff)
		if idle {
			entry.abandoned = true
		}
		entry.mu.Unlock()
		if !idle {
			continue
		}
		s.mu.Lock()
		delete(s.bookings, id)
		s.mu.Unlock()
		bookings++
	}

	return searches, bookings
}

// SessionCounts reports how many sessions are held in memory
func (s *BookingOrchestratorService) SessionCounts() (searches, bookings int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.searches), len(s.bookings)
}
