package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/refdata"
	"github.com/smarttransit/interline-booking-backend/internal/utils"
	"github.com/smarttransit/interline-booking-backend/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecords struct {
	mu      sync.Mutex
	records []*models.BookingRecord
	err     error
}

func (r *memoryRecords) Create(record *models.BookingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memoryRecords) GetByPNR(agentID uuid.UUID, pnr string) (*models.BookingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.AgentID == agentID && rec.PNR == pnr {
			return rec, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (r *memoryRecords) ListByAgent(agentID uuid.UUID, limit, offset int) ([]models.BookingRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BookingRecord
	for _, rec := range r.records {
		if rec.AgentID == agentID {
			out = append(out, *rec)
		}
	}
	total := len(out)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *memoryRecords) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type memoryAccounts struct {
	mu       sync.Mutex
	balances map[uuid.UUID]float64
	debits   []float64
}

func (a *memoryAccounts) GetByAgentID(agentID uuid.UUID) (*models.AgentAccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	balance, ok := a.balances[agentID]
	if !ok {
		return nil, models.ErrAgentAccountMissing
	}
	return &models.AgentAccount{AgentID: agentID, Balance: balance, Currency: "USD"}, nil
}

func (a *memoryAccounts) Debit(agentID uuid.UUID, amount float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[agentID] -= amount
	a.debits = append(a.debits, amount)
	return nil
}

type channelSearchLog struct {
	logs chan *models.SearchLog
}

func (l *channelSearchLog) LogSearch(log *models.SearchLog) error {
	l.logs <- log
	return nil
}

type orchestratorFixture struct {
	service  *BookingOrchestratorService
	provider *stubProvider
	records  *memoryRecords
	accounts *memoryAccounts
	searches *channelSearchLog
	agent    models.Agent
}

func confirmation() *models.BookingResponse {
	return &models.BookingResponse{
		PNR: "ZX81QK",
		TotalFareSummary: models.FareSummary{
			BaseFare:  310,
			TotalFare: 310,
			Currency:  "USD",
		},
		Passengers: []models.TicketedPassenger{
			{Type: "ADT", ETicket: models.ETicket{Number: "6031234567890", Status: "OPEN"}},
		},
		TicketingStatus: models.TicketingStatus{StatusCode: "TICKETED"},
	}
}

func setupOrchestratorTest(t *testing.T) *orchestratorFixture {
	t.Helper()
	agent := testAgent()
	f := &orchestratorFixture{
		provider: &stubProvider{itineraries: sevenItineraries(), bookResp: confirmation()},
		records:  &memoryRecords{},
		accounts: &memoryAccounts{balances: map[uuid.UUID]float64{agent.ID: 5000}},
		searches: &channelSearchLog{logs: make(chan *models.SearchLog, 10)},
		agent:    agent,
	}
	config := DefaultOrchestratorConfig()
	config.SubmissionTimeout = 2 * time.Second
	f.service = NewBookingOrchestratorService(
		f.provider,
		wizard.NewMachine(refdata.Default()),
		NewBookingAssembler(refdata.Default()),
		f.records,
		f.accounts,
		f.searches,
		config,
		quietLogger(),
	)
	return f
}

// selectAndStart runs search and selection and opens the booking wizard
func (f *orchestratorFixture) selectAndStart(t *testing.T) (uuid.UUID, models.BookingSession) {
	t.Helper()
	view := f.service.CreateSearchSession(f.agent)
	_, err := f.service.Search(context.Background(), f.agent, view.ID, oneWayCriteria(), utils.RequestClient{IP: "203.0.113.9"})
	require.NoError(t, err)
	_, err = f.service.SelectItinerary(f.agent, view.ID, "it-2")
	require.NoError(t, err)

	session, err := f.service.StartBooking(f.agent, view.ID)
	require.NoError(t, err)
	return view.ID, session
}

// fillWizard completes passengers and contact, leaving the session ready to submit
func (f *orchestratorFixture) fillWizard(t *testing.T, session models.BookingSession) {
	t.Helper()
	var err error
	for i := range session.Passengers {
		_, err = f.service.UpdatePassenger(f.agent, session.ID, i, passengerPatch("Traveller", models.GenderMale))
		require.NoError(t, err)
	}
	_, err = f.service.Advance(f.agent, session.ID)
	require.NoError(t, err)
	_, err = f.service.UpdateContact(f.agent, session.ID, contactPatch())
	require.NoError(t, err)
}

func TestOrchestrator_FullBookingFlow(t *testing.T) {
	f := setupOrchestratorTest(t)
	searchID, session := f.selectAndStart(t)

	assert.Equal(t, models.StepPassengerDetails, session.Step)
	assert.Equal(t, "it-2", session.Itinerary.ID)
	assert.Len(t, session.Passengers, 4)
	assert.Equal(t, f.agent.ID, session.AgentID)

	breakdown, err := f.service.FareBreakdown(f.agent, session.ID)
	require.NoError(t, err)
	// 410×2 + 410×1 + 410×1×0.1
	assert.Equal(t, 1271.0, breakdown.GrandTotal)

	f.fillWizard(t, session)

	confirmed, err := f.service.Submit(context.Background(), f.agent, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirmation, confirmed.Step)
	assert.False(t, confirmed.IsSubmitting)
	require.NotNil(t, confirmed.Confirmation)
	assert.Equal(t, "ZX81QK", confirmed.Confirmation.PNR)

	require.NotNil(t, f.provider.lastBook)
	assert.Equal(t, 1271.0, f.provider.lastBook.CWPaymentAmount)
	assert.Equal(t, "tx-it-2", f.provider.lastBook.TransactionID)
	assert.Equal(t, f.agent.POS, f.provider.lastBook.POS)

	require.Equal(t, 1, f.records.count())
	record, err := f.service.GetBooking(f.agent, "ZX81QK")
	require.NoError(t, err)
	assert.Equal(t, "CMB-DXB-LHR", record.Route)
	assert.Equal(t, []float64{1271.0}, f.accounts.debits)

	// the search session is released once the booking is confirmed
	_, err = f.service.ViewSearch(f.agent, searchID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	// confirmation is terminal
	_, err = f.service.Retreat(f.agent, session.ID)
	assert.ErrorIs(t, err, models.ErrSessionFinalized)

	reset, err := f.service.Reset(f.agent, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepPassengerDetails, reset.Step)
	assert.Nil(t, reset.Confirmation)
}

func TestOrchestrator_SearchIsLogged(t *testing.T) {
	f := setupOrchestratorTest(t)
	view := f.service.CreateSearchSession(f.agent)

	client := utils.RequestClient{IP: "203.0.113.9", DeviceType: "desktop", Browser: "Chrome"}
	result, err := f.service.Search(context.Background(), f.agent, view.ID, oneWayCriteria(), client)
	require.NoError(t, err)
	assert.Equal(t, 7, result.TotalResults)

	select {
	case log := <-f.searches.logs:
		assert.Equal(t, f.agent.ID, log.AgentID)
		assert.Equal(t, "CMB", log.FromCity)
		assert.Equal(t, 7, log.ResultsCount)
		assert.True(t, log.Succeeded)
		require.NotNil(t, log.IPAddress)
		assert.Equal(t, "203.0.113.9", *log.IPAddress)
	case <-time.After(time.Second):
		t.Fatal("search was not logged")
	}
}

func TestOrchestrator_InvalidSearchIsNotLogged(t *testing.T) {
	f := setupOrchestratorTest(t)
	view := f.service.CreateSearchSession(f.agent)

	criteria := oneWayCriteria()
	criteria.ToCity = "CMB"
	_, err := f.service.Search(context.Background(), f.agent, view.ID, criteria, utils.RequestClient{})

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, f.provider.searchCalls.Load())
	assert.Empty(t, f.searches.logs)
}

func TestOrchestrator_SessionOwnership(t *testing.T) {
	f := setupOrchestratorTest(t)
	_, session := f.selectAndStart(t)
	intruder := testAgent()

	_, err := f.service.GetBookingSession(intruder, session.ID)
	assert.ErrorIs(t, err, models.ErrSessionForbidden)

	_, err = f.service.Submit(context.Background(), intruder, session.ID)
	assert.ErrorIs(t, err, models.ErrSessionForbidden)

	assert.ErrorIs(t, f.service.Abandon(intruder, session.ID), models.ErrSessionForbidden)

	_, err = f.service.GetBookingSession(f.agent, uuid.New())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestOrchestrator_StartBookingRequiresSelection(t *testing.T) {
	f := setupOrchestratorTest(t)
	view := f.service.CreateSearchSession(f.agent)

	_, err := f.service.StartBooking(f.agent, view.ID)
	assert.ErrorIs(t, err, models.ErrNoSelection)
}

func TestOrchestrator_AdvanceReportsFirstFailingPassenger(t *testing.T) {
	f := setupOrchestratorTest(t)
	_, session := f.selectAndStart(t)

	_, err := f.service.UpdatePassenger(f.agent, session.ID, 0, passengerPatch("Nimal", models.GenderMale))
	require.NoError(t, err)

	got, err := f.service.Advance(f.agent, session.ID)

	var pErr *models.PassengerValidationError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, 1, pErr.Index)
	assert.Equal(t, "Adult #2", pErr.Label)
	require.NotNil(t, got.FocusedPassenger)
	assert.Equal(t, 1, *got.FocusedPassenger)
	assert.Equal(t, models.StepPassengerDetails, got.Step)

	stored, err := f.service.GetBookingSession(f.agent, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nimal", stored.Passengers[0].FirstName)
}

func TestOrchestrator_InsufficientBalance(t *testing.T) {
	f := setupOrchestratorTest(t)
	f.accounts.balances[f.agent.ID] = 100
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)

	got, err := f.service.Submit(context.Background(), f.agent, session.ID)

	var bErr *models.BusinessRuleError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, models.RuleInsufficientBalance, bErr.Code)
	assert.Zero(t, f.provider.bookCalls.Load())
	assert.Equal(t, models.StepContactInformation, got.Step)
	assert.False(t, got.IsSubmitting)
	assert.NotEmpty(t, got.LastError)
	assert.Equal(t, "Kamala", got.Contact.FirstName)
}

func TestOrchestrator_MissingAccountIsBusinessRule(t *testing.T) {
	f := setupOrchestratorTest(t)
	delete(f.accounts.balances, f.agent.ID)
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)

	_, err := f.service.Submit(context.Background(), f.agent, session.ID)

	var bErr *models.BusinessRuleError
	assert.ErrorAs(t, err, &bErr)
}

func TestOrchestrator_ProviderFailureReturnsToContact(t *testing.T) {
	f := setupOrchestratorTest(t)
	f.provider.bookErr = errors.New("fare no longer available")
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)

	got, err := f.service.Submit(context.Background(), f.agent, session.ID)

	var pErr *models.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "book", pErr.Op)
	assert.Equal(t, models.StepContactInformation, got.Step)
	assert.False(t, got.IsSubmitting)
	assert.Contains(t, got.LastError, "fare no longer available")
	assert.Zero(t, f.records.count())
	assert.Empty(t, f.accounts.debits)

	// retry succeeds with the data preserved
	f.provider.bookErr = nil
	got, err = f.service.Submit(context.Background(), f.agent, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirmation, got.Step)
}

func TestOrchestrator_EmptyConfirmationClearsSubmitting(t *testing.T) {
	f := setupOrchestratorTest(t)
	f.provider.bookResp = nil
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)

	got, err := f.service.Submit(context.Background(), f.agent, session.ID)

	var pErr *models.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, errMissingConfirmation)
	assert.False(t, got.IsSubmitting)
	assert.Equal(t, models.StepContactInformation, got.Step)
	assert.Zero(t, f.records.count())
	assert.Empty(t, f.accounts.debits)

	// the wizard is usable again
	_, err = f.service.Retreat(f.agent, session.ID)
	require.NoError(t, err)
	_, err = f.service.Reset(f.agent, session.ID)
	require.NoError(t, err)

	// and the sweeper no longer treats it as in flight
	_, bookings := f.service.SweepIdle(-time.Hour)
	assert.Equal(t, 1, bookings)
}

func TestOrchestrator_InvalidContactBlocksSubmission(t *testing.T) {
	f := setupOrchestratorTest(t)
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)

	_, err := f.service.UpdateContact(f.agent, session.ID, models.ContactPatch{City: strPtr("Dubai")})
	require.NoError(t, err)

	got, err := f.service.Submit(context.Background(), f.agent, session.ID)

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, got.ContactErrors, wizard.FieldCity)
	assert.False(t, got.IsSubmitting)
	assert.Zero(t, f.provider.bookCalls.Load())
}

func TestOrchestrator_ActionsRejectedWhileSubmitting(t *testing.T) {
	f := setupOrchestratorTest(t)
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)
	f.provider.hold = make(chan struct{})
	f.provider.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.service.Submit(context.Background(), f.agent, session.ID)
		done <- err
	}()
	<-f.provider.started

	current, err := f.service.GetBookingSession(f.agent, session.ID)
	require.NoError(t, err)
	assert.True(t, current.IsSubmitting)

	_, err = f.service.Submit(context.Background(), f.agent, session.ID)
	assert.ErrorIs(t, err, models.ErrSubmissionInFlight)
	_, err = f.service.Retreat(f.agent, session.ID)
	assert.ErrorIs(t, err, models.ErrSubmissionInFlight)
	_, err = f.service.Reset(f.agent, session.ID)
	assert.ErrorIs(t, err, models.ErrSubmissionInFlight)

	// sweeping never discards a booking in flight
	_, bookings := f.service.SweepIdle(-time.Hour)
	assert.Zero(t, bookings)

	close(f.provider.hold)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), f.provider.bookCalls.Load())
}

func TestOrchestrator_AbandonDiscardsLateResult(t *testing.T) {
	f := setupOrchestratorTest(t)
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)
	f.provider.hold = make(chan struct{})
	f.provider.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.service.Submit(context.Background(), f.agent, session.ID)
		done <- err
	}()
	<-f.provider.started

	require.NoError(t, f.service.Abandon(f.agent, session.ID))
	close(f.provider.hold)

	assert.ErrorIs(t, <-done, models.ErrSessionNotFound)
	assert.Zero(t, f.records.count())
	assert.Empty(t, f.accounts.debits)

	_, err := f.service.GetBookingSession(f.agent, session.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestOrchestrator_PersistFailureDoesNotFailBooking(t *testing.T) {
	f := setupOrchestratorTest(t)
	f.records.err = errors.New("connection reset")
	_, session := f.selectAndStart(t)
	f.fillWizard(t, session)

	got, err := f.service.Submit(context.Background(), f.agent, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirmation, got.Step)
	assert.Len(t, f.accounts.debits, 1)
}

func TestOrchestrator_SearchSessionLifecycle(t *testing.T) {
	f := setupOrchestratorTest(t)
	view := f.service.CreateSearchSession(f.agent)
	ctx := context.Background()

	_, err := f.service.Search(ctx, f.agent, view.ID, oneWayCriteria(), utils.RequestClient{})
	require.NoError(t, err)

	sorted, err := f.service.SortResults(f.agent, view.ID, "price")
	require.NoError(t, err)
	assert.Equal(t, 395.0, sorted.Page.Items[0].BasePrice)

	paged, err := f.service.SetPage(f.agent, view.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, paged.Page.Number)

	_, err = f.service.SetPage(f.agent, view.ID, 3)
	assert.ErrorIs(t, err, models.ErrPageOutOfRange)

	_, err = f.service.ViewSearch(testAgent(), view.ID)
	assert.ErrorIs(t, err, models.ErrSessionForbidden)

	require.NoError(t, f.service.DeleteSearchSession(f.agent, view.ID))
	_, err = f.service.ViewSearch(f.agent, view.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestOrchestrator_SweepIdle(t *testing.T) {
	f := setupOrchestratorTest(t)
	f.selectAndStart(t)
	f.service.CreateSearchSession(f.agent)

	searches, bookings := f.service.SweepIdle(time.Hour)
	assert.Zero(t, searches)
	assert.Zero(t, bookings)

	searches, bookings = f.service.SweepIdle(-time.Hour)
	assert.Equal(t, 2, searches)
	assert.Equal(t, 1, bookings)

	heldSearches, heldBookings := f.service.SessionCounts()
	assert.Zero(t, heldSearches)
	assert.Zero(t, heldBookings)
}

func TestOrchestrator_ListBookings(t *testing.T) {
	f := setupOrchestratorTest(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.records.Create(&models.BookingRecord{AgentID: f.agent.ID, PNR: uuid.NewString()[:6]}))
	}
	require.NoError(t, f.records.Create(&models.BookingRecord{AgentID: uuid.New(), PNR: "OTHER1"}))

	records, total, err := f.service.ListBookings(f.agent, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, records, 3)

	records, total, err = f.service.ListBookings(f.agent, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, records, 1)

	_, err = f.service.GetBooking(f.agent, "OTHER1")
	assert.ErrorIs(t, err, models.ErrBookingNotFound)
}
