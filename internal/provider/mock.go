package provider

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

//go:embed fixtures/itineraries.json
var defaultFixture []byte

// MockProvider serves itineraries from a fixture file and confirms every
// valid booking. Used in development and tests.
type MockProvider struct {
	path    string
	delay   time.Duration
	logger  *logrus.Logger
	agency  string
	tickets func() string
}

// NewMockProvider reads fixtures from path, or the built-in set when path is empty
func NewMockProvider(path string, delay time.Duration, logger *logrus.Logger) *MockProvider {
	return &MockProvider{
		path:   path,
		delay:  delay,
		logger: logger,
		agency: "MOCK",
		tickets: func() string {
			return fmt.Sprintf("%03d%010d", 603, rand.Int63n(1e10))
		},
	}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.delay):
		return nil
	}
}

func (m *MockProvider) fixture() ([]byte, error) {
	if m.path == "" {
		return defaultFixture, nil
	}
	data, err := os.ReadFile(filepath.Clean(m.path))
	if err != nil {
		return nil, fmt.Errorf("mock read fixture: %w", err)
	}
	return data, nil
}

// Search returns fixture itineraries between the requested cities, shifted
// onto the requested departure date.
func (m *MockProvider) Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	data, err := m.fixture()
	if err != nil {
		return nil, err
	}
	all, err := decodeItineraries(data, m.logger)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(wireDateLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("mock search date: %w", err)
	}

	out := make([]models.Itinerary, 0, len(all))
	for _, it := range all {
		if !matchesPlace(it.Segments[0].OriginCode, it.Segments[0].OriginName, req.Origin) {
			continue
		}
		last := it.Segments[len(it.Segments)-1]
		if !matchesPlace(last.DestinationCode, last.DestinationName, req.Destination) {
			continue
		}
		if FlightClassFor(it.CabinClass) != req.FlightClass {
			continue
		}
		out = append(out, rebase(it, date))
	}
	return out, nil
}

func matchesPlace(code, name, query string) bool {
	return query == "" || strings.EqualFold(code, query) || strings.EqualFold(name, query)
}

// rebase moves every segment by the whole days between the fixture's first
// departure and date, keeping local times and connection gaps.
func rebase(it models.Itinerary, date time.Time) models.Itinerary {
	first := it.FirstDeparture()
	fixtureDay := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	wantDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	days := int(math.Round(wantDay.Sub(fixtureDay).Hours() / 24))

	out := it.Clone()
	for i := range out.Segments {
		out.Segments[i].DepartureTime = out.Segments[i].DepartureTime.AddDate(0, 0, days)
		out.Segments[i].ArrivalTime = out.Segments[i].ArrivalTime.AddDate(0, 0, days)
	}
	out.TransactionID = fmt.Sprintf("%s-%s", it.TransactionID, wantDay.Format("20060102"))
	return out
}

// Book confirms the request with generated PNR and ticket numbers
func (m *MockProvider) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pnr := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	currency := "USD"

	resp := &models.BookingResponse{
		PNR: pnr,
		TotalFareSummary: models.FareSummary{
			BaseFare:       req.CWPaymentAmount,
			TotalFare:      req.CWPaymentAmount,
			TotalEquivFare: req.CWPaymentAmount,
			Currency:       currency,
			Taxes:          []models.Charge{},
			Fees:           []models.Charge{},
		},
		Payment: models.PaymentConfirmation{
			AgencyCode:      req.POS,
			AgencyName:      req.CompanyName,
			PaymentAmount:   req.CWPaymentAmount,
			PaymentCurrency: currency,
		},
		TicketingStatus: models.TicketingStatus{
			StatusCode: "TICKETED",
			Advisory:   fmt.Sprintf("Tickets issued by %s", m.agency),
		},
		ContactInfo: req.ContactInfo,
	}

	for _, seg := range req.Segments {
		resp.FlightSegments = append(resp.FlightSegments, models.ConfirmedSegment{
			AirlineCode:   seg.AirlineCode,
			FlightNumber:  seg.FlightNumber,
			Origin:        seg.OriginCode,
			Destination:   seg.DestinationCode,
			DepartureTime: seg.DepartureTime.Format(time.RFC3339),
			ArrivalTime:   seg.ArrivalTime.Format(time.RFC3339),
			Status:        "HK",
		})
	}
	for _, t := range req.TravelersInfo {
		resp.Passengers = append(resp.Passengers, models.TicketedPassenger{
			Type:      t.Type,
			FirstName: t.FirstName,
			LastName:  t.LastName,
			ETicket: models.ETicket{
				Number:     m.tickets(),
				Status:     "OPEN",
				UsedStatus: "UNUSED",
			},
			FareBreakdown: models.PassengerFareLine{Currency: currency},
		})
	}

	m.logger.WithFields(logrus.Fields{
		"pnr":            pnr,
		"transaction_id": req.TransactionID,
		"travelers":      len(req.TravelersInfo),
	}).Info("Mock booking confirmed")

	return resp, nil
}
