package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// HTTPProvider talks to the live provider API
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Logger
}

// NewHTTPProvider creates a live provider client
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (p *HTTPProvider) Name() string {
	return "interline-api"
}

// Search requests itineraries for the criteria
func (p *HTTPProvider) Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error) {
	data, err := p.post(ctx, "/flights/search", req)
	if err != nil {
		return nil, err
	}
	itineraries, err := decodeItineraries(data, p.logger)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"origin":      req.Origin,
		"destination": req.Destination,
		"date":        req.Date,
		"results":     len(itineraries),
	}).Info("Provider search completed")

	return itineraries, nil
}

// Book submits a booking request. It is never retried.
func (p *HTTPProvider) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingResponse, error) {
	data, err := p.post(ctx, "/bookings", req)
	if err != nil {
		return nil, err
	}
	var resp models.BookingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse booking response: %w", err)
	}
	if resp.PNR == "" {
		return nil, fmt.Errorf("booking response has no PNR")
	}

	p.logger.WithFields(logrus.Fields{
		"transaction_id": req.TransactionID,
		"pnr":            resp.PNR,
		"ticketing":      resp.TicketingStatus.StatusCode,
	}).Info("Provider booking confirmed")

	return &resp, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.WithError(err).WithField("path", path).Error("Failed to call provider")
		return nil, fmt.Errorf("%w: %v", ErrTemporary, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrTemporary, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		p.logger.WithFields(logrus.Fields{
			"path":        path,
			"status_code": resp.StatusCode,
		}).Warn("Provider unavailable")
		return nil, fmt.Errorf("%w: status %d", ErrTemporary, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to parse provider response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, errors.New(msg)
	}
	return env.Data, nil
}
