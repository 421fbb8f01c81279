package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"homescout/internal/calendar"
	"homescout/internal/metrics"
	"homescout/internal/model"
)

// ErrEmptyStay rejects checkout attempts for zero-night ranges before
// they reach the backend.
var ErrEmptyStay = fmt.Errorf("booking needs at least one night")

type checkoutRequest struct {
	PropertyID string `json:"property_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Reference  string `json:"reference"`
}

// CreateCheckoutSession books the range and returns the external payment
// redirect. Each call carries a fresh reference id so the backend can
// deduplicate a retried submission.
func (c *Client) CreateCheckoutSession(ctx context.Context, propertyID string, start, end time.Time) (*model.CheckoutSession, error) {
	if calendar.Nights(start, end) <= 0 {
		return nil, ErrEmptyStay
	}

	body := checkoutRequest{
		PropertyID: propertyID,
		StartDate:  calendar.FormatDay(start),
		EndDate:    calendar.FormatDay(end),
		Reference:  uuid.NewString(),
	}

	var sess model.CheckoutSession
	if err := c.doPost(ctx, "/api/v1/bookings/checkout-session", body, &sess); err != nil {
		return nil, err
	}

	metrics.IncCheckoutSession()
	// The property's availability just changed under the cache.
	c.dropCache(ctx, bookedDatesCacheKey(propertyID))
	return &sess, nil
}

// CancelCheckout aborts a pending checkout session.
func (c *Client) CancelCheckout(ctx context.Context, sessionID string) error {
	endpoint := fmt.Sprintf("/api/v1/bookings/checkout-session/%s/cancel", url.PathEscape(sessionID))
	return c.doPost(ctx, endpoint, nil, nil)
}

// ConfirmCheckout finalizes a paid checkout session and returns the
// resulting booking.
func (c *Client) ConfirmCheckout(ctx context.Context, sessionID string) (*model.Booking, error) {
	endpoint := fmt.Sprintf("/api/v1/bookings/checkout-session/%s/confirm", url.PathEscape(sessionID))
	var b model.Booking
	if err := c.doPost(ctx, endpoint, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// MyBookings returns the signed-in user's bookings.
func (c *Client) MyBookings(ctx context.Context) ([]model.Booking, error) {
	var wrap struct {
		Bookings []model.Booking `json:"bookings"`
	}
	if err := c.doGet(ctx, "/api/v1/bookings", &wrap); err != nil {
		return nil, err
	}
	return wrap.Bookings, nil
}
