package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSessionRejectsEmptyStay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the backend")
	}))
	defer srv.Close()
	client, _, _ := newTestClient(t, srv)

	d := day("2025-06-10")
	_, err := client.CreateCheckoutSession(context.Background(), "p1", d, d)
	assert.ErrorIs(t, err, ErrEmptyStay)

	_, err = client.CreateCheckoutSession(context.Background(), "p1", day("2025-06-12"), day("2025-06-10"))
	assert.ErrorIs(t, err, ErrEmptyStay)
}

func TestCreateCheckoutSession(t *testing.T) {
	var got checkoutRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings/checkout-session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, map[string]string{"session_id": "cs_123", "url": "https://pay.example.com/cs_123"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _, _ := newTestClient(t, srv)

	sess, err := client.CreateCheckoutSession(context.Background(), "p1", day("2025-06-01"), day("2025-06-09"))
	require.NoError(t, err)
	assert.Equal(t, "cs_123", sess.SessionID)
	assert.Equal(t, "https://pay.example.com/cs_123", sess.URL)

	assert.Equal(t, "p1", got.PropertyID)
	assert.Equal(t, "2025-06-01", got.StartDate)
	assert.Equal(t, "2025-06-09", got.EndDate)
	_, err = uuid.Parse(got.Reference)
	assert.NoError(t, err, "reference is a valid uuid")
}

func TestConfirmAndCancelCheckout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings/checkout-session/cs_123/confirm", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":          "b1",
			"property_id": "p1",
			"start_date":  "2025-06-01",
			"end_date":    "2025-06-09",
			"nights":      8,
			"total":       800,
			"status":      "confirmed",
			"created_at":  time.Now().UTC(),
		})
	})
	mux.HandleFunc("/api/v1/bookings/checkout-session/cs_456/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _, _ := newTestClient(t, srv)

	b, err := client.ConfirmCheckout(context.Background(), "cs_123")
	require.NoError(t, err)
	assert.Equal(t, 8, b.Nights)
	assert.Equal(t, float64(800), b.Total)
	assert.Equal(t, "confirmed", b.Status)

	assert.NoError(t, client.CancelCheckout(context.Background(), "cs_456"))
}

func TestMyBookings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"bookings": []map[string]any{
			{"id": "b1", "status": "confirmed"},
			{"id": "b2", "status": "pending"},
		}})
	}))
	defer srv.Close()

	client, _, _ := newTestClient(t, srv)

	bookings, err := client.MyBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "b1", bookings[0].ID)
	assert.Equal(t, "pending", bookings[1].Status)
}
