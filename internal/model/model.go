package model

import "time"

// ListingKind separates sale listings from rentals.
type ListingKind string

const (
	ListingForSale ListingKind = "sale"
	ListingForRent ListingKind = "rent"
)

// Property is a marketplace listing as returned by the backend.
type Property struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Kind          ListingKind `json:"kind"`
	City          string      `json:"city"`
	Address       string      `json:"address,omitempty"`
	Price         float64     `json:"price,omitempty"`
	PricePerNight float64     `json:"price_per_night,omitempty"`
	Bedrooms      int         `json:"bedrooms,omitempty"`
	Bathrooms     int         `json:"bathrooms,omitempty"`
	AreaSqM       float64     `json:"area_sq_m,omitempty"`
	Images        []string    `json:"images,omitempty"`
	Favorite      bool        `json:"favorite,omitempty"`
}

// Booking is a stay reservation owned by the current user.
type Booking struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Property   string    `json:"property,omitempty"`
	StartDate  string    `json:"start_date"` // YYYY-MM-DD
	EndDate    string    `json:"end_date"`   // YYYY-MM-DD
	Nights     int       `json:"nights"`
	Total      float64   `json:"total"`
	Status     string    `json:"status"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is the cached profile of the signed-in account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CheckoutSession is the redirect handle returned when a booking is paid
// through the external checkout provider.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// ChatReply is the chatbot's answer to a property-interest message.
type ChatReply struct {
	Reply string `json:"reply"`
}
