package domain

import (
	"context"
	"time"
)

// Mailer delivers transactional mail out-of-band.
type Mailer interface {
	SendPasswordReset(to, name, resetURL string) error
	SendWelcome(to, name string) error
}

// CounterStore backs the fixed-window rate limiter. Incr bumps the counter
// for key inside the current window and returns the new count.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// PhotoStorage persists uploaded user photos and returns the stored
// filename.
type PhotoStorage interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// CheckoutSession is the handle returned by the payment provider.
type CheckoutSession struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	TourID   string  `json:"tour_id"`
	UserID   string  `json:"user_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Paid     bool    `json:"paid"`
}

// PaymentClient talks to the external checkout provider.
type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, tour *Tour, user *User) (*CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}
