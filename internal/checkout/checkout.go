// Package checkout drives one checkout attempt from cart validation through
// order creation, the hosted payment widget and payment capture.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

type Phase int

const (
	Idle Phase = iota
	Validating
	OrderCreating
	AwaitingExternalPayment
	Capturing
	Captured
	Failed
)

var phaseNames = [...]string{
	Idle:                    "idle",
	Validating:              "validating",
	OrderCreating:           "order_creating",
	AwaitingExternalPayment: "awaiting_payment",
	Capturing:               "capturing",
	Captured:                "captured",
	Failed:                  "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// busy reports whether an attempt in phase p has a gateway call in flight.
// An attempt waiting on the payment widget is not busy and can be replaced.
func (p Phase) busy() bool {
	return p == Validating || p == OrderCreating || p == Capturing
}

const (
	RouteSuccess = "/shop/payment-success"
	RouteFailure = "/shop/payment-failed"
)

var (
	ErrAttemptInProgress = errors.New("checkout: an attempt is already in progress")
	ErrCaptureInProgress = errors.New("checkout: payment capture already in progress")
)

// Input is what the view hands over when the shopper clicks checkout.
type Input struct {
	User    *models.User
	Cart    *models.Cart
	Address *models.Address
}

// WidgetOptions is what the hosted payment widget is opened with.
type WidgetOptions struct {
	Key             string            `json:"key"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	OrderID         string            `json:"order_id"`
	InternalOrderID string            `json:"internalOrderId"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Prefill         Prefill           `json:"prefill"`
	Notes           map[string]string `json:"notes,omitempty"`
}

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Attempt is a snapshot of the current checkout attempt.
type Attempt struct {
	ID              string         `json:"id"`
	SessionID       string         `json:"sessionId"`
	Phase           Phase          `json:"phase"`
	OrderID         string         `json:"orderId,omitempty"`
	ProviderOrderID string         `json:"providerOrderId,omitempty"`
	PaymentID       string         `json:"paymentId,omitempty"`
	Amount          float64        `json:"amount"`
	Route           string         `json:"route,omitempty"`
	Failure         *state.Failure `json:"failure,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Result is where capture left the shopper.
type Result struct {
	Route string        `json:"route"`
	Order *models.Order `json:"order,omitempty"`
}

// Journal records every attempt transition.
type Journal interface {
	Record(ctx context.Context, a Attempt) error
}

// Orders is the part of the order slice the orchestrator drives.
type Orders interface {
	Create(ctx context.Context, draft models.OrderDraft) (*models.CreatedOrder, error)
	Capture(ctx context.Context, req models.CaptureRequest) (*models.Order, error)
}

// Token reads and erases the session's correlation token. Writing it is the
// order slice's job.
type Token interface {
	SessionID() string
	Get(ctx context.Context) (string, error)
	Erase(ctx context.Context) error
}
