package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/session"
	"github.com/alextreichler/shopfront/internal/state"
)

// Orchestrator owns the checkout attempt of one browsing session. Its mutex
// is never held across a gateway call.
type Orchestrator struct {
	orders   Orders
	token    Token
	journal  Journal
	shopName string
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	attempt  Attempt
	captured map[string]bool
}

type Option func(*Orchestrator)

func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithShopName(name string) Option {
	return func(o *Orchestrator) { o.shopName = name }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(orders Orders, token Token, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		orders:   orders,
		token:    token,
		shopName: "Shop",
		logger:   slog.Default(),
		now:      time.Now,
		captured: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Attempt returns a snapshot of the current attempt.
func (o *Orchestrator) Attempt() Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempt
}

// HandleCheckout validates the input, creates the order and returns the
// options the payment widget must be opened with. An attempt still waiting
// on the widget is recorded as failed and replaced. Failures leave the
// orchestrator Idle with the failure recorded on the attempt.
func (o *Orchestrator) HandleCheckout(ctx context.Context, in Input) (*WidgetOptions, error) {
	o.mu.Lock()
	if o.attempt.Phase.busy() {
		o.mu.Unlock()
		return nil, ErrAttemptInProgress
	}
	now := o.now()
	var abandoned *Attempt
	if o.attempt.Phase == AwaitingExternalPayment {
		prev := o.attempt
		prev.Phase = Failed
		prev.Failure = state.Provider("Checkout was abandoned before payment.")
		prev.Route = RouteFailure
		prev.UpdatedAt = now
		abandoned = &prev
	}
	o.attempt = Attempt{
		ID:        uuid.NewString(),
		SessionID: o.token.SessionID(),
		Phase:     Validating,
		StartedAt: now,
		UpdatedAt: now,
	}
	id := o.attempt.ID
	snap := o.attempt
	o.mu.Unlock()
	if abandoned != nil {
		// The widget never reported back. Its order is dropped with its token.
		o.eraseToken(ctx)
		o.record(ctx, *abandoned)
		o.logger.Info("checkout attempt abandoned", "attempt", abandoned.ID, "order", abandoned.OrderID, "replaced_by", id)
	}
	o.record(ctx, snap)

	if f := validate(in); f != nil {
		o.abort(ctx, id, f, false)
		return nil, f
	}

	draft := o.draft(in)
	if !o.transition(ctx, id, func(a *Attempt) {
		a.Phase = OrderCreating
		a.Amount = draft.TotalAmount
	}) {
		return nil, ErrAttemptInProgress
	}

	created, err := o.orders.Create(ctx, draft)
	if err != nil {
		f := state.FailureFrom(err, "Failed to create order.")
		o.abort(ctx, id, f, true)
		return nil, f
	}
	sess := created.PaymentSession()
	if sess.SessionKey == "" || sess.ProviderOrderID == "" || sess.Amount <= 0 {
		f := state.Provider("Payment session could not be started. Please try again.")
		o.abort(ctx, id, f, true)
		return nil, f
	}

	if !o.transition(ctx, id, func(a *Attempt) {
		a.Phase = AwaitingExternalPayment
		a.OrderID = created.Order.ID
		a.ProviderOrderID = sess.ProviderOrderID
	}) {
		// Reset won the race while the order was being created.
		o.eraseToken(ctx)
		return nil, ErrAttemptInProgress
	}
	o.logger.Info("checkout awaiting payment", "attempt", id, "order", created.Order.ID, "provider_order", sess.ProviderOrderID)

	return &WidgetOptions{
		Key:             sess.SessionKey,
		Amount:          sess.Amount,
		Currency:        sess.Currency,
		OrderID:         sess.ProviderOrderID,
		InternalOrderID: created.Order.ID,
		Name:            o.shopName,
		Description:     "Order " + created.Order.ID,
		Prefill: Prefill{
			Name:    in.User.UserName,
			Email:   in.User.Email,
			Contact: in.Address.Phone,
		},
		Notes: map[string]string{"address": in.Address.Address},
	}, nil
}

func validate(in Input) *state.Failure {
	switch {
	case in.User == nil:
		return state.Validation("Please log in to proceed with checkout.")
	case in.Cart.Empty():
		return state.Validation("Your cart is empty. Please add items to proceed.")
	case in.Address == nil:
		return state.Validation("Please select one address to proceed.")
	}
	return nil
}

func (o *Orchestrator) draft(in Input) models.OrderDraft {
	items := make([]models.OrderItem, 0, len(in.Cart.Items))
	for _, item := range in.Cart.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Image:     item.Image,
			Price:     item.UnitPrice(),
			Quantity:  item.Quantity,
		})
	}
	now := o.now()
	return models.OrderDraft{
		UserID: in.User.ID,
		CartID: in.Cart.ID,
		Items:  items,
		AddressInfo: models.AddressInfo{
			AddressID: in.Address.ID,
			Address:   in.Address.Address,
			City:      in.Address.City,
			Pincode:   in.Address.Pincode,
			Phone:     in.Address.Phone,
			Notes:     in.Address.Notes,
		},
		OrderStatus:     models.OrderPending,
		PaymentMethod:   models.PaymentMethodRazorpay,
		PaymentStatus:   models.PaymentDraft,
		TotalAmount:     in.Cart.Total().InexactFloat64(),
		OrderDate:       now,
		OrderUpdateDate: now,
	}
}

// Capture handles the widget's success callback.
func (o *Orchestrator) Capture(ctx context.Context, proof models.PaymentProof) (Result, error) {
	return o.capture(ctx, proof, "callback")
}

// HandleReturn handles the provider's return redirect, whose query carries
// the same proof fields as the widget callback.
func (o *Orchestrator) HandleReturn(ctx context.Context, q url.Values) (Result, error) {
	proof := models.PaymentProof{
		PaymentID: strings.TrimSpace(q.Get("razorpay_payment_id")),
		OrderID:   strings.TrimSpace(q.Get("razorpay_order_id")),
		Signature: strings.TrimSpace(q.Get("razorpay_signature")),
	}
	return o.capture(ctx, proof, "redirect")
}

func (o *Orchestrator) capture(ctx context.Context, proof models.PaymentProof, trigger string) (Result, error) {
	o.mu.Lock()
	if o.attempt.Phase == Capturing {
		o.mu.Unlock()
		return Result{}, ErrCaptureInProgress
	}
	if proof.OrderID != "" && o.captured[proof.OrderID] {
		o.mu.Unlock()
		o.logger.Info("payment already captured", "provider_order", proof.OrderID, "trigger", trigger)
		return Result{Route: RouteSuccess}, nil
	}
	o.ensureAttempt()
	id := o.attempt.ID
	o.mu.Unlock()

	orderID, err := o.token.Get(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			o.logger.Error("reading checkout token", "error", err)
		}
		f := state.Validation("No pending order found for this payment. Please checkout again.")
		return o.fail(ctx, id, f, false)
	}
	if !proof.Complete() {
		f := state.Provider("Payment details are incomplete.")
		return o.fail(ctx, id, f, false)
	}

	o.mu.Lock()
	if o.attempt.ID != id || o.attempt.Phase == Capturing {
		o.mu.Unlock()
		return Result{}, ErrCaptureInProgress
	}
	o.attempt.Phase = Capturing
	o.attempt.OrderID = orderID
	o.attempt.ProviderOrderID = proof.OrderID
	o.attempt.PaymentID = proof.PaymentID
	o.attempt.Failure = nil
	o.attempt.UpdatedAt = o.now()
	snap := o.attempt
	o.mu.Unlock()
	o.record(ctx, snap)

	order, err := o.orders.Capture(ctx, models.CaptureRequest{PaymentProof: proof, OrderID: orderID})
	if err != nil {
		f := state.FailureFrom(err, "Payment capture failed.")
		// A transport failure means the backend never ruled on the payment,
		// so the token stays for a later retry through the return redirect.
		return o.fail(ctx, id, f, f.Kind != state.KindTransport)
	}

	o.eraseToken(ctx)
	o.mu.Lock()
	o.captured[proof.OrderID] = true
	o.mu.Unlock()
	o.transition(ctx, id, func(a *Attempt) {
		a.Phase = Captured
		a.Route = RouteSuccess
	})
	o.logger.Info("payment captured", "attempt", id, "order", orderID, "payment", proof.PaymentID, "trigger", trigger)
	return Result{Route: RouteSuccess, Order: order}, nil
}

// ensureAttempt starts a fresh attempt when a capture arrives without one,
// as after a server restart between checkout and the provider redirect.
// Callers hold o.mu.
func (o *Orchestrator) ensureAttempt() {
	if o.attempt.ID != "" && o.attempt.Phase != Captured {
		return
	}
	now := o.now()
	o.attempt = Attempt{
		ID:        uuid.NewString(),
		SessionID: o.token.SessionID(),
		Phase:     AwaitingExternalPayment,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// FailWidget handles the widget's failure callback.
func (o *Orchestrator) FailWidget(ctx context.Context, reason string) (Result, error) {
	o.mu.Lock()
	if o.attempt.Phase == Capturing {
		o.mu.Unlock()
		return Result{}, ErrCaptureInProgress
	}
	o.ensureAttempt()
	id := o.attempt.ID
	o.mu.Unlock()

	if strings.TrimSpace(reason) == "" {
		reason = "Payment was not completed."
	}
	return o.fail(ctx, id, state.Provider(reason), true)
}

// Reset discards the attempt and erases the token.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	o.attempt = Attempt{}
	o.mu.Unlock()
	return o.token.Erase(ctx)
}

func (o *Orchestrator) fail(ctx context.Context, id string, f *state.Failure, erase bool) (Result, error) {
	if erase {
		o.eraseToken(ctx)
	}
	o.transition(ctx, id, func(a *Attempt) {
		a.Phase = Failed
		a.Failure = f
		a.Route = RouteFailure
	})
	o.logger.Warn("checkout failed", "attempt", id, "kind", f.Kind, "error", f.Message, "token_kept", !erase)
	return Result{Route: RouteFailure}, f
}

// abort drops an attempt that failed before capture back to Idle.
func (o *Orchestrator) abort(ctx context.Context, id string, f *state.Failure, erase bool) {
	if erase {
		o.eraseToken(ctx)
	}
	o.transition(ctx, id, func(a *Attempt) {
		a.Phase = Idle
		a.Failure = f
	})
	o.logger.Warn("checkout aborted", "attempt", id, "kind", f.Kind, "error", f.Message)
}

// transition applies fn if id is still the current attempt.
func (o *Orchestrator) transition(ctx context.Context, id string, fn func(*Attempt)) bool {
	o.mu.Lock()
	if o.attempt.ID != id {
		o.mu.Unlock()
		return false
	}
	fn(&o.attempt)
	o.attempt.UpdatedAt = o.now()
	snap := o.attempt
	o.mu.Unlock()
	o.record(ctx, snap)
	return true
}

func (o *Orchestrator) eraseToken(ctx context.Context) {
	if err := o.token.Erase(ctx); err != nil {
		o.logger.Error("erasing checkout token", "error", err)
	}
}

func (o *Orchestrator) record(ctx context.Context, a Attempt) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(ctx, a); err != nil {
		o.logger.Warn("recording checkout attempt", "attempt", a.ID, "error", err)
	}
}
