package storefront

import (
	"context"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

type OrdersState struct {
	OrderID        string         `json:"orderId"`
	List           []models.Order `json:"orderList"`
	Details        *models.Order  `json:"orderDetails"`
	PaymentSuccess bool           `json:"paymentSuccess"`
	PaymentError   *state.Failure `json:"paymentError"`
}

type Orders struct {
	*state.Slice[OrdersState]
	api   OrderAPI
	token TokenWriter
}

func NewOrders(api OrderAPI, token TokenWriter, opts ...state.Option) *Orders {
	return &Orders{Slice: state.New("shopOrder", OrdersState{}, opts...), api: api, token: token}
}

func resetPayment(st *state.State[OrdersState]) {
	st.Data.PaymentSuccess = false
	st.Data.PaymentError = nil
}

// Create submits the draft and, once the server has assigned an id, writes
// it as the session's correlation token before the op is fulfilled.
func (o *Orders) Create(ctx context.Context, draft models.OrderDraft) (*models.CreatedOrder, error) {
	return state.Run(ctx, o.Slice, state.Op[OrdersState, *models.CreatedOrder]{
		Name:     "createNewOrder",
		Kind:     state.Mutate,
		Fallback: "Failed to create order.",
		Call: func(ctx context.Context) (*models.CreatedOrder, error) {
			created, err := o.api.CreateOrder(ctx, draft)
			if err != nil {
				return nil, err
			}
			if created.Order.ID == "" {
				return nil, &state.Failure{Kind: state.KindApplication, Message: "Order was created without an id."}
			}
			if err := o.token.Set(ctx, created.Order.ID); err != nil {
				return nil, &state.Failure{Kind: state.KindApplication, Message: "Failed to save checkout session.", Err: err}
			}
			return created, nil
		},
		Pending: resetPayment,
		Fulfilled: func(st *state.State[OrdersState], created *models.CreatedOrder) {
			st.Data.OrderID = created.Order.ID
		},
		Rejected: func(st *state.State[OrdersState], _ *state.Failure) { st.Data.OrderID = "" },
	})
}

// Capture asks the backend to verify and record the provider's payment
// proof for an order.
func (o *Orders) Capture(ctx context.Context, req models.CaptureRequest) (*models.Order, error) {
	return state.Run(ctx, o.Slice, state.Op[OrdersState, *models.Order]{
		Name:     "capturePayment",
		Kind:     state.Mutate,
		Fallback: "Payment capture failed.",
		Call: func(ctx context.Context) (*models.Order, error) {
			return o.api.CapturePayment(ctx, req)
		},
		Pending: resetPayment,
		Fulfilled: func(st *state.State[OrdersState], order *models.Order) {
			st.Data.PaymentSuccess = true
			st.Data.Details = order
		},
		Rejected: func(st *state.State[OrdersState], f *state.Failure) {
			st.Data.PaymentSuccess = false
			st.Data.PaymentError = f
		},
	})
}

func (o *Orders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return state.Run(ctx, o.Slice, state.Op[OrdersState, []models.Order]{
		Name:     "getAllOrdersByUserId",
		Kind:     state.Fetch,
		Fallback: "Failed to fetch orders.",
		Call: func(ctx context.Context) ([]models.Order, error) {
			return o.api.OrdersByUser(ctx, userID)
		},
		Fulfilled: func(st *state.State[OrdersState], list []models.Order) { st.Data.List = list },
		Clear:     func(st *state.State[OrdersState]) { st.Data.List = nil },
	})
}

func (o *Orders) FetchDetails(ctx context.Context, id string) (*models.Order, error) {
	return state.Run(ctx, o.Slice, state.Op[OrdersState, *models.Order]{
		Name:     "getOrderDetails",
		Kind:     state.Fetch,
		Fallback: "Failed to fetch order details.",
		Call: func(ctx context.Context) (*models.Order, error) {
			return o.api.OrderDetails(ctx, id)
		},
		Fulfilled: func(st *state.State[OrdersState], order *models.Order) { st.Data.Details = order },
		Clear:     func(st *state.State[OrdersState]) { st.Data.Details = nil },
	})
}

func (o *Orders) ResetDetails() {
	o.Update(func(st *state.State[OrdersState]) {
		st.Data.Details = nil
		st.Error = nil
	})
}

func (o *Orders) ResetPaymentStatus() {
	o.Update(func(st *state.State[OrdersState]) {
		resetPayment(st)
		st.Error = nil
	})
}
