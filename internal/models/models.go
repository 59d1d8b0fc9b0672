package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Order statuses as set by the backend and the admin console.
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderInProcess  = "inProcess"
	OrderInShipping = "inShipping"
	OrderDelivered  = "delivered"
	OrderRejected   = "rejected"
)

// Payment statuses. A draft is created client-side; only the capture flow
// moves it forward.
const (
	PaymentDraft    = "DRAFT"
	PaymentPending  = "pending"
	PaymentCaptured = "captured"
	PaymentFailed   = "failed"
)

const PaymentMethodRazorpay = "razorpay"

type User struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Registration struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Product struct {
	ID            string  `json:"_id"`
	Image         string  `json:"image"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand"`
	Price         float64 `json:"price"`
	SalePrice     float64 `json:"salePrice"`
	TotalStock    int     `json:"totalStock"`
	AverageReview float64 `json:"averageReview"`
}

// ProductInput is the admin create/edit form body.
type ProductInput struct {
	Image       string  `json:"image"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	SalePrice   float64 `json:"salePrice"`
	TotalStock  int     `json:"totalStock"`
}

// ProductFilter narrows the shop listing. Empty fields are omitted from the query.
type ProductFilter struct {
	Category []string
	Brand    []string
	SortBy   string
}

type CartItem struct {
	ProductID string  `json:"productId"`
	Image     string  `json:"image"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	SalePrice float64 `json:"salePrice"`
	Quantity  int     `json:"quantity"`
}

// UnitPrice is the sale price when one is set, the list price otherwise.
func (i CartItem) UnitPrice() float64 {
	if i.SalePrice > 0 {
		return i.SalePrice
	}
	return i.Price
}

type Cart struct {
	ID     string     `json:"_id"`
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
}

func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// Total sums unit price times quantity over all items.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		line := decimal.NewFromFloat(item.UnitPrice()).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total
}

type Address struct {
	ID      string `json:"_id"`
	UserID  string `json:"userId"`
	Address string `json:"address"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

type AddressInput struct {
	UserID  string `json:"userId"`
	Address string `json:"address"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

// AddressInfo is the shipping address snapshot copied into an order.
type AddressInfo struct {
	AddressID string `json:"addressId"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Pincode   string `json:"pincode"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID              string      `json:"_id"`
	UserID          string      `json:"userId"`
	CartID          string      `json:"cartId"`
	Items           []OrderItem `json:"cartItems"`
	AddressInfo     AddressInfo `json:"addressInfo"`
	OrderStatus     string      `json:"orderStatus"`
	PaymentMethod   string      `json:"paymentMethod"`
	PaymentStatus   string      `json:"paymentStatus"`
	TotalAmount     float64     `json:"totalAmount"`
	OrderDate       time.Time   `json:"orderDate"`
	OrderUpdateDate time.Time   `json:"orderUpdateDate"`
	PaymentID       string      `json:"paymentId,omitempty"`
	ProviderOrderID string      `json:"razorpayOrderId,omitempty"`
}

// OrderDraft is submitted on order creation. The server assigns the id.
type OrderDraft struct {
	UserID          string      `json:"userId"`
	CartID          string      `json:"cartId"`
	Items           []OrderItem `json:"cartItems"`
	AddressInfo     AddressInfo `json:"addressInfo"`
	OrderStatus     string      `json:"orderStatus"`
	PaymentMethod   string      `json:"paymentMethod"`
	PaymentStatus   string      `json:"paymentStatus"`
	TotalAmount     float64     `json:"totalAmount"`
	OrderDate       time.Time   `json:"orderDate"`
	OrderUpdateDate time.Time   `json:"orderUpdateDate"`
}

// ProviderOrder is the payment provider's order, amount in the smallest currency unit.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"`
}

// CreatedOrder is the order-creation response: the stored order plus the
// provider session needed to open the payment widget.
type CreatedOrder struct {
	Order         Order         `json:"order"`
	ProviderOrder ProviderOrder `json:"razorpayOrder"`
	KeyID         string        `json:"razorpayKeyId"`
}

// PaymentSession describes what the hosted widget is opened with.
type PaymentSession struct {
	SessionKey      string `json:"key"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	ProviderOrderID string `json:"order_id"`
}

func (c *CreatedOrder) PaymentSession() PaymentSession {
	return PaymentSession{
		SessionKey:      c.KeyID,
		Amount:          c.ProviderOrder.Amount,
		Currency:        c.ProviderOrder.Currency,
		ProviderOrderID: c.ProviderOrder.ID,
	}
}

// PaymentProof carries the provider-issued fields returned by the widget
// callback or the return redirect.
type PaymentProof struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

func (p PaymentProof) Complete() bool {
	return p.PaymentID != "" && p.OrderID != "" && p.Signature != ""
}

type CaptureRequest struct {
	PaymentProof
	OrderID string `json:"orderId"`
}

type Review struct {
	ID            string    `json:"_id"`
	ProductID     string    `json:"productId"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	ReviewMessage string    `json:"reviewMessage"`
	ReviewValue   int       `json:"reviewValue"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

type ReviewInput struct {
	ProductID     string `json:"productId"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	ReviewMessage string `json:"reviewMessage"`
	ReviewValue   int    `json:"reviewValue"`
}

type FeatureImage struct {
	ID    string `json:"_id"`
	Image string `json:"image"`
}
