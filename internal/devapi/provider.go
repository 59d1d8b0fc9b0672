package devapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/alextreichler/shopfront/internal/models"
)

// Provider creates payment-provider orders and checks payment signatures.
type Provider interface {
	KeyID() string
	CreateOrder(amount int64, currency, receipt string) (models.ProviderOrder, error)
	VerifyPayment(orderID, paymentID, signature string) bool
}

// Sign computes the signature the provider attaches to a successful payment:
// hex HMAC-SHA256 of "order_id|payment_id".
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret, orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, secret)
}

// RazorpayProvider talks to the Razorpay orders API.
type RazorpayProvider struct {
	client *razorpay.Client
	keyID  string
	secret string
}

func NewRazorpayProvider(keyID, secret string) *RazorpayProvider {
	return &RazorpayProvider{
		client: razorpay.NewClient(keyID, secret),
		keyID:  keyID,
		secret: secret,
	}
}

func (p *RazorpayProvider) KeyID() string { return p.keyID }

func (p *RazorpayProvider) CreateOrder(amount int64, currency, receipt string) (models.ProviderOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	res, err := p.client.Order.Create(data, nil)
	if err != nil {
		return models.ProviderOrder{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	return providerOrderFrom(res)
}

func providerOrderFrom(res map[string]interface{}) (models.ProviderOrder, error) {
	id, _ := res["id"].(string)
	if id == "" {
		return models.ProviderOrder{}, errors.New("razorpay: order response without id")
	}
	order := models.ProviderOrder{ID: id}
	// JSON numbers decode as float64.
	if amount, ok := res["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	order.Currency, _ = res["currency"].(string)
	order.Receipt, _ = res["receipt"].(string)
	order.Status, _ = res["status"].(string)
	return order, nil
}

func (p *RazorpayProvider) VerifyPayment(orderID, paymentID, signature string) bool {
	return verifySignature(p.secret, orderID, paymentID, signature)
}

// FakeProvider issues provider orders locally and signs payments with its
// own secret, for runs without Razorpay credentials.
type FakeProvider struct {
	keyID  string
	secret string

	mu     sync.Mutex
	orders map[string]models.ProviderOrder
}

func NewFakeProvider(keyID, secret string) *FakeProvider {
	if keyID == "" {
		keyID = "rzp_test_devapi"
	}
	if secret == "" {
		secret = uuid.NewString()
	}
	return &FakeProvider{keyID: keyID, secret: secret, orders: make(map[string]models.ProviderOrder)}
}

func (p *FakeProvider) KeyID() string { return p.keyID }

// Secret is what payment signatures are keyed with.
func (p *FakeProvider) Secret() string { return p.secret }

func (p *FakeProvider) CreateOrder(amount int64, currency, receipt string) (models.ProviderOrder, error) {
	if amount <= 0 {
		return models.ProviderOrder{}, errors.New("fake provider: amount must be positive")
	}
	order := models.ProviderOrder{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	p.mu.Lock()
	p.orders[order.ID] = order
	p.mu.Unlock()
	return order, nil
}

func (p *FakeProvider) VerifyPayment(orderID, paymentID, signature string) bool {
	p.mu.Lock()
	_, known := p.orders[orderID]
	p.mu.Unlock()
	return known && verifySignature(p.secret, orderID, paymentID, signature)
}

// Pay simulates a successful widget payment for orderID and returns the
// proof the widget would hand back.
func (p *FakeProvider) Pay(orderID string) models.PaymentProof {
	paymentID := "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	return models.PaymentProof{
		PaymentID: paymentID,
		OrderID:   orderID,
		Signature: Sign(p.secret, orderID, paymentID),
	}
}
