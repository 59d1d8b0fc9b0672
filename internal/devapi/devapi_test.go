package devapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/shopfront/internal/gateway"
	"github.com/alextreichler/shopfront/internal/models"
)

func TestSignVerifies(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	assert.True(t, verifySignature("secret", "order_1", "pay_1", sig))
	assert.False(t, verifySignature("other", "order_1", "pay_1", sig))
	assert.False(t, verifySignature("secret", "order_1", "pay_2", sig))
	assert.False(t, verifySignature("secret", "", "pay_1", sig))
}

func TestFakeProvider(t *testing.T) {
	p := NewFakeProvider("", "s3cret")
	assert.Equal(t, "rzp_test_devapi", p.KeyID())

	_, err := p.CreateOrder(0, "INR", "r")
	assert.Error(t, err)

	order, err := p.CreateOrder(21000, "INR", "receipt_1")
	require.NoError(t, err)
	assert.Equal(t, int64(21000), order.Amount)

	proof := p.Pay(order.ID)
	assert.True(t, p.VerifyPayment(proof.OrderID, proof.PaymentID, proof.Signature))
	assert.False(t, p.VerifyPayment("order_unknown", proof.PaymentID, Sign("s3cret", "order_unknown", proof.PaymentID)))
}

func TestProviderOrderFrom(t *testing.T) {
	got, err := providerOrderFrom(map[string]interface{}{"id": "order_x", "amount": float64(5000), "currency": "INR", "status": "created"})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderOrder{ID: "order_x", Amount: 5000, Currency: "INR", Status: "created"}, got)

	_, err = providerOrderFrom(map[string]interface{}{})
	assert.Error(t, err)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(21000), toMinorUnits(210))
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, int64(10), toMinorUnits(0.1))
}

type backend struct {
	srv  *Server
	fake *FakeProvider
	url  string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	fake := NewFakeProvider("", "")
	srv := New(Options{Provider: fake, JWTSecret: []byte("test-secret")})
	require.NoError(t, srv.SeedDemo())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &backend{srv: srv, fake: fake, url: ts.URL}
}

func (b *backend) shopper(t *testing.T, email string) (*gateway.Client, *models.User) {
	t.Helper()
	ctx := context.Background()
	c := gateway.New(b.url)
	require.NoError(t, c.Register(ctx, models.Registration{UserName: "shopper", Email: email, Password: "secret1"}))
	u, err := c.Login(ctx, models.Credentials{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return c, u
}

func TestRegisterAndLogin(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	c, u := b.shopper(t, "asha@example.com")
	assert.Equal(t, models.RoleUser, u.Role)

	err := c.Register(ctx, models.Registration{UserName: "again", Email: "ASHA@example.com", Password: "secret1"})
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "User Already exists")

	_, err = gateway.New(b.url).Login(ctx, models.Credentials{Email: "asha@example.com", Password: "wrong!"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Incorrect password! Please try again", apiErr.Message)

	require.NoError(t, c.Logout(ctx))
	_, err = c.CheckAuth(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	c, _ := b.shopper(t, "user@example.com")

	_, err := c.AdminOrders(ctx)
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	admin := gateway.New(b.url)
	_, err = admin.Login(ctx, models.Credentials{Email: "admin@shopfront.local", Password: "admin123"})
	require.NoError(t, err)
	products, err := admin.AdminProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestOrderCaptureFlow(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	c, u := b.shopper(t, "asha@example.com")

	products, err := c.FilteredProducts(ctx, models.ProductFilter{Category: []string{"footwear"}})
	require.NoError(t, err)
	require.Len(t, products, 1)
	sneakers := products[0]

	cart, err := c.AddToCart(ctx, u.ID, sneakers.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	addr, err := c.AddAddress(ctx, models.AddressInput{UserID: u.ID, Address: "12 Lake Rd", City: "Pune", Pincode: "411001", Phone: "9999999999"})
	require.NoError(t, err)

	total := cart.Total().InexactFloat64()
	created, err := c.CreateOrder(ctx, models.OrderDraft{
		UserID:      u.ID,
		CartID:      cart.ID,
		Items:       []models.OrderItem{{ProductID: sneakers.ID, Title: sneakers.Title, Price: sneakers.SalePrice, Quantity: 2}},
		AddressInfo: models.AddressInfo{AddressID: addr.ID, Address: addr.Address},
		TotalAmount: total,
	})
	require.NoError(t, err)
	sess := created.PaymentSession()
	assert.Equal(t, "rzp_test_devapi", sess.SessionKey)
	assert.Equal(t, int64(399800), sess.Amount)
	assert.Equal(t, "INR", sess.Currency)

	proof := b.fake.Pay(sess.ProviderOrderID)

	bad := proof
	bad.Signature = "forged"
	_, err = c.CapturePayment(ctx, models.CaptureRequest{PaymentProof: bad, OrderID: created.Order.ID})
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Payment verification failed", apiErr.Message)

	order, err := c.CapturePayment(ctx, models.CaptureRequest{PaymentProof: proof, OrderID: created.Order.ID})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, order.PaymentStatus)
	assert.Equal(t, models.OrderConfirmed, order.OrderStatus)

	again, err := c.CapturePayment(ctx, models.CaptureRequest{PaymentProof: proof, OrderID: created.Order.ID})
	require.NoError(t, err, "recapturing the same payment is idempotent")
	assert.Equal(t, order.ID, again.ID)

	p, err := c.ProductDetails(ctx, sneakers.ID)
	require.NoError(t, err)
	assert.Equal(t, sneakers.TotalStock-2, p.TotalStock, "stock is taken once")

	_, err = c.Cart(ctx, u.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode, "the cart is emptied")

	orders, err := c.OrdersByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestOtherUsersDataIsForbidden(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	_, asha := b.shopper(t, "asha@example.com")
	ravi, _ := b.shopper(t, "ravi@example.com")

	_, err := ravi.Addresses(ctx, asha.ID)
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestFakePayRoute(t *testing.T) {
	b := newBackend(t)

	res, err := http.Get(b.url + "/dev/pay/order_missing")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(body), "Provider order not found")
}

func TestFakePayRouteAbsentForRealProvider(t *testing.T) {
	srv := New(Options{Provider: NewRazorpayProvider("rzp_test_x", "y")})
	res, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/dev/pay/order_1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCORSAllowsFrontendOrigin(t *testing.T) {
	srv := New(Options{Provider: NewFakeProvider("", ""), FrontendOrigin: "http://localhost:8585"})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:8585")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "http://localhost:8585", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))

	plain := New(Options{Provider: NewFakeProvider("", "")})
	req = httptest.NewRequest(http.MethodGet, "/api/shop/products/get", nil)
	req.Header.Set("Origin", "http://localhost:8585")
	res, err = plain.App().Test(req)
	require.NoError(t, err)
	assert.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}
