package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/shopfront/internal/devapi"
	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/session"
	"github.com/alextreichler/shopfront/internal/store"
)

type fakeStats struct{}

func (fakeStats) GetCheckoutStats(context.Context) (*store.CheckoutStats, error) {
	return &store.CheckoutStats{
		TotalAttempts:   3,
		AttemptsByPhase: map[string]int{"captured": 1, "failed": 2},
		FailuresByKind:  map[string]int{"provider": 2},
		CapturedRevenue: decimal.RequireFromString("12.5"),
	}, nil
}

func (fakeStats) GetRecentAttempts(context.Context, int) ([]store.AttemptRecord, error) {
	return []store.AttemptRecord{{ID: "att-1", Phase: "captured", OrderID: "order-77", Amount: 12.5, StartedAt: time.Now(), UpdatedAt: time.Now()}}, nil
}

type env struct {
	fake     *devapi.FakeProvider
	apiURL   string
	shopURL  string
	registry *Registry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fake := devapi.NewFakeProvider("", "")
	backend := devapi.New(devapi.Options{Provider: fake})
	require.NoError(t, backend.SeedDemo())
	api := httptest.NewServer(backend.Handler())
	t.Cleanup(api.Close)

	cookies := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	reg := NewRegistry(cookies, session.NewMemory(), nil, RegistryConfig{
		APIBaseURL:     api.URL,
		RequestTimeout: 5 * time.Second,
		ShopName:       "Test Shop",
	})
	tc := NewTemplateCache()
	require.NoError(t, tc.Load())
	rl := NewRateLimiter(0)
	t.Cleanup(rl.Stop)

	mux := Routes(
		&ShopHandler{Sessions: reg, Templates: tc},
		&AdminHandler{Sessions: reg, Templates: tc, Stats: fakeStats{}},
		rl,
	)
	shop := httptest.NewServer(mux)
	t.Cleanup(shop.Close)

	return &env{fake: fake, apiURL: api.URL, shopURL: shop.URL, registry: reg}
}

type browser struct {
	t    *testing.T
	base string
	http *http.Client
}

func (e *env) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: e.shopURL, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(method, path string, body io.Reader, contentType string) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(method, b.base+path, body)
	require.NoError(b.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := b.http.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { res.Body.Close() })
	return res
}

func (b *browser) json(method, path string, in any) (*http.Response, map[string]any) {
	b.t.Helper()
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		require.NoError(b.t, err)
		body = bytes.NewReader(raw)
	}
	res := b.do(method, path, body, "application/json")
	var out map[string]any
	require.NoError(b.t, json.NewDecoder(res.Body).Decode(&out))
	return res, out
}

func (b *browser) form(path string, v url.Values) *http.Response {
	b.t.Helper()
	return b.do(http.MethodPost, path, strings.NewReader(v.Encode()), "application/x-www-form-urlencoded")
}

func (b *browser) page(path string) (*http.Response, string) {
	b.t.Helper()
	res := b.do(http.MethodGet, path, nil, "")
	raw, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return res, string(raw)
}

func (b *browser) signUp(email string) {
	b.t.Helper()
	res, _ := b.json(http.MethodPost, "/api/register", models.Registration{UserName: "asha", Email: email, Password: "secret1"})
	require.Equal(b.t, http.StatusCreated, res.StatusCode)
	res, out := b.json(http.MethodPost, "/api/login", models.Credentials{Email: email, Password: "secret1"})
	require.Equal(b.t, http.StatusOK, res.StatusCode, out)
}

func TestCheckoutAndCaptureThroughWidget(t *testing.T) {
	e := newEnv(t)
	b := e.browser(t)
	b.signUp("asha@example.com")

	_, products := b.json(http.MethodGet, "/api/products?category=footwear", nil)
	list := products["data"].([]any)
	require.Len(t, list, 1)
	productID := list[0].(map[string]any)["_id"].(string)

	res, _ := b.json(http.MethodPost, "/api/cart", cartRequest{ProductID: productID, Quantity: 1})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, out := b.json(http.MethodPost, "/api/addresses", models.AddressInput{Address: "12 Lake Rd", City: "Pune", Pincode: "411001", Phone: "9999999999"})
	require.Equal(t, http.StatusCreated, res.StatusCode, out)
	addressID := out["data"].(map[string]any)["_id"].(string)

	res, out = b.json(http.MethodPost, "/shop/checkout", checkoutRequest{})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Please select one address to proceed.", out["message"])
	assert.Equal(t, "validation", out["kind"])

	res, out = b.json(http.MethodPost, "/shop/checkout", checkoutRequest{AddressID: addressID})
	require.Equal(t, http.StatusCreated, res.StatusCode, out)
	opts := out["options"].(map[string]any)
	assert.Equal(t, "Test Shop", opts["name"])
	assert.Equal(t, float64(199900), opts["amount"])
	providerOrderID := opts["order_id"].(string)

	// The first widget is abandoned; a second click starts a fresh order.
	res, out = b.json(http.MethodPost, "/shop/checkout", checkoutRequest{AddressID: addressID})
	require.Equal(t, http.StatusCreated, res.StatusCode, out)
	retried := out["options"].(map[string]any)["order_id"].(string)
	assert.NotEqual(t, providerOrderID, retried)
	providerOrderID = retried

	proof := e.fake.Pay(providerOrderID)
	res, out = b.json(http.MethodPost, "/shop/payment/verify", proof)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "/shop/payment-success", out["route"])

	res, out = b.json(http.MethodPost, "/shop/payment/verify", proof)
	assert.Equal(t, true, out["success"], "a repeated callback is a no-op success")

	res, body := b.page("/shop/payment-success")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, body)

	_, out = b.json(http.MethodGet, "/api/state", nil)
	assert.Equal(t, "captured", out["checkout"].(map[string]any)["phase"])

	res, out = b.json(http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	orders := out["data"].([]any)
	require.Len(t, orders, 2)
	captured := 0
	for _, o := range orders {
		if o.(map[string]any)["paymentStatus"] == "captured" {
			captured++
		}
	}
	assert.Equal(t, 1, captured, "only the replacement order is paid")
}

func TestReturnRedirectCapture(t *testing.T) {
	e := newEnv(t)
	b := e.browser(t)
	b.signUp("asha@example.com")

	_, products := b.json(http.MethodGet, "/api/products", nil)
	productID := products["data"].([]any)[0].(map[string]any)["_id"].(string)
	b.json(http.MethodPost, "/api/cart", cartRequest{ProductID: productID, Quantity: 1})
	_, out := b.json(http.MethodPost, "/api/addresses", models.AddressInput{Address: "a", City: "c", Pincode: "p", Phone: "1"})
	addressID := out["data"].(map[string]any)["_id"].(string)
	_, out = b.json(http.MethodPost, "/shop/checkout", checkoutRequest{AddressID: addressID})
	providerOrderID := out["options"].(map[string]any)["order_id"].(string)

	proof := e.fake.Pay(providerOrderID)
	q := url.Values{
		"razorpay_payment_id": {proof.PaymentID},
		"razorpay_order_id":   {proof.OrderID},
		"razorpay_signature":  {proof.Signature},
	}
	res := b.form(ReturnPath, q)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/shop/payment-success", res.Header.Get("Location"))
}

func TestReturnPostWithoutCookieBouncesToGet(t *testing.T) {
	e := newEnv(t)
	b := e.browser(t)

	q := url.Values{"razorpay_payment_id": {"pay_1"}, "razorpay_order_id": {"order_1"}, "razorpay_signature": {"sig"}}
	res := b.form(ReturnPath, q)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)

	loc, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, ReturnPath, loc.Path)
	assert.Equal(t, q, loc.Query())
	assert.Zero(t, e.registry.Len(), "no session is created for the bounce")
}

func TestReturnWithoutPendingOrderFails(t *testing.T) {
	e := newEnv(t)
	b := e.browser(t)

	res := b.do(http.MethodGet, ReturnPath+"?razorpay_payment_id=pay_1&razorpay_order_id=order_1&razorpay_signature=sig", nil, "")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/shop/payment-failed", res.Header.Get("Location"))

	res, body := b.page("/shop/payment-failed")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "No pending order found for this payment.")
}

func TestWidgetFailure(t *testing.T) {
	e := newEnv(t)
	b := e.browser(t)

	res, out := b.json(http.MethodPost, "/shop/payment/failed", widgetFailure{Reason: "Payment cancelled by user."})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "/shop/payment-failed", out["route"])

	_, out = b.json(http.MethodGet, "/api/state", nil)
	checkout := out["checkout"].(map[string]any)
	assert.Equal(t, "failed", checkout["phase"])
	assert.Equal(t, "Payment cancelled by user.", checkout["failure"].(map[string]any)["message"])
}

func TestSignedOutAccess(t *testing.T) {
	e := newEnv(t)
	b := e.browser(t)

	res, out := b.json(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Unauthorised user!", out["message"])

	res = b.do(http.MethodGet, "/shop/checkout", nil, "")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))

	_, body := b.page("/login")
	assert.Contains(t, body, "Please log in to proceed with checkout.")

	res, out = b.json(http.MethodPost, "/shop/checkout", checkoutRequest{AddressID: "a1"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Please log in to proceed with checkout.", out["message"])
}

func TestLoginFormFlashesErrors(t *testing.T) {
	e := newEnv(t)
	b := e.browser(t)

	res := b.form("/login", url.Values{"email": {"admin@shopfront.local"}, "password": {"wrong"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))

	_, body := b.page("/login")
	assert.Contains(t, body, "Incorrect password! Please try again")
}

func TestAdminArea(t *testing.T) {
	e := newEnv(t)

	anon := e.browser(t)
	res := anon.do(http.MethodGet, "/admin", nil, "")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))

	shopper := e.browser(t)
	shopper.signUp("asha@example.com")
	res = shopper.do(http.MethodGet, "/admin/stats", nil, "")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))

	admin := e.browser(t)
	res = admin.form("/login", url.Values{"email": {"admin@shopfront.local"}, "password": {"admin123"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/admin", res.Header.Get("Location"))

	res, out := admin.json(http.MethodGet, "/admin/stats", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "12.50", out["capturedRevenue"])
	assert.Equal(t, float64(3), out["totalAttempts"])

	res, body := admin.page("/admin")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "order-77")

	res, body = admin.page("/admin/products")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Denim Jacket")

	res = admin.form("/admin/products", url.Values{"title": {""}, "price": {"abc"}, "totalStock": {"1"}})
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, body = admin.page("/admin/products")
	assert.Contains(t, body, "Title is required.")
	assert.Contains(t, body, "Invalid price format.")

	res = admin.form("/admin/products", url.Values{"title": {"Beanie"}, "price": {"499"}, "totalStock": {"3"}, "category": {"accessories"}})
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, body = admin.page("/admin/products")
	assert.Contains(t, body, "Beanie")
}

func limitedHandler(t *testing.T, trusted ...string) func(path, fwd string) int {
	t.Helper()
	rl := NewRateLimiter(time.Hour)
	t.Cleanup(rl.Stop)
	require.NoError(t, rl.TrustProxies(trusted))
	h := rl.Middleware(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	// httptest requests come from 192.0.2.1.
	return func(path, fwd string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if fwd != "" {
			req.Header.Set("X-Forwarded-For", fwd)
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}
}

func TestRateLimiter(t *testing.T) {
	call := limitedHandler(t)

	assert.Equal(t, http.StatusNoContent, call("/login", ""))
	assert.Equal(t, http.StatusTooManyRequests, call("/login", ""))
	assert.Equal(t, http.StatusNoContent, call("/shop/checkout", ""), "limits are per path")
	assert.Equal(t, http.StatusTooManyRequests, call("/login", "203.0.113.7"), "forwarded headers from untrusted peers are ignored")
	assert.Equal(t, http.StatusTooManyRequests, call("/login", "198.51.100.9"))
}

func TestRateLimiterBehindTrustedProxy(t *testing.T) {
	call := limitedHandler(t, "192.0.2.0/24", "10.0.0.1")

	assert.Equal(t, http.StatusNoContent, call("/login", "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, call("/login", "203.0.113.7"))
	assert.Equal(t, http.StatusNoContent, call("/login", "198.51.100.9"), "limits are per forwarded client")
	assert.Equal(t, http.StatusTooManyRequests, call("/login", "6.6.6.6, 203.0.113.7, 10.0.0.1"), "a spoofed leading hop does not change the client")

	rl := NewRateLimiter(0)
	defer rl.Stop()
	assert.Error(t, rl.TrustProxies([]string{"not-an-ip"}))
}

func TestRegistrySweep(t *testing.T) {
	reg := NewRegistry(sessions.NewCookieStore([]byte("k")), session.NewMemory(), nil, RegistryConfig{IdleTimeout: time.Hour})
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return clock }

	a := reg.get("a")
	reg.get("b")
	assert.Equal(t, 2, reg.Len())
	assert.Same(t, a, reg.get("a"))

	clock = clock.Add(50 * time.Minute)
	reg.get("a")

	assert.Equal(t, 1, reg.Sweep(clock.Add(30*time.Minute)))
	assert.Equal(t, 1, reg.Len())
	assert.Same(t, a, reg.get("a"))
}

func TestRebuiltSessionKeepsToken(t *testing.T) {
	values := session.NewMemory()
	reg := NewRegistry(sessions.NewCookieStore([]byte("k")), values, nil, RegistryConfig{})
	ctx := context.Background()

	require.NoError(t, reg.get("sid").Token.Set(ctx, "order-1"))
	reg.Sweep(time.Now().Add(48 * time.Hour))
	require.Zero(t, reg.Len())

	got, err := reg.get("sid").Token.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-1", got)
}

func TestChainEnforcesCSRF(t *testing.T) {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Chain(noop, ChainConfig{CSRFKey: []byte("0123456789abcdef0123456789abcdef")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://checkout.razorpay.com")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, ReturnPath, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "the provider return is exempt")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTemplates(t *testing.T) {
	tc := NewTemplateCache()
	require.NoError(t, tc.Load())
	for _, name := range []string{"home.html", "login.html", "checkout.html", "payment_success.html", "payment_failed.html", "admin.html", "admin_orders.html", "admin_products.html"} {
		assert.NotNil(t, tc.Get(name), name)
	}

	rec := httptest.NewRecorder()
	tc.render(rec, "missing.html", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₹1999.00", formatMoney(1999))
	assert.Equal(t, "₹0.10", formatMoney(0.1))
}

func TestCheckoutScriptChecksSDKBeforeCreatingOrder(t *testing.T) {
	e := newEnv(t)
	res, js := e.browser(t).page("/static/checkout.js")
	require.Equal(t, http.StatusOK, res.StatusCode)

	sdk := strings.Index(js, `typeof window.Razorpay !== "function"`)
	create := strings.Index(js, `post("/shop/checkout"`)
	require.NotEqual(t, -1, sdk)
	require.NotEqual(t, -1, create)
	assert.Less(t, sdk, create)
}
