package storefront_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/shopfront/internal/checkout"
	"github.com/alextreichler/shopfront/internal/devapi"
	"github.com/alextreichler/shopfront/internal/gateway"
	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/session"
	"github.com/alextreichler/shopfront/internal/state"
	"github.com/alextreichler/shopfront/internal/storefront"
)

type harness struct {
	fake  *devapi.FakeProvider
	url   string
	token *session.Token
	shop  *storefront.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := devapi.NewFakeProvider("", "")
	backend := devapi.New(devapi.Options{Provider: fake})
	require.NoError(t, backend.SeedDemo())
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	tok := session.NewToken(session.NewMemory(), "sid-1")
	return &harness{
		fake:  fake,
		url:   ts.URL,
		token: tok,
		shop:  storefront.New(gateway.New(ts.URL), tok),
	}
}

func (h *harness) signIn(t *testing.T) *models.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.shop.Auth.Register(ctx, models.Registration{UserName: "asha", Email: "asha@example.com", Password: "secret1"}))
	u, err := h.shop.Auth.Login(ctx, models.Credentials{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	return u
}

func TestAuthLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.True(t, h.shop.Auth.State().IsLoading, "auth is unknown until the first check")

	_, err := h.shop.Auth.CheckAuth(ctx)
	require.Error(t, err)
	st := h.shop.Auth.State()
	assert.False(t, st.IsLoading)
	assert.False(t, st.Data.IsAuthenticated)
	assert.Equal(t, state.KindApplication, st.Error.Kind)

	u := h.signIn(t)
	st = h.shop.Auth.State()
	assert.True(t, st.Data.IsAuthenticated)
	assert.Equal(t, u, h.shop.Auth.User())

	_, err = h.shop.Auth.CheckAuth(ctx)
	require.NoError(t, err)

	require.NoError(t, h.shop.Auth.Logout(ctx))
	assert.Nil(t, h.shop.Auth.User())
}

func TestLoginFailureClearsUser(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	_, err := h.shop.Auth.Login(context.Background(), models.Credentials{Email: "asha@example.com", Password: "nope!!"})
	require.Error(t, err)
	st := h.shop.Auth.State()
	assert.Nil(t, st.Data.User)
	assert.Equal(t, "Incorrect password! Please try again", st.Error.Message)
}

func TestProductsAndSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	list, err := h.shop.Products.FetchFiltered(ctx, models.ProductFilter{SortBy: "price-hightolow"})
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "Denim Jacket", list[0].Title)

	p, err := h.shop.Products.FetchDetails(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, p.ID)

	_, err = h.shop.Products.FetchDetails(ctx, "missing")
	require.Error(t, err)
	st := h.shop.Products.State()
	assert.Nil(t, st.Data.Details)
	assert.Len(t, st.Data.List, 5, "a details failure only clears details")

	res, err := h.shop.Search.Search(ctx, "denim")
	require.NoError(t, err)
	require.Len(t, res, 1)

	res, err = h.shop.Search.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, h.shop.Search.State().Data.Results)
}

func TestCartFetchAndMutationFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.signIn(t)

	_, err := h.shop.Cart.Add(ctx, u.ID, "p", 0)
	assert.True(t, state.IsKind(err, state.KindValidation))

	_, err = h.shop.Cart.Fetch(ctx, u.ID)
	require.Error(t, err, "no cart yet")
	assert.Nil(t, h.shop.Cart.Current())

	products, err := h.shop.Products.FetchFiltered(ctx, models.ProductFilter{})
	require.NoError(t, err)

	cart, err := h.shop.Cart.Add(ctx, u.ID, products[0].ID, 1)
	require.NoError(t, err)
	cart, err = h.shop.Cart.Add(ctx, u.ID, products[0].ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = h.shop.Cart.UpdateQuantity(ctx, u.ID, "not-in-cart", 4)
	require.Error(t, err)
	assert.Equal(t, cart, h.shop.Cart.Current(), "a failed mutation keeps the cart")
	assert.Equal(t, "Cart item not present !", h.shop.Cart.State().Error.Message)

	cart, err = h.shop.Cart.Delete(ctx, u.ID, products[0].ID)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestAddressValidationAndFind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.signIn(t)

	_, err := h.shop.Addresses.Add(ctx, models.AddressInput{UserID: u.ID, Address: "12 Lake Rd"})
	require.Error(t, err)
	assert.EqualError(t, err, "City is required.")

	addr, err := h.shop.Addresses.Add(ctx, models.AddressInput{UserID: u.ID, Address: "12 Lake Rd", City: "Pune", Pincode: "411001", Phone: "999"})
	require.NoError(t, err)
	assert.Empty(t, h.shop.Addresses.State().Data.List, "add does not touch the list")

	_, err = h.shop.Addresses.FetchAll(ctx, u.ID)
	require.NoError(t, err)
	found := h.shop.Addresses.Find(addr.ID)
	require.NotNil(t, found)
	assert.Equal(t, "Pune", found.City)
	assert.Nil(t, h.shop.Addresses.Find("nope"))
}

func TestOrderCreateWritesTokenAndCaptures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.signIn(t)

	products, err := h.shop.Products.FetchFiltered(ctx, models.ProductFilter{})
	require.NoError(t, err)
	cart, err := h.shop.Cart.Add(ctx, u.ID, products[0].ID, 1)
	require.NoError(t, err)

	created, err := h.shop.Orders.Create(ctx, models.OrderDraft{
		UserID:      u.ID,
		CartID:      cart.ID,
		Items:       []models.OrderItem{{ProductID: products[0].ID, Quantity: 1, Price: cart.Items[0].UnitPrice()}},
		TotalAmount: cart.Total().InexactFloat64(),
	})
	require.NoError(t, err)

	tok, err := h.token.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.Order.ID, tok)
	assert.Equal(t, created.Order.ID, h.shop.Orders.State().Data.OrderID)

	proof := h.fake.Pay(created.ProviderOrder.ID)
	order, err := h.shop.Orders.Capture(ctx, models.CaptureRequest{PaymentProof: proof, OrderID: tok})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, order.PaymentStatus)
	st := h.shop.Orders.State()
	assert.True(t, st.Data.PaymentSuccess)
	assert.Nil(t, st.Data.PaymentError)

	list, err := h.shop.Orders.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOrderCreateFailureWritesNoToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.signIn(t)

	_, err := h.shop.Orders.Create(ctx, models.OrderDraft{UserID: u.ID})
	require.Error(t, err)
	assert.Equal(t, "Cart is empty", err.Error())

	_, err = h.token.Get(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Empty(t, h.shop.Orders.State().Data.OrderID)
}

func TestCaptureFailureRecordsPaymentError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	_, err := h.shop.Orders.Capture(ctx, models.CaptureRequest{OrderID: "missing"})
	require.Error(t, err)
	st := h.shop.Orders.State()
	assert.False(t, st.Data.PaymentSuccess)
	require.NotNil(t, st.Data.PaymentError)
	assert.Equal(t, "Order can not be found", st.Data.PaymentError.Message)

	h.shop.Orders.ResetPaymentStatus()
	assert.Nil(t, h.shop.Orders.State().Data.PaymentError)
}

func TestTransportFailureUsesFallback(t *testing.T) {
	shop := storefront.New(gateway.New("http://127.0.0.1:1"), session.NewToken(session.NewMemory(), "sid"))

	_, err := shop.Features.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, state.IsKind(err, state.KindTransport))
	assert.Equal(t, "Failed to fetch feature images.", shop.Features.State().Error.Message)
}

func TestAdminSlices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.shop.Auth.Login(ctx, models.Credentials{Email: "admin@shopfront.local", Password: "admin123"})
	require.NoError(t, err)

	err = h.shop.AdminOrders.UpdateStatus(ctx, "order", "teleported")
	assert.True(t, state.IsKind(err, state.KindValidation))

	p, err := h.shop.AdminProducts.Add(ctx, models.ProductInput{Title: "Beanie", Category: "accessories", Brand: "puma", Price: 499, TotalStock: 3})
	require.NoError(t, err)
	list, err := h.shop.AdminProducts.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 6)

	require.NoError(t, h.shop.AdminProducts.Delete(ctx, p.ID))

	img, err := h.shop.Features.Add(ctx, "https://cdn.example/banner.jpg")
	require.NoError(t, err)
	features, err := h.shop.Features.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, features, 1)
	require.NoError(t, h.shop.Features.Delete(ctx, img.ID))
}

func TestSnapshotAndSignedOut(t *testing.T) {
	h := newHarness(t)
	u := h.signIn(t)
	h.shop.Addresses.SetList([]models.Address{{ID: "a1", UserID: u.ID}})

	b, err := json.Marshal(h.shop.Snapshot())
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, key := range []string{"auth", "shopProducts", "shopCart", "address", "shopOrder", "review", "search", "adminProducts", "adminOrder", "commonFeature"} {
		assert.Contains(t, raw, key)
	}

	h.shop.SignedOut()
	assert.Nil(t, h.shop.Cart.Current())
	assert.Empty(t, h.shop.Addresses.State().Data.List)
}

func TestProxyErrorDuringCaptureKeepsToken(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		w.Write([]byte("<html><body>504 Gateway Time-out</body></html>"))
	}))
	defer proxy.Close()

	ctx := context.Background()
	tok := session.NewToken(session.NewMemory(), "sid-1")
	require.NoError(t, tok.Set(ctx, "order-9"))
	shop := storefront.New(gateway.New(proxy.URL), tok)
	orch := checkout.New(shop.Orders, tok)

	res, err := orch.HandleReturn(ctx, url.Values{
		"razorpay_payment_id": {"pay_1"},
		"razorpay_order_id":   {"order_rzp_1"},
		"razorpay_signature":  {"sig"},
	})
	require.Error(t, err)
	assert.True(t, state.IsKind(err, state.KindTransport))
	assert.Equal(t, checkout.RouteFailure, res.Route)
	assert.Equal(t, "Payment capture failed.", shop.Orders.State().Data.PaymentError.Message)

	got, err := tok.Get(ctx)
	require.NoError(t, err, "the backend never ruled, so the token stays for a retry")
	assert.Equal(t, "order-9", got)
}

func TestUploadImageRejectsUnreadableImages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.shop.Auth.Login(ctx, models.Credentials{Email: "admin@shopfront.local", Password: "admin123"})
	require.NoError(t, err)

	_, err = h.shop.AdminProducts.UploadImage(ctx, "broken.png", strings.NewReader("not a png"))
	require.Error(t, err)
	assert.True(t, state.IsKind(err, state.KindValidation))
	assert.Equal(t, "The image could not be read. Please upload a valid PNG or JPEG.", err.Error())

	_, err = h.shop.AdminProducts.UploadImage(ctx, "banner.gif", strings.NewReader("GIF89a"))
	assert.True(t, state.IsKind(err, state.KindValidation))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	hosted, err := h.shop.AdminProducts.UploadImage(ctx, "ok.png", &buf)
	require.NoError(t, err)
	assert.Equal(t, hosted, h.shop.AdminProducts.State().Data.ImageURL)
}
