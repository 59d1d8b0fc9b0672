package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alextreichler/shopfront/internal/checkout"
	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

const maxJSONBytes = 1 << 20

// ShopHandler serves the shopper-facing pages and the JSON API the browser
// scripts talk to.
type ShopHandler struct {
	Sessions  *Registry
	Templates *TemplateCache
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func errorBody(msg string) map[string]interface{} {
	return map[string]interface{}{"success": false, "message": msg}
}

// writeError maps a slice or checkout error onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, checkout.ErrAttemptInProgress) || errors.Is(err, checkout.ErrCaptureInProgress) {
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		return
	}
	f := state.FailureFrom(err, "Something went wrong.")
	writeJSON(w, failureStatus(f), map[string]interface{}{
		"success": false,
		"message": f.Message,
		"kind":    f.Kind,
	})
}

func failureStatus(f *state.Failure) int {
	switch f.Kind {
	case state.KindValidation:
		return http.StatusBadRequest
	case state.KindApplication:
		if f.StatusCode >= http.StatusBadRequest {
			return f.StatusCode
		}
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body."))
		return false
	}
	return true
}

// currentUser writes a 401 and returns nil when the session is signed out.
func currentUser(w http.ResponseWriter, sess *Session) *models.User {
	u := sess.Store.Auth.User()
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorised user!"))
	}
	return u
}

// loadCart refreshes the cart slice. A shopper who never added anything has
// no cart on the backend, which is not an error here.
func loadCart(r *http.Request, sess *Session, userID string) (*models.Cart, error) {
	cart, err := sess.Store.Cart.Fetch(r.Context(), userID)
	var f *state.Failure
	if errors.As(err, &f) && f.Kind == state.KindApplication && f.StatusCode == http.StatusNotFound {
		sess.Store.Cart.Reset()
		return &models.Cart{UserID: userID}, nil
	}
	return cart, err
}

func (h *ShopHandler) State(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":    sess.Store.Snapshot(),
		"checkout": sess.Checkout.Attempt(),
	})
}

func (h *ShopHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	var reg models.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}
	if err := sess.Store.Auth.Register(r.Context(), reg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": "Registration successful"})
}

func (h *ShopHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	var cred models.Credentials
	if !decodeJSON(w, r, &cred) {
		return
	}
	user, err := sess.Store.Auth.Login(r.Context(), cred)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := loadCart(r, sess, user.ID); err != nil {
		slog.Warn("Failed to load cart after login", "user", user.ID, "error", err)
	}
	if _, err := sess.Store.Addresses.FetchAll(r.Context(), user.ID); err != nil {
		slog.Warn("Failed to load addresses after login", "user", user.ID, "error", err)
	}

	slog.Info("Login successful", "user", user.ID, "session", sess.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

func (h *ShopHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user, err := sess.Store.Auth.CheckAuth(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

func (h *ShopHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	err := sess.Store.Auth.Logout(r.Context())
	sess.Store.SignedOut()
	if resetErr := sess.Checkout.Reset(r.Context()); resetErr != nil {
		slog.Error("Failed to reset checkout on logout", "session", sess.ID, "error", resetErr)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logged out successfully!"})
}

func (h *ShopHandler) Products(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	q := r.URL.Query()
	filter := models.ProductFilter{
		Category: splitList(q.Get("category")),
		Brand:    splitList(q.Get("brand")),
		SortBy:   q.Get("sortBy"),
	}
	list, err := sess.Store.Products.FetchFiltered(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (h *ShopHandler) ProductDetails(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	p, err := sess.Store.Products.FetchDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": p})
}

func (h *ShopHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	list, err := sess.Store.Search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}

func (h *ShopHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	list, err := sess.Store.Reviews.FetchByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}

func (h *ShopHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	var in models.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ProductID = r.PathValue("id")
	in.UserID = user.ID
	in.UserName = user.UserName

	review, err := sess.Store.Reviews.Add(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := sess.Store.Reviews.FetchByProduct(r.Context(), in.ProductID); err != nil {
		slog.Warn("Failed to refresh reviews", "product", in.ProductID, "error", err)
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": review})
}

type cartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *ShopHandler) Cart(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	cart, err := loadCart(r, sess, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": cart})
}

func (h *ShopHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	var req cartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := sess.Store.Cart.Add(r.Context(), user.ID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": cart})
}

func (h *ShopHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	var req cartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := sess.Store.Cart.UpdateQuantity(r.Context(), user.ID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": cart})
}

func (h *ShopHandler) DeleteCartItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	cart, err := sess.Store.Cart.Delete(r.Context(), user.ID, r.PathValue("productId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": cart})
}

func (h *ShopHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	list, err := sess.Store.Addresses.FetchAll(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}

func (h *ShopHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	var in models.AddressInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.UserID = user.ID
	addr, err := sess.Store.Addresses.Add(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := sess.Store.Addresses.FetchAll(r.Context(), user.ID); err != nil {
		slog.Warn("Failed to refresh addresses", "user", user.ID, "error", err)
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": addr})
}

func (h *ShopHandler) EditAddress(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	var in models.AddressInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.UserID = user.ID
	addr, err := sess.Store.Addresses.Edit(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := sess.Store.Addresses.FetchAll(r.Context(), user.ID); err != nil {
		slog.Warn("Failed to refresh addresses", "user", user.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": addr})
}

func (h *ShopHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	if err := sess.Store.Addresses.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	if _, err := sess.Store.Addresses.FetchAll(r.Context(), user.ID); err != nil {
		slog.Warn("Failed to refresh addresses", "user", user.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Address deleted successfully"})
}

func (h *ShopHandler) Orders(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	user := currentUser(w, sess)
	if user == nil {
		return
	}
	list, err := sess.Store.Orders.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}

func (h *ShopHandler) OrderDetails(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	if currentUser(w, sess) == nil {
		return
	}
	order, err := sess.Store.Orders.FetchDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": order})
}

// formatMoney renders an amount in rupees with two decimals.
func formatMoney(v float64) string {
	return "₹" + decimal.NewFromFloat(v).StringFixed(2)
}
