package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"

	"github.com/alextreichler/shopfront/internal/checkout"
	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

// ReturnPath receives the provider's redirect after an off-site payment.
const ReturnPath = "/shop/razorpay-return"

func (h *ShopHandler) CheckoutPage(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	user := sess.Store.Auth.User()
	if user == nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: "Please log in to proceed with checkout."})
		saveAndRedirect(w, r, cs, "/login")
		return
	}

	cart, err := loadCart(r, sess, user.ID)
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: state.FailureFrom(err, "Failed to fetch cart items.").Message})
	}
	addresses, err := sess.Store.Addresses.FetchAll(r.Context(), user.ID)
	if err != nil && !state.IsKind(err, state.KindApplication) {
		cs.AddFlash(FlashMessage{Type: "error", Message: state.FailureFrom(err, "Failed to fetch addresses.").Message})
	}

	data := map[string]interface{}{
		"User":      user,
		"Cart":      cart,
		"Total":     cart.Total().InexactFloat64(),
		"Addresses": addresses,
		"CsrfToken": csrf.Token(r),
		"ReturnURL": returnURL(r),
		"Flashes":   GetFlash(cs),
	}
	cs.Save(r, w)
	h.Templates.render(w, "checkout.html", data)
}

type checkoutRequest struct {
	AddressID string `json:"addressId"`
}

// StartCheckout creates the order and answers with the widget options.
func (h *ShopHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := checkout.Input{User: sess.Store.Auth.User()}
	if in.User != nil {
		cart, err := loadCart(r, sess, in.User.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		in.Cart = cart
		if req.AddressID != "" {
			in.Address = sess.Store.Addresses.Find(req.AddressID)
		}
	}

	opts, err := sess.Checkout.HandleCheckout(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "options": opts})
}

// VerifyPayment handles the widget's success callback.
func (h *ShopHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	var proof models.PaymentProof
	if !decodeJSON(w, r, &proof) {
		return
	}
	res, err := sess.Checkout.Capture(r.Context(), proof)
	if err != nil {
		if errors.Is(err, checkout.ErrCaptureInProgress) {
			writeError(w, err)
			return
		}
		f := state.FailureFrom(err, "Payment capture failed.")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"route":   res.Route,
			"message": f.Message,
			"kind":    f.Kind,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "route": res.Route, "order": res.Order})
}

type widgetFailure struct {
	Reason string `json:"reason"`
}

// PaymentFailed handles the widget's failure callback.
func (h *ShopHandler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	var req widgetFailure
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := sess.Checkout.FailWidget(r.Context(), req.Reason)
	if errors.Is(err, checkout.ErrCaptureInProgress) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "route": res.Route})
}

// RazorpayReturn resumes the checkout after the provider redirects back,
// possibly into a fresh page load or a restarted server.
func (h *ShopHandler) RazorpayReturn(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		params = r.PostForm
		// The provider posts cross-site, so a Lax session cookie is not
		// sent. Bounce through a top-level GET, which carries it.
		if _, ok := h.Sessions.Lookup(r); !ok {
			http.Redirect(w, r, ReturnPath+"?"+params.Encode(), http.StatusSeeOther)
			return
		}
	}

	sess, cs := h.Sessions.Resolve(w, r)
	res, err := sess.Checkout.HandleReturn(r.Context(), params)
	if err != nil {
		if errors.Is(err, checkout.ErrCaptureInProgress) {
			cs.AddFlash(FlashMessage{Type: "info", Message: "Your payment is being confirmed. Please wait a moment."})
			saveAndRedirect(w, r, cs, "/shop/checkout")
			return
		}
		cs.AddFlash(FlashMessage{Type: "error", Message: state.FailureFrom(err, "Payment capture failed.").Message})
	}
	saveAndRedirect(w, r, cs, res.Route)
}

func (h *ShopHandler) PaymentSuccessPage(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	st := sess.Store.Orders.State()
	data := map[string]interface{}{
		"Order":   st.Data.Details,
		"Paid":    st.Data.PaymentSuccess,
		"User":    sess.Store.Auth.User(),
		"Flashes": GetFlash(cs),
	}
	cs.Save(r, w)
	h.Templates.render(w, "payment_success.html", data)
}

func (h *ShopHandler) PaymentFailedPage(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	attempt := sess.Checkout.Attempt()
	data := map[string]interface{}{
		"Attempt": attempt,
		"User":    sess.Store.Auth.User(),
		"Flashes": GetFlash(cs),
	}
	cs.Save(r, w)
	h.Templates.render(w, "payment_failed.html", data)
}

// returnURL is the absolute callback the widget redirects to in redirect mode.
func returnURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: ReturnPath}
	return u.String()
}
