package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

func (h *ShopHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)

	filter := models.ProductFilter{
		Category: splitList(r.URL.Query().Get("category")),
		Brand:    splitList(r.URL.Query().Get("brand")),
		SortBy:   r.URL.Query().Get("sortBy"),
	}
	if filter.SortBy == "" {
		filter.SortBy = "price-lowtohigh"
	}
	products, err := sess.Store.Products.FetchFiltered(r.Context(), filter)
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: state.FailureFrom(err, "Error fetching products").Message})
	}
	features, err := sess.Store.Features.Fetch(r.Context())
	if err != nil {
		slog.Warn("Failed to fetch feature images", "error", err)
	}

	user := sess.Store.Auth.User()
	data := map[string]interface{}{
		"Products":  products,
		"Features":  features,
		"User":      user,
		"IsAdmin":   user.IsAdmin(),
		"Cart":      sess.Store.Cart.Current(),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(cs),
	}
	cs.Save(r, w)
	h.Templates.render(w, "home.html", data)
}

func (h *ShopHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	_, cs := h.Sessions.Resolve(w, r)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(cs),
	}
	cs.Save(r, w)
	h.Templates.render(w, "login.html", data)
}

func (h *ShopHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	cred := models.Credentials{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if cred.Email == "" || cred.Password == "" {
		cs.AddFlash(FlashMessage{Type: "error", Message: "Email and password are required."})
		saveAndRedirect(w, r, cs, "/login")
		return
	}

	user, err := sess.Store.Auth.Login(r.Context(), cred)
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/login")
		return
	}
	if _, err := loadCart(r, sess, user.ID); err != nil {
		slog.Warn("Failed to load cart after login", "user", user.ID, "error", err)
	}
	if _, err := sess.Store.Addresses.FetchAll(r.Context(), user.ID); err != nil {
		slog.Warn("Failed to load addresses after login", "user", user.ID, "error", err)
	}

	cs.AddFlash(FlashMessage{Type: "success", Message: "Welcome, " + user.UserName + "!"})
	slog.Info("Login successful", "user", user.ID, "session", sess.ID)
	if user.IsAdmin() {
		saveAndRedirect(w, r, cs, "/admin")
		return
	}
	saveAndRedirect(w, r, cs, "/")
}

func (h *ShopHandler) LogoutSubmit(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	if err := sess.Store.Auth.Logout(r.Context()); err != nil {
		slog.Warn("Backend logout failed", "session", sess.ID, "error", err)
	}
	sess.Store.SignedOut()
	if err := sess.Checkout.Reset(r.Context()); err != nil {
		slog.Error("Failed to reset checkout on logout", "session", sess.ID, "error", err)
	}
	cs.AddFlash(FlashMessage{Type: "success", Message: "Logged out successfully!"})
	saveAndRedirect(w, r, cs, "/login")
}
