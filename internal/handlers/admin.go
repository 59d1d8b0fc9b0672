package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/alextreichler/shopfront/internal/store"
)

// CheckoutStats is the read side of the checkout journal.
type CheckoutStats interface {
	GetCheckoutStats(ctx context.Context) (*store.CheckoutStats, error)
	GetRecentAttempts(ctx context.Context, limit int) ([]store.AttemptRecord, error)
}

type AdminHandler struct {
	Sessions  *Registry
	Templates *TemplateCache
	Stats     CheckoutStats
}

// AdminMiddleware ensures the session belongs to a signed-in admin
func (h *AdminHandler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, cs := h.Sessions.Resolve(w, r)
		user := sess.Store.Auth.User()
		if user == nil {
			slog.Info("AdminMiddleware: User not authenticated, redirecting to /login", "path", r.URL.Path)
			cs.AddFlash(FlashMessage{Type: "error", Message: "You must be logged in to access this page."})
			saveAndRedirect(w, r, cs, "/login")
			return
		}
		if !user.IsAdmin() {
			slog.Warn("AdminMiddleware: Non-admin user rejected", "user", user.ID, "path", r.URL.Path)
			cs.AddFlash(FlashMessage{Type: "error", Message: "Admins only."})
			saveAndRedirect(w, r, cs, "/")
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)

	stats, err := h.Stats.GetCheckoutStats(r.Context())
	if err != nil {
		slog.Error("Failed to fetch checkout stats", "error", err)
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}
	attempts, err := h.Stats.GetRecentAttempts(r.Context(), 20)
	if err != nil {
		slog.Error("Failed to fetch recent attempts", "error", err)
	}
	features, err := sess.Store.Features.Fetch(r.Context())
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
	}

	data := map[string]interface{}{
		"Stats":     stats,
		"Attempts":  attempts,
		"Features":  features,
		"User":      sess.Store.Auth.User(),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(cs),
	}
	cs.Save(r, w)
	h.Templates.render(w, "admin.html", data)
}

// StatsJSON serves the checkout stats for dashboards polling the API.
func (h *AdminHandler) StatsJSON(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetCheckoutStats(r.Context())
	if err != nil {
		slog.Error("Failed to fetch checkout stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Error fetching stats"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"totalAttempts":   stats.TotalAttempts,
		"attemptsByPhase": stats.AttemptsByPhase,
		"failuresByKind":  stats.FailuresByKind,
		"capturedRevenue": stats.CapturedRevenue.StringFixed(2),
	})
}

// AddFeatureImage uploads the posted image and adds it to the banner.
func (h *AdminHandler) AddFeatureImage(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: "File too large. Max 10MB."})
		saveAndRedirect(w, r, cs, "/admin")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: "Image file is required."})
		saveAndRedirect(w, r, cs, "/admin")
		return
	}
	defer file.Close()

	imageURL, err := sess.Store.AdminProducts.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/admin")
		return
	}
	if _, err := sess.Store.Features.Add(r.Context(), imageURL); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/admin")
		return
	}
	if _, err := sess.Store.Features.Fetch(r.Context()); err != nil {
		slog.Warn("Failed to refresh feature images", "error", err)
	}

	cs.AddFlash(FlashMessage{Type: "success", Message: "Feature image added successfully!"})
	saveAndRedirect(w, r, cs, "/admin")
}

func (h *AdminHandler) DeleteFeatureImage(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	if err := sess.Store.Features.Delete(r.Context(), r.PathValue("id")); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/admin")
		return
	}
	if _, err := sess.Store.Features.Fetch(r.Context()); err != nil {
		slog.Warn("Failed to refresh feature images", "error", err)
	}
	cs.AddFlash(FlashMessage{Type: "success", Message: "Feature image deleted successfully!"})
	saveAndRedirect(w, r, cs, "/admin")
}

func (h *AdminHandler) DeleteFeatureImageJSON(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	if err := sess.Store.Features.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	list, err := sess.Store.Features.Fetch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}
