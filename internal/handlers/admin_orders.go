package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"

	"github.com/alextreichler/shopfront/internal/models"
)

var adminOrderStatuses = []string{
	models.OrderPending,
	models.OrderConfirmed,
	models.OrderInProcess,
	models.OrderInShipping,
	models.OrderDelivered,
	models.OrderRejected,
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = 10 // Default limit
	}

	orders, err := sess.Store.AdminOrders.FetchAll(r.Context())
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
	}

	totalPages := (len(orders) + limit - 1) / limit
	if totalPages == 0 { // Handle case with no orders
		totalPages = 1
	}
	start := (page - 1) * limit
	if start > len(orders) {
		start = len(orders)
	}
	end := start + limit
	if end > len(orders) {
		end = len(orders)
	}

	data := map[string]interface{}{
		"Orders":      orders[start:end],
		"Details":     sess.Store.AdminOrders.State().Data.Details,
		"Statuses":    adminOrderStatuses,
		"CsrfField":   csrf.TemplateField(r),
		"Flashes":     GetFlash(cs),
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Limit":       limit,
	}
	cs.Save(r, w)
	h.Templates.render(w, "admin_orders.html", data)
}

func (h *AdminHandler) OrderDetails(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	order, err := sess.Store.AdminOrders.FetchDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": order})
}

// UpdateOrderStatus changes the status and refreshes the open details.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	id := r.PathValue("id")
	if err := sess.Store.AdminOrders.UpdateStatus(r.Context(), id, r.FormValue("status")); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/admin/orders")
		return
	}
	if _, err := sess.Store.AdminOrders.FetchDetails(r.Context(), id); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
	}

	cs.AddFlash(FlashMessage{Type: "success", Message: "Order updated!"})
	saveAndRedirect(w, r, cs, "/admin/orders")
}
