package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"

	"github.com/alextreichler/shopfront/internal/models"
)

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	products, err := sess.Store.AdminProducts.FetchAll(r.Context())
	if err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
	}
	data := map[string]interface{}{
		"Products":  products,
		"ImageURL":  sess.Store.AdminProducts.State().Data.ImageURL,
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(cs),
	}
	cs.Save(r, w)
	h.Templates.render(w, "admin_products.html", data)
}

// productForm reads and validates the product form. Messages for every
// invalid field are flashed and ok is false.
func productForm(r *http.Request, cs *sessions.Session) (in models.ProductInput, ok bool) {
	in = models.ProductInput{
		Image:       strings.TrimSpace(r.FormValue("image")),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Brand:       r.FormValue("brand"),
	}

	errors := make(map[string]string)
	if in.Title == "" {
		errors["title"] = "Title is required."
	}
	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		errors["price"] = "Invalid price format."
	} else if !price.IsPositive() {
		errors["price"] = "Price must be positive."
	}
	in.Price = price.InexactFloat64()
	if raw := r.FormValue("salePrice"); raw != "" {
		sale, err := decimal.NewFromString(raw)
		if err != nil || sale.IsNegative() {
			errors["salePrice"] = "Invalid sale price."
		}
		in.SalePrice = sale.InexactFloat64()
	}
	stock, err := strconv.Atoi(r.FormValue("totalStock"))
	if err != nil || stock < 0 {
		errors["totalStock"] = "Stock must be a whole number."
	}
	in.TotalStock = stock

	for _, msg := range errors {
		cs.AddFlash(FlashMessage{Type: "error", Message: msg})
	}
	return in, len(errors) == 0
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	in, ok := productForm(r, cs)
	if !ok {
		saveAndRedirect(w, r, cs, "/admin/products")
		return
	}
	if in.Image == "" {
		in.Image = sess.Store.AdminProducts.State().Data.ImageURL
	}
	if _, err := sess.Store.AdminProducts.Add(r.Context(), in); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/admin/products")
		return
	}
	sess.Store.AdminProducts.FetchAll(r.Context())

	cs.AddFlash(FlashMessage{Type: "success", Message: "Product added successfully!"})
	saveAndRedirect(w, r, cs, "/admin/products")
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	in, ok := productForm(r, cs)
	if !ok {
		saveAndRedirect(w, r, cs, "/admin/products")
		return
	}
	if _, err := sess.Store.AdminProducts.Edit(r.Context(), r.PathValue("id"), in); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/admin/products")
		return
	}
	sess.Store.AdminProducts.FetchAll(r.Context())

	cs.AddFlash(FlashMessage{Type: "success", Message: "Product updated successfully!"})
	saveAndRedirect(w, r, cs, "/admin/products")
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.Sessions.Resolve(w, r)
	if err := sess.Store.AdminProducts.Delete(r.Context(), r.PathValue("id")); err != nil {
		cs.AddFlash(FlashMessage{Type: "error", Message: err.Error()})
		saveAndRedirect(w, r, cs, "/admin/products")
		return
	}
	sess.Store.AdminProducts.FetchAll(r.Context())

	cs.AddFlash(FlashMessage{Type: "success", Message: "Product deleted successfully!"})
	saveAndRedirect(w, r, cs, "/admin/products")
}

// UploadProductImage resizes and uploads the posted image, answering with
// its hosted URL for the product form.
func (h *AdminHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.Sessions.Resolve(w, r)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("File too large. Max 10MB."))
		return
	}
	file, header, err := r.FormFile("my_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Image file is required."))
		return
	}
	defer file.Close()

	url, err := sess.Store.AdminProducts.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "url": url})
}
