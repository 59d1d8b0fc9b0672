package handlers

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// Routes registers every page and API endpoint. rl throttles login,
// registration and order creation.
func Routes(shop *ShopHandler, admin *AdminHandler, rl *RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static", StaticFiles()))

	// Pages
	mux.HandleFunc("GET /{$}", shop.Index)
	mux.HandleFunc("GET /login", shop.LoginPage)
	mux.HandleFunc("POST /login", rl.Middleware(shop.LoginSubmit))
	mux.HandleFunc("POST /logout", shop.LogoutSubmit)

	// Checkout
	mux.HandleFunc("GET /shop/checkout", shop.CheckoutPage)
	mux.HandleFunc("POST /shop/checkout", rl.Middleware(shop.StartCheckout))
	mux.HandleFunc("POST /shop/payment/verify", shop.VerifyPayment)
	mux.HandleFunc("POST /shop/payment/failed", shop.PaymentFailed)
	mux.HandleFunc("GET "+ReturnPath, shop.RazorpayReturn)
	mux.HandleFunc("POST "+ReturnPath, shop.RazorpayReturn)
	mux.HandleFunc("GET /shop/payment-success", shop.PaymentSuccessPage)
	mux.HandleFunc("GET /shop/payment-failed", shop.PaymentFailedPage)

	// JSON API
	mux.HandleFunc("GET /api/state", shop.State)
	mux.HandleFunc("POST /api/register", rl.Middleware(shop.Register))
	mux.HandleFunc("POST /api/login", rl.Middleware(shop.Login))
	mux.HandleFunc("GET /api/check-auth", shop.CheckAuth)
	mux.HandleFunc("POST /api/logout", shop.Logout)
	mux.HandleFunc("GET /api/products", shop.Products)
	mux.HandleFunc("GET /api/products/{id}", shop.ProductDetails)
	mux.HandleFunc("GET /api/products/{id}/reviews", shop.Reviews)
	mux.HandleFunc("POST /api/products/{id}/reviews", shop.AddReview)
	mux.HandleFunc("GET /api/search", shop.Search)
	mux.HandleFunc("GET /api/cart", shop.Cart)
	mux.HandleFunc("POST /api/cart", shop.AddToCart)
	mux.HandleFunc("PUT /api/cart", shop.UpdateCart)
	mux.HandleFunc("DELETE /api/cart/{productId}", shop.DeleteCartItem)
	mux.HandleFunc("GET /api/addresses", shop.Addresses)
	mux.HandleFunc("POST /api/addresses", shop.AddAddress)
	mux.HandleFunc("PUT /api/addresses/{id}", shop.EditAddress)
	mux.HandleFunc("DELETE /api/addresses/{id}", shop.DeleteAddress)
	mux.HandleFunc("GET /api/orders", shop.Orders)
	mux.HandleFunc("GET /api/orders/{id}", shop.OrderDetails)

	// Protected Routes
	mux.HandleFunc("GET /admin", admin.AdminMiddleware(admin.Dashboard))
	mux.HandleFunc("GET /admin/stats", admin.AdminMiddleware(admin.StatsJSON))
	mux.HandleFunc("POST /admin/feature-images", admin.AdminMiddleware(admin.AddFeatureImage))
	mux.HandleFunc("POST /admin/feature-images/{id}/delete", admin.AdminMiddleware(admin.DeleteFeatureImage))
	mux.HandleFunc("DELETE /admin/feature-images/{id}", admin.AdminMiddleware(admin.DeleteFeatureImageJSON))
	mux.HandleFunc("GET /admin/orders", admin.AdminMiddleware(admin.ListOrders))
	mux.HandleFunc("GET /admin/orders/{id}", admin.AdminMiddleware(admin.OrderDetails))
	mux.HandleFunc("POST /admin/orders/{id}/status", admin.AdminMiddleware(admin.UpdateOrderStatus))
	mux.HandleFunc("GET /admin/products", admin.AdminMiddleware(admin.ListProducts))
	mux.HandleFunc("POST /admin/products", admin.AdminMiddleware(admin.CreateProduct))
	mux.HandleFunc("POST /admin/products/image", admin.AdminMiddleware(admin.UploadProductImage))
	mux.HandleFunc("POST /admin/products/{id}", admin.AdminMiddleware(admin.UpdateProduct))
	mux.HandleFunc("POST /admin/products/{id}/delete", admin.AdminMiddleware(admin.DeleteProduct))

	return mux
}

// skipReturnCSRF exempts the provider's return redirect. It is a
// cross-site POST carrying no token and is authenticated by the payment
// signature instead.
func skipReturnCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == ReturnPath {
			r = csrf.UnsafeSkipCheck(r)
		}
		next.ServeHTTP(w, r)
	})
}

type ChainConfig struct {
	CSRFKey        []byte
	Secure         bool
	TrustedOrigins []string
}

// Chain wraps h as Logger -> Security Headers -> CSRF -> h.
func Chain(h http.Handler, cfg ChainConfig) http.Handler {
	protect := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
	)
	return LoggingMiddleware(
		SecurityHeadersMiddleware(
			skipReturnCSRF(protect(h)),
		),
	)
}
