package devapi

import "github.com/gofiber/fiber/v2"

func (s *Server) routes(app *fiber.App) {
	s.authRoutes(app)
	s.adminRoutes(app)
	s.shopRoutes(app)
	s.commonRoutes(app)
	app.Get("/uploads/:name", s.serveUpload)
	if _, fake := s.provider.(*FakeProvider); fake {
		app.Get("/dev/pay/:providerOrderId", s.fakePay)
	}
}

func (s *Server) authRoutes(app *fiber.App) {
	auth := app.Group("/api/auth")
	auth.Post("/register", s.register)
	auth.Post("/login", s.login)
	auth.Post("/logout", s.logout)
	auth.Get("/check-auth", s.requireAuth, s.checkAuth)
}

func (s *Server) adminRoutes(app *fiber.App) {
	admin := app.Group("/api/admin", s.requireAuth, s.requireAdmin)

	admin.Post("/products/upload-image", s.uploadImage)
	admin.Post("/products/add", s.addProduct)
	admin.Put("/products/edit/:id", s.editProduct)
	admin.Delete("/products/delete/:id", s.deleteProduct)
	admin.Get("/products/get", s.allProducts)

	admin.Get("/orders/get", s.allOrders)
	admin.Get("/orders/details/:id", s.adminOrderDetails)
	admin.Put("/orders/update/:id", s.updateOrderStatus)
}

func (s *Server) shopRoutes(app *fiber.App) {
	shop := app.Group("/api/shop")

	shop.Get("/products/get", s.filteredProducts)
	shop.Get("/products/get/:id", s.productDetails)
	shop.Get("/search/:keyword", s.search)
	shop.Get("/review/:productId", s.productReviews)

	shop.Post("/cart/add", s.requireAuth, s.addToCart)
	shop.Get("/cart/get/:userId", s.requireAuth, s.fetchCart)
	shop.Put("/cart/update-cart", s.requireAuth, s.updateCart)
	shop.Delete("/cart/:userId/:productId", s.requireAuth, s.deleteCartItem)

	shop.Post("/address/add", s.requireAuth, s.addAddress)
	shop.Get("/address/get/:userId", s.requireAuth, s.fetchAddresses)
	shop.Put("/address/update/:userId/:addressId", s.requireAuth, s.editAddress)
	shop.Delete("/address/delete/:userId/:addressId", s.requireAuth, s.deleteAddress)

	shop.Post("/order/create", s.requireAuth, s.createOrder)
	shop.Post("/order/capture", s.requireAuth, s.capturePayment)
	shop.Get("/order/list/:userId", s.requireAuth, s.ordersByUser)
	shop.Get("/order/details/:id", s.requireAuth, s.orderDetails)

	shop.Post("/review/add", s.requireAuth, s.addReview)
}

func (s *Server) commonRoutes(app *fiber.App) {
	feature := app.Group("/api/common/feature")
	feature.Get("/get", s.featureImages)
	feature.Post("/add", s.requireAuth, s.requireAdmin, s.addFeatureImage)
	feature.Delete("/delete/:id", s.requireAuth, s.requireAdmin, s.deleteFeatureImage)
}
