// Package storefront holds one state slice per business entity of the shop
// and the Store bundling them for a browsing session.
package storefront

import (
	"context"
	"io"

	"github.com/alextreichler/shopfront/internal/models"
)

type AuthAPI interface {
	Register(ctx context.Context, r models.Registration) error
	Login(ctx context.Context, cred models.Credentials) (*models.User, error)
	Logout(ctx context.Context) error
	CheckAuth(ctx context.Context) (*models.User, error)
}

type CatalogAPI interface {
	FilteredProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	ProductDetails(ctx context.Context, id string) (*models.Product, error)
}

type SearchAPI interface {
	Search(ctx context.Context, keyword string) ([]models.Product, error)
}

type ReviewAPI interface {
	AddReview(ctx context.Context, in models.ReviewInput) (*models.Review, error)
	Reviews(ctx context.Context, productID string) ([]models.Review, error)
}

type CartAPI interface {
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error)
	Cart(ctx context.Context, userID string) (*models.Cart, error)
	UpdateCartQuantity(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error)
	DeleteCartItem(ctx context.Context, userID, productID string) (*models.Cart, error)
}

type AddressAPI interface {
	AddAddress(ctx context.Context, in models.AddressInput) (*models.Address, error)
	Addresses(ctx context.Context, userID string) ([]models.Address, error)
	UpdateAddress(ctx context.Context, userID, addressID string, in models.AddressInput) (*models.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID string) error
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.CreatedOrder, error)
	CapturePayment(ctx context.Context, req models.CaptureRequest) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	OrderDetails(ctx context.Context, id string) (*models.Order, error)
}

type AdminProductAPI interface {
	AdminAddProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	AdminProducts(ctx context.Context) ([]models.Product, error)
	AdminEditProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error)
	AdminDeleteProduct(ctx context.Context, id string) error
	UploadProductImage(ctx context.Context, filename string, r io.Reader) (string, error)
}

type AdminOrderAPI interface {
	AdminOrders(ctx context.Context) ([]models.Order, error)
	AdminOrderDetails(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, orderStatus string) error
}

type FeatureAPI interface {
	FeatureImages(ctx context.Context) ([]models.FeatureImage, error)
	AddFeatureImage(ctx context.Context, image string) (*models.FeatureImage, error)
	DeleteFeatureImage(ctx context.Context, id string) error
}

// Gateway is everything the storefront needs from the backend. It is
// satisfied by *gateway.Client.
type Gateway interface {
	AuthAPI
	CatalogAPI
	SearchAPI
	ReviewAPI
	CartAPI
	AddressAPI
	OrderAPI
	AdminProductAPI
	AdminOrderAPI
	FeatureAPI
}

// TokenWriter persists the correlation token of a newly created order.
type TokenWriter interface {
	Set(ctx context.Context, orderID string) error
}

type none = struct{}
