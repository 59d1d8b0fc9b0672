package storefront

import (
	"github.com/alextreichler/shopfront/internal/state"
)

// Store bundles every slice of one browsing session.
type Store struct {
	Auth          *Auth
	Products      *Products
	Cart          *Cart
	Addresses     *Addresses
	Orders        *Orders
	Reviews       *Reviews
	Search        *Search
	AdminProducts *AdminProducts
	AdminOrders   *AdminOrders
	Features      *Features
}

func New(api Gateway, token TokenWriter, opts ...state.Option) *Store {
	return &Store{
		Auth:          NewAuth(api, opts...),
		Products:      NewProducts(api, opts...),
		Cart:          NewCart(api, opts...),
		Addresses:     NewAddresses(api, opts...),
		Orders:        NewOrders(api, token, opts...),
		Reviews:       NewReviews(api, opts...),
		Search:        NewSearch(api, opts...),
		AdminProducts: NewAdminProducts(api, opts...),
		AdminOrders:   NewAdminOrders(api, opts...),
		Features:      NewFeatures(api, opts...),
	}
}

// Snapshot is the JSON view of all slices.
type Snapshot struct {
	Auth          state.State[AuthState]          `json:"auth"`
	Products      state.State[ProductsState]      `json:"shopProducts"`
	Cart          state.State[CartState]          `json:"shopCart"`
	Addresses     state.State[AddressState]       `json:"address"`
	Orders        state.State[OrdersState]        `json:"shopOrder"`
	Reviews       state.State[ReviewsState]       `json:"review"`
	Search        state.State[SearchState]        `json:"search"`
	AdminProducts state.State[AdminProductsState] `json:"adminProducts"`
	AdminOrders   state.State[AdminOrdersState]   `json:"adminOrder"`
	Features      state.State[FeaturesState]      `json:"commonFeature"`
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Auth:          s.Auth.State(),
		Products:      s.Products.State(),
		Cart:          s.Cart.State(),
		Addresses:     s.Addresses.State(),
		Orders:        s.Orders.State(),
		Reviews:       s.Reviews.State(),
		Search:        s.Search.State(),
		AdminProducts: s.AdminProducts.State(),
		AdminOrders:   s.AdminOrders.State(),
		Features:      s.Features.State(),
	}
}

// SignedOut drops per-user data after a logout.
func (s *Store) SignedOut() {
	s.Cart.Reset()
	s.Addresses.SetList(nil)
	s.Orders.ResetDetails()
	s.Orders.ResetPaymentStatus()
}
