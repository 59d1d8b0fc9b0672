package storefront

import (
	"context"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

type CartState struct {
	Cart *models.Cart `json:"cartItems"`
}

// Cart mirrors the server cart. Every successful operation replaces it with
// the server's response; a failed fetch empties it, a failed mutation keeps it.
type Cart struct {
	*state.Slice[CartState]
	api CartAPI
}

func NewCart(api CartAPI, opts ...state.Option) *Cart {
	return &Cart{Slice: state.New("shopCart", CartState{}, opts...), api: api}
}

func (c *Cart) cartOp(name string, kind state.OpKind, fallback string, call func(context.Context) (*models.Cart, error)) state.Op[CartState, *models.Cart] {
	return state.Op[CartState, *models.Cart]{
		Name:      name,
		Kind:      kind,
		Fallback:  fallback,
		Call:      call,
		Fulfilled: func(st *state.State[CartState], cart *models.Cart) { st.Data.Cart = cart },
	}
}

func (c *Cart) Add(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		err := state.Validation("Quantity must be at least 1.")
		c.Update(func(st *state.State[CartState]) { st.Error = err })
		return nil, err
	}
	return state.Run(ctx, c.Slice, c.cartOp("addToCart", state.Mutate, "Failed to add item to cart.",
		func(ctx context.Context) (*models.Cart, error) {
			return c.api.AddToCart(ctx, userID, productID, quantity)
		}))
}

func (c *Cart) Fetch(ctx context.Context, userID string) (*models.Cart, error) {
	return state.Run(ctx, c.Slice, c.cartOp("fetchCartItems", state.Fetch, "Failed to fetch cart items.",
		func(ctx context.Context) (*models.Cart, error) {
			return c.api.Cart(ctx, userID)
		}))
}

func (c *Cart) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		err := state.Validation("Quantity must be at least 1.")
		c.Update(func(st *state.State[CartState]) { st.Error = err })
		return nil, err
	}
	return state.Run(ctx, c.Slice, c.cartOp("updateCartQuantity", state.Mutate, "Failed to update cart quantity.",
		func(ctx context.Context) (*models.Cart, error) {
			return c.api.UpdateCartQuantity(ctx, userID, productID, quantity)
		}))
}

func (c *Cart) Delete(ctx context.Context, userID, productID string) (*models.Cart, error) {
	return state.Run(ctx, c.Slice, c.cartOp("deleteCartItem", state.Mutate, "Failed to delete cart item.",
		func(ctx context.Context) (*models.Cart, error) {
			return c.api.DeleteCartItem(ctx, userID, productID)
		}))
}

// Current returns the last known cart, or nil.
func (c *Cart) Current() *models.Cart {
	return c.State().Data.Cart
}

// Reset drops the local copy after an order is placed or the user signs out.
func (c *Cart) Reset() {
	c.Update(func(st *state.State[CartState]) {
		st.Data.Cart = nil
		st.IsLoading = false
		st.Error = nil
	})
}
