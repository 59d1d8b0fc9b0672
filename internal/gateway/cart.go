package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alextreichler/shopfront/internal/models"
)

type cartLine struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// The cart endpoints all answer with the whole updated cart.

func (c *Client) AddToCart(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	var out dataReply[*models.Cart]
	body := cartLine{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/api/shop/cart/add", body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Cart(ctx context.Context, userID string) (*models.Cart, error) {
	var out dataReply[*models.Cart]
	if err := c.get(ctx, "/api/shop/cart/get/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) UpdateCartQuantity(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	var out dataReply[*models.Cart]
	body := cartLine{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPut, "/api/shop/cart/update-cart", body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) DeleteCartItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	var out dataReply[*models.Cart]
	path := "/api/shop/cart/" + url.PathEscape(userID) + "/" + url.PathEscape(productID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
