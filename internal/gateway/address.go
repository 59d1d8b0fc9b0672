package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alextreichler/shopfront/internal/models"
)

func (c *Client) AddAddress(ctx context.Context, in models.AddressInput) (*models.Address, error) {
	var out dataReply[*models.Address]
	if err := c.do(ctx, http.MethodPost, "/api/shop/address/add", in, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Addresses(ctx context.Context, userID string) ([]models.Address, error) {
	var out dataReply[[]models.Address]
	if err := c.get(ctx, "/api/shop/address/get/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) UpdateAddress(ctx context.Context, userID, addressID string, in models.AddressInput) (*models.Address, error) {
	var out dataReply[*models.Address]
	path := "/api/shop/address/update/" + url.PathEscape(userID) + "/" + url.PathEscape(addressID)
	if err := c.do(ctx, http.MethodPut, path, in, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) DeleteAddress(ctx context.Context, userID, addressID string) error {
	var out Status
	path := "/api/shop/address/delete/" + url.PathEscape(userID) + "/" + url.PathEscape(addressID)
	return c.do(ctx, http.MethodDelete, path, nil, &out)
}
