package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alextreichler/shopfront/internal/models"
)

func (c *Client) AdminAddProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var out dataReply[*models.Product]
	if err := c.do(ctx, http.MethodPost, "/api/admin/products/add", in, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) AdminProducts(ctx context.Context) ([]models.Product, error) {
	var out dataReply[[]models.Product]
	if err := c.get(ctx, "/api/admin/products/get", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) AdminEditProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	var out dataReply[*models.Product]
	if err := c.do(ctx, http.MethodPut, "/api/admin/products/edit/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) AdminDeleteProduct(ctx context.Context, id string) error {
	var out Status
	return c.do(ctx, http.MethodDelete, "/api/admin/products/delete/"+url.PathEscape(id), nil, &out)
}

func (c *Client) AdminOrders(ctx context.Context) ([]models.Order, error) {
	var out dataReply[[]models.Order]
	if err := c.get(ctx, "/api/admin/orders/get", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) AdminOrderDetails(ctx context.Context, id string) (*models.Order, error) {
	var out dataReply[*models.Order]
	if err := c.get(ctx, "/api/admin/orders/details/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id, orderStatus string) error {
	var out Status
	body := map[string]string{"orderStatus": orderStatus}
	return c.do(ctx, http.MethodPut, "/api/admin/orders/update/"+url.PathEscape(id), body, &out)
}

func (c *Client) FeatureImages(ctx context.Context) ([]models.FeatureImage, error) {
	var out dataReply[[]models.FeatureImage]
	if err := c.get(ctx, "/api/common/feature/get", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) AddFeatureImage(ctx context.Context, image string) (*models.FeatureImage, error) {
	var out dataReply[*models.FeatureImage]
	body := map[string]string{"image": image}
	if err := c.do(ctx, http.MethodPost, "/api/common/feature/add", body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) DeleteFeatureImage(ctx context.Context, id string) error {
	var out Status
	return c.do(ctx, http.MethodDelete, "/api/common/feature/delete/"+url.PathEscape(id), nil, &out)
}
