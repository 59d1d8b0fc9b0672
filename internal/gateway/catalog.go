package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/alextreichler/shopfront/internal/models"
)

// FilterQuery renders a product filter the way the shop listing expects it:
// multi-valued filters are comma-joined, empty ones are dropped.
func FilterQuery(f models.ProductFilter) url.Values {
	q := url.Values{}
	if len(f.Category) > 0 {
		q.Set("category", strings.Join(f.Category, ","))
	}
	if len(f.Brand) > 0 {
		q.Set("brand", strings.Join(f.Brand, ","))
	}
	if f.SortBy != "" {
		q.Set("sortBy", f.SortBy)
	}
	return q
}

func (c *Client) FilteredProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	path := "/api/shop/products/get"
	if q := FilterQuery(f).Encode(); q != "" {
		path += "?" + q
	}
	var out dataReply[[]models.Product]
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) ProductDetails(ctx context.Context, id string) (*models.Product, error) {
	var out dataReply[*models.Product]
	if err := c.get(ctx, "/api/shop/products/get/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	var out dataReply[[]models.Product]
	if err := c.get(ctx, "/api/shop/search/"+url.PathEscape(keyword), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) AddReview(ctx context.Context, in models.ReviewInput) (*models.Review, error) {
	var out dataReply[*models.Review]
	if err := c.do(ctx, http.MethodPost, "/api/shop/review/add", in, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Reviews(ctx context.Context, productID string) ([]models.Review, error) {
	var out dataReply[[]models.Review]
	if err := c.get(ctx, "/api/shop/review/"+url.PathEscape(productID), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
