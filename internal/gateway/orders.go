package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alextreichler/shopfront/internal/models"
)

type createdOrderReply struct {
	Status
	models.CreatedOrder
}

func (c *Client) CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.CreatedOrder, error) {
	var out createdOrderReply
	if err := c.do(ctx, http.MethodPost, "/api/shop/order/create", draft, &out); err != nil {
		return nil, err
	}
	return &out.CreatedOrder, nil
}

// CapturePayment submits the provider's proof of payment for verification.
func (c *Client) CapturePayment(ctx context.Context, req models.CaptureRequest) (*models.Order, error) {
	var out dataReply[*models.Order]
	if err := c.do(ctx, http.MethodPost, "/api/shop/order/capture", req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var out dataReply[[]models.Order]
	if err := c.get(ctx, "/api/shop/order/list/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) OrderDetails(ctx context.Context, id string) (*models.Order, error) {
	var out dataReply[*models.Order]
	if err := c.get(ctx, "/api/shop/order/details/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
