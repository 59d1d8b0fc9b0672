package gateway

import (
	"context"
	"net/http"

	"github.com/alextreichler/shopfront/internal/models"
)

type userReply struct {
	Status
	User *models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, r models.Registration) error {
	var out Status
	return c.do(ctx, http.MethodPost, "/api/auth/register", r, &out)
}

func (c *Client) Login(ctx context.Context, cred models.Credentials) (*models.User, error) {
	var out userReply
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", cred, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	var out Status
	return c.do(ctx, http.MethodPost, "/api/auth/logout", struct{}{}, &out)
}

// CheckAuth asks the backend who the session cookie belongs to. Caches are
// bypassed so a logout elsewhere is seen immediately.
func (c *Client) CheckAuth(ctx context.Context) (*models.User, error) {
	h := http.Header{}
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")

	var out userReply
	if err := c.send(ctx, http.MethodGet, "/api/auth/check-auth", nil, "", h, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
