package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

// Me returns the admin the stored token belongs to.
func (c *Client) Me(ctx context.Context) (*models.Admin, error) {
	var admin models.Admin
	if err := c.doJSON(ctx, metrics.OpAdminMe, http.MethodGet, "/admin/me", nil, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

// Login exchanges credentials for a bearer token. The caller persists it.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	req := models.LoginRequest{Email: email, Password: password}
	var resp models.LoginResponse
	if err := c.doJSON(ctx, metrics.OpAdminLogin, http.MethodPost, "/admin/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the admin session on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, metrics.OpAdminLogout, http.MethodPost, "/admin/logout", nil, nil)
}

// Activity returns the most recent activity entries, newest first.
func (c *Client) Activity(ctx context.Context, limit int) ([]models.Activity, error) {
	req := request{
		op:     metrics.OpAdminActivity,
		method: http.MethodGet,
		path:   "/admin/activity",
	}
	if limit > 0 {
		req.query = url.Values{"limit": {strconv.Itoa(limit)}}
	}

	var items []models.Activity
	if err := c.do(ctx, req, &items); err != nil {
		return nil, err
	}
	return items, nil
}
