package client

import (
	"context"
	"net/http"

	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

// Chat submits one chat turn. threadID is "" on the first turn of a session.
// Chat does not require a bearer token.
func (c *Client) Chat(ctx context.Context, query, threadID, clientID string) (*models.ChatResponse, error) {
	req := models.ChatRequest{Query: query, ClientID: clientID}
	if threadID != "" {
		req.ThreadID = &threadID
	}

	var resp models.ChatResponse
	if err := c.doJSON(ctx, metrics.OpChat, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
