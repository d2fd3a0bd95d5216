package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"soxmon/pkg/models"
)

// Me describes the user owning the held token. A nil result means the
// session has expired.
func (c *Client) Me(ctx context.Context) (*models.CurrentUser, error) {
	return Get[models.CurrentUser](ctx, c, PathMe)
}

// Health checks that the backend is up. It needs no session.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	resp, err := c.do(ctx, http.MethodGet, PathHealth, "", nil, "")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp, PathHealth)

	if !isSuccess(resp.StatusCode) {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: PathHealth}
	}

	var health models.Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, PathHealth, err)
	}
	return &health, nil
}
