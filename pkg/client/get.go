package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Get fetches a protected resource with the held token as bearer credential.
//
// A 401 clears the token, notifies the session-expired subscribers and
// returns (nil, nil): expiry is not an error for the caller. Any other
// non-success status returns *APIError and is not retried.
func Get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, fmt.Errorf("reading session token: %w", err)
	}

	resp, err := c.do(ctx, http.MethodGet, path, "", nil, token)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp, path)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if err := c.expireSession(path); err != nil {
			return nil, err
		}
		return nil, nil
	case !isSuccess(resp.StatusCode):
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path}
	}

	var data T
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return &data, nil
}
