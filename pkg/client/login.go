package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"soxmon/pkg/log"
	"soxmon/pkg/models"
)

// Login exchanges credentials for a session token. Empty strings are sent
// as-is; the backend decides whether they are acceptable.
// On success the token is saved to the session store before returning.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := c.do(ctx, http.MethodPost, PathLogin, contentTypeForm, []byte(form.Encode()), "")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp, PathLogin)

	if !isSuccess(resp.StatusCode) {
		authErr := &AuthenticationError{StatusCode: resp.StatusCode, Message: defaultLoginFailure}
		var detail models.ErrorDetail
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
			authErr.Message = detail.Detail
		}
		log.Info().Str("username", username).Int("status", resp.StatusCode).Msg("Login rejected")
		return nil, authErr
	}

	var result models.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, PathLogin, err)
	}

	if err := c.store.SaveToken(result.AccessToken); err != nil {
		return nil, fmt.Errorf("saving session token: %w", err)
	}

	log.Info().Str("username", result.Username).Str("role", result.Role).Msg("Logged in")
	return &result, nil
}
