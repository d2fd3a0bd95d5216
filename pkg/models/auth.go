package models

// LoginResult is returned by POST /auth/login on success.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	Message     string `json:"message"`
}

// ErrorDetail is the JSON error body the backend sends with non-2xx responses.
type ErrorDetail struct {
	Detail string `json:"detail"`
}

// CurrentUser describes the owner of the held token (GET /auth/me).
type CurrentUser struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	TokenCreated string `json:"token_created"`
	TokenExpires string `json:"token_expires"`
}

// Health is the unauthenticated liveness answer (GET /health).
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
