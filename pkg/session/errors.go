package session

import "errors"

var (
	// ErrNoToken is returned by Token when no session token is held.
	ErrNoToken = errors.New("no session token")

	// ErrStore is returned when the backing storage fails.
	ErrStore = errors.New("session store error")

	// ErrUnsupportedBackend is returned by Open for an unknown backend name.
	ErrUnsupportedBackend = errors.New("unsupported session backend")

	// ErrSealedToken is returned when a stored token cannot be decrypted.
	ErrSealedToken = errors.New("stored token cannot be decrypted")
)
