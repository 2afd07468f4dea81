package services

import "errors"

var (
	// ErrForbidden means the caller is neither owner nor viewer of the
	// resource they touched.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the referenced device/session/user/video does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate shares, self-shares and duplicate device
	// registrations.
	ErrConflict = errors.New("conflict")

	// ErrEndpointGone is returned by a Delivery when the push service reports
	// the endpoint is permanently invalid (HTTP 404/410). The subscription is
	// pruned on this signal.
	ErrEndpointGone = errors.New("delivery endpoint gone")
)
