package api

import "net/http"

// genericNetworkMessage is shown when the transport fails before any
// response arrives.
const genericNetworkMessage = "Network error. Please try again."

// Error is the single failure shape every gateway call returns. Status is the
// HTTP status code, or 0 when no response was received. Message is always
// human-readable: the server's detail field when present, otherwise a
// fallback supplied by the endpoint.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AuthRejected reports whether the server declined the credential.
func (e *Error) AuthRejected() bool {
	return e.Status == http.StatusUnauthorized
}

// errorDetail is the rejection body shape used by every endpoint.
type errorDetail struct {
	Detail string `json:"detail"`
}
