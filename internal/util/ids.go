// Package util holds small stateless helpers shared across packages.
package util

import "github.com/google/uuid"

// NewReqID generates a correlation id used to tie a request's logs and
// response headers together (X-Request-Id).
func NewReqID() string {
	return uuid.NewString()
}
