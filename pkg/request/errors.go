package request

import "errors"

// ErrInternalServer is the generic error returned to clients when a handler
// panics or fails unexpectedly.
var ErrInternalServer = errors.New("internal server error")
