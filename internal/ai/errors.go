package ai

import "errors"

// ErrUnavailable means the provider is not configured, not that a call
// failed; callers surface it separately from transport errors.
var ErrUnavailable = errors.New("ai provider unavailable")
