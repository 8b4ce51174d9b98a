package readiness

import "errors"

// ErrTimeoutExceeded is returned when a timeout is exceeded.
var ErrTimeoutExceeded = errors.New("timeout exceeded")

// ErrInvalidCondition is returned when a Condition names neither a condition type nor a JSONPath.
var ErrInvalidCondition = errors.New("condition needs a condition type or a JSONPath")

var errUnknownResourceType = errors.New("unknown resource type")
