package testutil

import "errors"

// ErrSimulated stands in for store and builder failures in tests.
var ErrSimulated = errors.New("simulated failure")
