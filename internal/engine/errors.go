package engine

import "errors"

// ErrInvalidConfig is returned from Evaluate when a configuration value
// is out of its allowed range. No state is mutated when this fires.
var ErrInvalidConfig = errors.New("invalid engine configuration")
