package sim

import "errors"

// ErrInvalidConfiguration is returned, wrapped, for arena or population
// parameters no simulation can start from.
var ErrInvalidConfiguration = errors.New("invalid configuration")
