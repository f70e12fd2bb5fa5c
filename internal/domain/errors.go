package domain

import "errors"

// ErrParameterNotFound marks a parameter lookup that found nothing, as
// opposed to a transport or permission failure. Callers treat it as "use
// the builtin default" rather than a fault.
var ErrParameterNotFound = errors.New("parameter not found")
