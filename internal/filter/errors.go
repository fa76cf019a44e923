package filter

import "errors"

// ErrInvalidRegex is returned by CompileSensitiveRegex when the
// configured pattern fails to compile. Startup treats this as fatal.
var ErrInvalidRegex = errors.New("filter: invalid sensitive regex")
