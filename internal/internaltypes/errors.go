package internaltypes

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid scan request")
	ErrEnumeration    = errors.New("could not list active dates")
)
