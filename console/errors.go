package console

import "errors"

var (
	errNoSuchVT    = errors.New("console: no such virtual terminal")
	errOutOfBounds = errors.New("console: cell coordinate out of bounds")
)
