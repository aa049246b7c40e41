package kalloc

import "errors"

var errBadHandle = errors.New("kalloc: invalid handle")
