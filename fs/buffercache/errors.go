package buffercache

import "errors"

var errBadSize = errors.New("buffercache: unsupported block size")
