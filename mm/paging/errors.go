package paging

import "errors"

var errOverlap = errors.New("paging: overlapping vma")
