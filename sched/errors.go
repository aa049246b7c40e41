package sched

import "errors"

var (
	errNotRunnable = errors.New("sched: task is not runnable")
)
