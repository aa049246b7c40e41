package vfs

import "errors"

var (
	errMountBusy  = errors.New("vfs: mount point busy")
	errNotMounted = errors.New("vfs: not a mount point")
	errNotFound   = errors.New("vfs: no such file or directory")
	errNotDir     = errors.New("vfs: not a directory")
	errIsDir      = errors.New("vfs: is a directory")
	errLoop       = errors.New("vfs: too many levels of symbolic links")
	errExist      = errors.New("vfs: file exists")
	errNameTooLong = errors.New("vfs: name too long")
	errBadFD            = errors.New("vfs: bad file descriptor")
	errTooManyOpenFiles = errors.New("vfs: too many open files")
)

// MaxSymlinkDepth bounds symlink-following recursion (spec §4.4).
const MaxSymlinkDepth = 8

// MaxNameLength bounds one path component's length.
const MaxNameLength = 255
