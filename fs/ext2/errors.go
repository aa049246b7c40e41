package ext2

import "errors"

var (
	errBadMagic      = errors.New("ext2: bad superblock magic")
	errNoSuchEntry   = errors.New("ext2: no such entry")
	errNoSpace       = errors.New("ext2: no free blocks")
	errIndirectWrite = errors.New("ext2: write through indirect blocks not implemented")
	errNoAllocInode  = errors.New("ext2: inode allocation not implemented")
)
