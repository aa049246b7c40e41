package minix

import (
	"encoding/binary"
	"testing"

	"github.com/eric29200/nulix/fs/buffercache"
	"github.com/eric29200/nulix/fs/vfs"
	"gotest.tools/v3/assert"
)

// memDevice is an in-memory block device backing a hand-built Minix image.
type memDevice struct {
	blocks map[uint64][]byte
}

func newMemDevice() *memDevice { return &memDevice{blocks: make(map[uint64][]byte)} }

func (d *memDevice) ReadBlock(dev uint32, block uint64, size int) ([]byte, error) {
	b, ok := d.blocks[block]
	if !ok {
		return make([]byte, size), nil
	}
	out := make([]byte, size)
	copy(out, b)
	return out, nil
}

func (d *memDevice) WriteBlock(dev uint32, block uint64, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	d.blocks[block] = cp
	return nil
}

func (d *memDevice) putBlock(block uint64, data []byte) {
	buf := make([]byte, BlockSize)
	copy(buf, data)
	d.blocks[block] = buf
}

// buildImage lays out: superblock (block1), 1 imap block, 1 zmap block,
// inode table, then root directory data zone with one entry:
// "hello.txt".
func buildImage() *memDevice {
	dev := newMemDevice()

	sb := make([]byte, BlockSize)
	binary.LittleEndian.PutUint16(sb[0:2], 64)  // NInodes
	binary.LittleEndian.PutUint16(sb[2:4], 100) // NZones
	binary.LittleEndian.PutUint16(sb[4:6], 1)   // ImapBlocks
	binary.LittleEndian.PutUint16(sb[6:8], 1)   // ZmapBlocks
	binary.LittleEndian.PutUint16(sb[8:10], 10) // FirstDataZone
	binary.LittleEndian.PutUint16(sb[10:12], 0) // LogZoneSize
	binary.LittleEndian.PutUint32(sb[12:16], 1<<20)
	binary.LittleEndian.PutUint16(sb[16:18], Magic)
	dev.putBlock(1, sb)

	// itabStart = 2 (imap) + 1 (imap blocks) + 1 (zmap blocks) = 4
	itabStart := uint64(4)

	// inode 1: root directory, one zone (block 10), size = 1 dirent.
	rootInode := make([]byte, InodeSize)
	encodeInode(diskInode{
		Mode:   0o040755,
		Nlinks: 2,
		Size:   uint32(DirEntrySize),
		Zone:   [NumZones]uint16{10},
	}, rootInode)

	// inode 2: regular file "hello.txt", stored in zone 11.
	fileInode := make([]byte, InodeSize)
	content := "hi minix\n"
	encodeInode(diskInode{
		Mode:   0o100644,
		Nlinks: 1,
		Size:   uint32(len(content)),
		Zone:   [NumZones]uint16{11},
	}, fileInode)

	itBlock := make([]byte, BlockSize)
	copy(itBlock[0:InodeSize], rootInode)
	copy(itBlock[InodeSize:2*InodeSize], fileInode)
	dev.putBlock(itabStart, itBlock)

	// root directory zone 10: one entry "hello.txt" -> inode 2.
	dirZone := make([]byte, BlockSize)
	binary.LittleEndian.PutUint16(dirZone[0:2], 2)
	copy(dirZone[2:2+NameLen], "hello.txt")
	dev.putBlock(10, dirZone)

	// file zone 11.
	fileZone := make([]byte, BlockSize)
	copy(fileZone, content)
	dev.putBlock(11, fileZone)

	return dev
}

func TestMountAndReadRoot(t *testing.T) {
	dev := buildImage()
	cache := buffercache.New(dev)
	table := vfs.NewInodeTable()

	fs, vsb, err := Mount(table, cache, 0)
	assert.NilError(t, err)

	root, err := table.Iget(vsb, vsb.RootIno, fs.Reader)
	assert.NilError(t, err)
	assert.Assert(t, root.Attr().Mode.IsDir())

	entries, err := fs.Readdir(root)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].Name, "hello.txt")
}

func TestLookupAndReadFile(t *testing.T) {
	dev := buildImage()
	cache := buffercache.New(dev)
	table := vfs.NewInodeTable()

	fs, vsb, err := Mount(table, cache, 0)
	assert.NilError(t, err)

	root, err := table.Iget(vsb, vsb.RootIno, fs.Reader)
	assert.NilError(t, err)

	file, err := fs.Lookup(root, "hello.txt")
	assert.NilError(t, err)
	assert.Assert(t, file.Attr().Mode.IsRegular())

	buf := make([]byte, 32)
	n, err := fs.ReadAt(file, buf, 0)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "hi minix\n")
}

func TestBadMagicRejected(t *testing.T) {
	dev := newMemDevice()
	cache := buffercache.New(dev)
	table := vfs.NewInodeTable()
	_, _, err := Mount(table, cache, 0)
	assert.ErrorContains(t, err, "bad superblock magic")
}
