package ext2

import (
	"encoding/binary"
	"testing"

	"github.com/eric29200/nulix/fs/buffercache"
	"github.com/eric29200/nulix/fs/vfs"
	"gotest.tools/v3/assert"
)

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
	buf := make([]byte, 1024)
	copy(buf, data)
	d.blocks[block] = buf
}

// buildImage lays out a one-group 1024-byte-block image:
//   block0: boot (unused), block1: superblock, block2: group descriptors,
//   block3: block bitmap, block4: inode bitmap, block5-8: inode table
//   (32 inodes * 128 bytes = 4096 bytes = 4 blocks), block9: root dir
//   data, block10: file data.
func buildImage() *memDevice {
	dev := newMemDevice()

	sb := make([]byte, SuperBlockSize)
	binary.LittleEndian.PutUint32(sb[0:4], 32)   // InodesCount
	binary.LittleEndian.PutUint32(sb[4:8], 8192) // BlocksCount
	binary.LittleEndian.PutUint32(sb[20:24], 1)  // FirstDataBlock
	binary.LittleEndian.PutUint32(sb[24:28], 0)  // LogBlockSize -> 1024
	binary.LittleEndian.PutUint32(sb[32:36], 8192)
	binary.LittleEndian.PutUint32(sb[40:44], 32) // InodesPerGroup
	binary.LittleEndian.PutUint16(sb[56:58], Magic)
	dev.putBlock(1, sb)

	gd := make([]byte, 32)
	binary.LittleEndian.PutUint32(gd[0:4], 3)  // BlockBitmap
	binary.LittleEndian.PutUint32(gd[4:8], 4)  // InodeBitmap
	binary.LittleEndian.PutUint32(gd[8:12], 5) // InodeTable
	binary.LittleEndian.PutUint16(gd[16:18], 1)
	dev.putBlock(2, gd)

	bitmap := make([]byte, 1024)
	bitmap[0] = 0xFF          // blocks 1-8 used
	bitmap[1] = 0b00000011    // blocks 9,10 used
	dev.putBlock(3, bitmap)

	inodeTable := make([]byte, 4*1024)
	rootDi := diskInode{Mode: 0o040755, LinksCount: 2, Size: 1024, Block: [NBlocks]uint32{9}}
	encodeInode(rootDi, inodeTable[1*128:2*128]) // ino2 -> index1

	content := "hi ext2\n"
	fileDi := diskInode{Mode: 0o100644, LinksCount: 1, Size: uint32(len(content)), Block: [NBlocks]uint32{10}}
	encodeInode(fileDi, inodeTable[2*128:3*128]) // ino3 -> index2

	dev.putBlock(5, inodeTable[0:1024])
	dev.putBlock(6, inodeTable[1024:2048])
	dev.putBlock(7, inodeTable[2048:3072])
	dev.putBlock(8, inodeTable[3072:4096])

	rootDir := make([]byte, 1024)
	binary.LittleEndian.PutUint32(rootDir[0:4], 3) // d_inode
	binary.LittleEndian.PutUint16(rootDir[4:6], 1024)
	rootDir[6] = byte(len("hello.txt"))
	copy(rootDir[8:], "hello.txt")
	dev.putBlock(9, rootDir)

	fileBlock := make([]byte, 1024)
	copy(fileBlock, content)
	dev.putBlock(10, fileBlock)

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
	assert.Equal(t, entries[0].Ino, uint64(3))
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

	buf := make([]byte, 32)
	n, err := fs.ReadAt(file, buf, 0)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "hi ext2\n")
}

func TestAllocBlockFirstZoneHeuristic(t *testing.T) {
	dev := buildImage()
	cache := buffercache.New(dev)
	table := vfs.NewInodeTable()

	fs, _, err := Mount(table, cache, 0)
	assert.NilError(t, err)

	b, err := fs.allocBlock()
	assert.NilError(t, err)
	assert.Equal(t, b, uint32(11))

	b2, err := fs.allocBlock()
	assert.NilError(t, err)
	assert.Equal(t, b2, uint32(12))
}

func TestWriteAtGrowsFile(t *testing.T) {
	dev := buildImage()
	cache := buffercache.New(dev)
	table := vfs.NewInodeTable()

	fs, vsb, err := Mount(table, cache, 0)
	assert.NilError(t, err)
	root, err := table.Iget(vsb, vsb.RootIno, fs.Reader)
	assert.NilError(t, err)
	file, err := fs.Lookup(root, "hello.txt")
	assert.NilError(t, err)

	n, err := fs.WriteAt(file, []byte("more"), 8)
	assert.NilError(t, err)
	assert.Equal(t, n, 4)
	assert.Equal(t, file.Attr().Size, int64(12))

	buf := make([]byte, 16)
	n, err = fs.ReadAt(file, buf, 0)
	assert.NilError(t, err)
	assert.Equal(t, string(buf[:n]), "hi ext2\nmore")
}

func TestBadMagicRejected(t *testing.T) {
	dev := newMemDevice()
	cache := buffercache.New(dev)
	table := vfs.NewInodeTable()
	_, _, err := Mount(table, cache, 0)
	assert.ErrorContains(t, err, "bad superblock magic")
}
