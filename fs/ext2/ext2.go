// Package ext2 implements the second-generation extended-FS layout named
// in spec §1/§4.8: superblock at byte 1024, block groups each with a block
// bitmap, inode bitmap, and inode table, inodes with 12 direct + 1
// indirect + 1 double-indirect + 1 triple-indirect block pointers, and
// variable-length directory entries. Unlike fs/minix this package
// allocates new data blocks, so it is the one the "first zone" heuristic
// (spec §9 Open Question) actually applies to; inode allocation is not
// implemented.
package ext2

import (
	"encoding/binary"
	"time"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/buffercache"
	"github.com/eric29200/nulix/fs/vfs"
)

const (
	SuperBlockOffset = 1024
	SuperBlockSize   = 1024
	Magic            = 0xEF53
	RootIno          = 2
	NDirBlocks       = 12
	IndBlockIdx      = NDirBlocks
	DIndBlockIdx     = IndBlockIdx + 1
	TIndBlockIdx     = DIndBlockIdx + 1
	NBlocks          = TIndBlockIdx + 1
	GoodOldInodeSize = 128
	NameLen          = 255
	DirPad           = 4
)

// dirRecLen rounds a directory entry's total length up to a 4-byte
// boundary, matching EXT2_DIR_REC_LEN.
func dirRecLen(nameLen int) int {
	l := nameLen + 8
	return (l + DirPad - 1) &^ (DirPad - 1)
}

// SuperBlock is the decoded subset of the 1024-byte on-disk superblock
// this package actually uses.
type SuperBlock struct {
	InodesCount     uint32
	BlocksCount     uint32
	FreeBlocksCount uint32
	FreeInodesCount uint32
	FirstDataBlock  uint32
	LogBlockSize    uint32
	BlocksPerGroup  uint32
	InodesPerGroup  uint32
	Magic           uint16
	InodeSize       uint16
}

func (sb SuperBlock) BlockSize() int { return 1024 << sb.LogBlockSize }

func (sb SuperBlock) GroupsCount() uint32 {
	return (sb.BlocksCount-sb.FirstDataBlock+sb.BlocksPerGroup-1) / sb.BlocksPerGroup
}

// GroupDesc is one 32-byte block-group descriptor.
type GroupDesc struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
}

type diskInode struct {
	Mode       uint16
	Uid        uint16
	Size       uint32
	Atime      uint32
	Ctime      uint32
	Mtime      uint32
	Gid        uint16
	LinksCount uint16
	Blocks     uint32
	Block      [NBlocks]uint32
}

// FS is a mounted ext2 instance.
type FS struct {
	dev   uint64
	sb    SuperBlock
	cache *buffercache.Cache
	vsb   *vfs.SuperBlock
	table *vfs.InodeTable
	gds   []GroupDesc

	lastAllocGroup uint32
}

func blockNumForOffset(off int64, blockSize int) uint64 { return uint64(off) / uint64(blockSize) }

// Mount decodes the superblock at byte 1024 and the group descriptor
// table immediately following it.
func Mount(table *vfs.InodeTable, cache *buffercache.Cache, dev uint64) (*FS, *vfs.SuperBlock, error) {
	sbBlock, err := cache.Bread(dev, blockNumForOffset(SuperBlockOffset, SuperBlockSize), SuperBlockSize)
	if err != nil {
		return nil, nil, err
	}
	sb := decodeSuperBlock(sbBlock.Data)
	cache.Brelse(sbBlock)

	if sb.Magic != Magic {
		return nil, nil, errdefs.InvalidParameter(errBadMagic)
	}

	fs := &FS{dev: dev, sb: sb, cache: cache, table: table}
	if err := fs.loadGroupDescs(); err != nil {
		return nil, nil, err
	}

	vsb := &vfs.SuperBlock{FSType: "ext2", Ops: fs, RootIno: RootIno}
	fs.vsb = vsb
	return fs, vsb, nil
}

func decodeSuperBlock(b []byte) SuperBlock {
	return SuperBlock{
		InodesCount:     binary.LittleEndian.Uint32(b[0:4]),
		BlocksCount:     binary.LittleEndian.Uint32(b[4:8]),
		FreeBlocksCount: binary.LittleEndian.Uint32(b[12:16]),
		FreeInodesCount: binary.LittleEndian.Uint32(b[16:20]),
		FirstDataBlock:  binary.LittleEndian.Uint32(b[20:24]),
		LogBlockSize:    binary.LittleEndian.Uint32(b[24:28]),
		BlocksPerGroup:  binary.LittleEndian.Uint32(b[32:36]),
		InodesPerGroup:  binary.LittleEndian.Uint32(b[40:44]),
		Magic:           binary.LittleEndian.Uint16(b[56:58]),
		InodeSize:       GoodOldInodeSize,
	}
}

func (fs *FS) groupDescBlock() uint64 {
	bs := fs.sb.BlockSize()
	if bs == 1024 {
		return 2
	}
	return uint64(fs.sb.FirstDataBlock) + 1
}

func (fs *FS) loadGroupDescs() error {
	n := fs.sb.GroupsCount()
	bs := fs.sb.BlockSize()
	descsPerBlock := bs / 32
	fs.gds = make([]GroupDesc, n)

	for i := uint32(0); i < n; i++ {
		blockIdx := fs.groupDescBlock() + uint64(i/uint32(descsPerBlock))
		buf, err := fs.cache.Bread(fs.dev, blockIdx, bs)
		if err != nil {
			return err
		}
		off := int(i%uint32(descsPerBlock)) * 32
		d := buf.Data[off : off+32]
		fs.gds[i] = GroupDesc{
			BlockBitmap:     binary.LittleEndian.Uint32(d[0:4]),
			InodeBitmap:     binary.LittleEndian.Uint32(d[4:8]),
			InodeTable:      binary.LittleEndian.Uint32(d[8:12]),
			FreeBlocksCount: binary.LittleEndian.Uint16(d[12:14]),
			FreeInodesCount: binary.LittleEndian.Uint16(d[14:16]),
			UsedDirsCount:   binary.LittleEndian.Uint16(d[16:18]),
		}
		fs.cache.Brelse(buf)
	}
	return nil
}

func decodeInode(b []byte) diskInode {
	var di diskInode
	di.Mode = binary.LittleEndian.Uint16(b[0:2])
	di.Uid = binary.LittleEndian.Uint16(b[2:4])
	di.Size = binary.LittleEndian.Uint32(b[4:8])
	di.Atime = binary.LittleEndian.Uint32(b[8:12])
	di.Ctime = binary.LittleEndian.Uint32(b[12:16])
	di.Mtime = binary.LittleEndian.Uint32(b[16:20])
	di.Gid = binary.LittleEndian.Uint16(b[24:26])
	di.LinksCount = binary.LittleEndian.Uint16(b[26:28])
	di.Blocks = binary.LittleEndian.Uint32(b[28:32])
	for i := 0; i < NBlocks; i++ {
		di.Block[i] = binary.LittleEndian.Uint32(b[40+4*i : 44+4*i])
	}
	return di
}

func encodeInode(di diskInode, b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], di.Mode)
	binary.LittleEndian.PutUint16(b[2:4], di.Uid)
	binary.LittleEndian.PutUint32(b[4:8], di.Size)
	binary.LittleEndian.PutUint32(b[8:12], di.Atime)
	binary.LittleEndian.PutUint32(b[12:16], di.Ctime)
	binary.LittleEndian.PutUint32(b[16:20], di.Mtime)
	binary.LittleEndian.PutUint16(b[24:26], di.Gid)
	binary.LittleEndian.PutUint16(b[26:28], di.LinksCount)
	binary.LittleEndian.PutUint32(b[28:32], di.Blocks)
	for i := 0; i < NBlocks; i++ {
		binary.LittleEndian.PutUint32(b[40+4*i:44+4*i], di.Block[i])
	}
}

func (fs *FS) groupOf(ino uint64) uint32 { return uint32((ino - 1) / uint64(fs.sb.InodesPerGroup)) }

func (fs *FS) inodeLocation(ino uint64) (block uint64, off int) {
	bs := fs.sb.BlockSize()
	g := fs.groupOf(ino)
	indexInGroup := (ino - 1) % uint64(fs.sb.InodesPerGroup)
	perBlock := uint64(bs) / uint64(fs.sb.InodeSize)
	block = uint64(fs.gds[g].InodeTable) + indexInGroup/perBlock
	off = int(indexInGroup%perBlock) * int(fs.sb.InodeSize)
	return
}

func (fs *FS) readDiskInode(ino uint64) (diskInode, error) {
	block, off := fs.inodeLocation(ino)
	buf, err := fs.cache.Bread(fs.dev, block, fs.sb.BlockSize())
	if err != nil {
		return diskInode{}, err
	}
	defer fs.cache.Brelse(buf)
	return decodeInode(buf.Data[off : off+128]), nil
}

func (fs *FS) writeDiskInode(ino uint64, di diskInode) error {
	block, off := fs.inodeLocation(ino)
	buf, err := fs.cache.Bread(fs.dev, block, fs.sb.BlockSize())
	if err != nil {
		return err
	}
	encodeInode(di, buf.Data[off:off+128])
	buf.MarkDirty()
	return fs.cache.Brelse(buf)
}

func modeFromDisk(m uint16) vfs.Mode {
	const (
		sIFDIR = 0o040000
		sIFREG = 0o100000
		sIFCHR = 0o020000
		sIFBLK = 0o060000
		sIFIFO = 0o010000
		sIFLNK = 0o120000
	)
	perm := vfs.Mode(m & 0o7777)
	switch m &^ 0o7777 {
	case sIFDIR:
		return perm | vfs.ModeDir
	case sIFCHR:
		return perm | vfs.ModeChr
	case sIFBLK:
		return perm | vfs.ModeBlk
	case sIFIFO:
		return perm | vfs.ModeFifo
	case sIFLNK:
		return perm | vfs.ModeSymlink
	default:
		return perm | vfs.ModeRegular
	}
}

func modeToDisk(m vfs.Mode) uint16 {
	perm := uint16(m & vfs.ModePermMask)
	switch {
	case m.IsDir():
		return perm | 0o040000
	case m.IsChr():
		return perm | 0o020000
	case m.IsBlk():
		return perm | 0o060000
	case m.IsFifo():
		return perm | 0o010000
	case m.IsSymlink():
		return perm | 0o120000
	default:
		return perm | 0o100000
	}
}

// Reader is the vfs.Reader ext2 registers with the global inode table.
func (fs *FS) Reader(sb *vfs.SuperBlock, ino uint64) (vfs.Attr, any, error) {
	di, err := fs.readDiskInode(ino)
	if err != nil {
		return vfs.Attr{}, nil, err
	}
	attr := vfs.Attr{
		Mode:  modeFromDisk(di.Mode),
		Uid:   uint32(di.Uid),
		Gid:   uint32(di.Gid),
		Size:  int64(di.Size),
		Mtime: time.Unix(int64(di.Mtime), 0),
		Ctime: time.Unix(int64(di.Ctime), 0),
		Atime: time.Unix(int64(di.Atime), 0),
		Nlink: uint32(di.LinksCount),
	}
	return attr, di, nil
}

func (fs *FS) diskInodeOf(i *vfs.Inode) diskInode {
	if di, ok := i.Private().(diskInode); ok {
		return di
	}
	di, _ := fs.readDiskInode(i.Ino)
	return di
}

// blockAt resolves the nth block of a file to an absolute block number,
// walking the indirect/double-indirect/triple-indirect pointers.
func (fs *FS) blockAt(di diskInode, n int) (uint32, error) {
	ptrsPerBlock := fs.sb.BlockSize() / 4
	if n < NDirBlocks {
		return di.Block[n], nil
	}
	n -= NDirBlocks
	if n < ptrsPerBlock {
		return fs.indirect(di.Block[IndBlockIdx], n)
	}
	n -= ptrsPerBlock
	if n < ptrsPerBlock*ptrsPerBlock {
		outer := n / ptrsPerBlock
		inner := n % ptrsPerBlock
		mid, err := fs.indirect(di.Block[DIndBlockIdx], outer)
		if err != nil || mid == 0 {
			return 0, err
		}
		return fs.indirect(mid, inner)
	}
	n -= ptrsPerBlock * ptrsPerBlock
	l1 := n / (ptrsPerBlock * ptrsPerBlock)
	rem := n % (ptrsPerBlock * ptrsPerBlock)
	l2 := rem / ptrsPerBlock
	l3 := rem % ptrsPerBlock
	p1, err := fs.indirect(di.Block[TIndBlockIdx], l1)
	if err != nil || p1 == 0 {
		return 0, err
	}
	p2, err := fs.indirect(p1, l2)
	if err != nil || p2 == 0 {
		return 0, err
	}
	return fs.indirect(p2, l3)
}

func (fs *FS) indirect(block uint32, idx int) (uint32, error) {
	if block == 0 {
		return 0, nil
	}
	buf, err := fs.cache.Bread(fs.dev, uint64(block), fs.sb.BlockSize())
	if err != nil {
		return 0, err
	}
	defer fs.cache.Brelse(buf)
	return binary.LittleEndian.Uint32(buf.Data[idx*4 : idx*4+4]), nil
}

func (fs *FS) ReadAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	di := fs.diskInodeOf(i)
	size := int64(di.Size)
	if off >= size {
		return 0, nil
	}
	if off+int64(len(buf)) > size {
		buf = buf[:size-off]
	}
	bs := fs.sb.BlockSize()
	read := 0
	for read < len(buf) {
		blockIdx := int((off + int64(read)) / int64(bs))
		blockOff := int((off + int64(read)) % int64(bs))
		block, err := fs.blockAt(di, blockIdx)
		if err != nil {
			return read, err
		}
		n := bs - blockOff
		if n > len(buf)-read {
			n = len(buf) - read
		}
		if block == 0 {
			read += n
			continue
		}
		blk, err := fs.cache.Bread(fs.dev, uint64(block), bs)
		if err != nil {
			return read, err
		}
		copy(buf[read:read+n], blk.Data[blockOff:blockOff+n])
		fs.cache.Brelse(blk)
		read += n
	}
	return read, nil
}

func (fs *FS) Readdir(i *vfs.Inode) ([]vfs.DirEntry, error) {
	di := fs.diskInodeOf(i)
	raw := make([]byte, di.Size)
	if _, err := fs.ReadAt(i, raw, 0); err != nil {
		return nil, err
	}
	var out []vfs.DirEntry
	pos := 0
	for pos < len(raw) {
		ino := binary.LittleEndian.Uint32(raw[pos : pos+4])
		recLen := int(binary.LittleEndian.Uint16(raw[pos+4 : pos+6]))
		nameLen := int(raw[pos+6])
		if recLen <= 0 {
			break
		}
		if ino != 0 {
			name := string(raw[pos+8 : pos+8+nameLen])
			childDi, err := fs.readDiskInode(uint64(ino))
			if err != nil {
				return nil, err
			}
			out = append(out, vfs.DirEntry{Name: name, Ino: uint64(ino), Type: modeFromDisk(childDi.Mode)})
		}
		pos += recLen
	}
	return out, nil
}

func (fs *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, error) {
	entries, err := fs.Readdir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Name == name {
			return fs.table.Iget(fs.vsb, e.Ino, fs.Reader)
		}
	}
	return nil, errdefs.NotFound(errNoSuchEntry)
}

// allocBlock implements the "first zone" heuristic (spec §9 Open
// Question): it searches the group last allocated from before falling
// back to a global scan, so sequential allocations tend to stay within
// one group's block bitmap.
func (fs *FS) allocBlock() (uint32, error) {
	bs := fs.sb.BlockSize()
	order := make([]uint32, 0, len(fs.gds))
	order = append(order, fs.lastAllocGroup)
	for g := uint32(0); g < uint32(len(fs.gds)); g++ {
		if g != fs.lastAllocGroup {
			order = append(order, g)
		}
	}
	for _, g := range order {
		buf, err := fs.cache.Bread(fs.dev, uint64(fs.gds[g].BlockBitmap), bs)
		if err != nil {
			return 0, err
		}
		for byteIdx, b := range buf.Data {
			if b == 0xFF {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if b&(1<<bit) == 0 {
					buf.Data[byteIdx] |= 1 << bit
					buf.MarkDirty()
					fs.cache.Brelse(buf)
					fs.lastAllocGroup = g
					blockInGroup := byteIdx*8 + bit
					return fs.sb.FirstDataBlock + g*fs.sb.BlocksPerGroup + uint32(blockInGroup), nil
				}
			}
		}
		fs.cache.Brelse(buf)
	}
	return 0, errdefs.ResourceExhausted(errNoSpace)
}

func (fs *FS) WriteAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	di := fs.diskInodeOf(i)
	bs := fs.sb.BlockSize()
	written := 0
	for written < len(buf) {
		blockIdx := int((off + int64(written)) / int64(bs))
		blockOff := int((off + int64(written)) % int64(bs))
		if blockIdx >= NDirBlocks {
			return written, errdefs.NotImplemented(errIndirectWrite)
		}
		if di.Block[blockIdx] == 0 {
			nb, err := fs.allocBlock()
			if err != nil {
				return written, err
			}
			di.Block[blockIdx] = nb
			di.Blocks += uint32(bs / 512)
		}
		n := bs - blockOff
		if n > len(buf)-written {
			n = len(buf) - written
		}
		blk, err := fs.cache.Bread(fs.dev, uint64(di.Block[blockIdx]), bs)
		if err != nil {
			return written, err
		}
		copy(blk.Data[blockOff:blockOff+n], buf[written:written+n])
		blk.MarkDirty()
		fs.cache.Brelse(blk)
		written += n
	}
	if end := off + int64(written); end > int64(di.Size) {
		di.Size = uint32(end)
	}
	di.Mtime = uint32(time.Now().Unix())
	if err := fs.writeDiskInode(i.Ino, di); err != nil {
		return written, err
	}
	i.SetPrivate(di)
	attr := i.Attr()
	attr.Size = int64(di.Size)
	i.SetAttr(attr)
	return written, nil
}

func (fs *FS) Readlink(i *vfs.Inode) (string, error) {
	buf := make([]byte, i.Attr().Size)
	n, err := fs.ReadAt(i, buf, 0)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

func (fs *FS) Truncate(i *vfs.Inode, size int64) error {
	di := fs.diskInodeOf(i)
	di.Size = uint32(size)
	if err := fs.writeDiskInode(i.Ino, di); err != nil {
		return err
	}
	i.SetPrivate(di)
	attr := i.Attr()
	attr.Size = size
	i.SetAttr(attr)
	return nil
}

func (fs *FS) PutInode(i *vfs.Inode) error { return nil }

func (fs *FS) Create(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errNoAllocInode)
}
func (fs *FS) Mkdir(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errNoAllocInode)
}
func (fs *FS) Unlink(dir *vfs.Inode, name string) error { return errdefs.NotImplemented(errNoAllocInode) }
func (fs *FS) Rmdir(dir *vfs.Inode, name string) error  { return errdefs.NotImplemented(errNoAllocInode) }
func (fs *FS) Symlink(dir *vfs.Inode, name, target string) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errNoAllocInode)
}
func (fs *FS) Mknod(dir *vfs.Inode, name string, mode vfs.Mode, rdev vfs.DevT) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errNoAllocInode)
}
func (fs *FS) Rename(oldDir *vfs.Inode, oldName string, newDir *vfs.Inode, newName string) error {
	return errdefs.NotImplemented(errNoAllocInode)
}
func (fs *FS) Link(dir *vfs.Inode, name string, target *vfs.Inode) error {
	return errdefs.NotImplemented(errNoAllocInode)
}
