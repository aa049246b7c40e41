// Package minix implements the Minix v1-style on-disk filesystem named in
// spec §1/§4.8: fixed-size directory entries, 9 zone pointers per inode (7
// direct, 1 single-indirect, 1 double-indirect), a flat inode/zone bitmap
// superblock layout. All disk I/O goes through fs/buffercache, never
// directly through fs/blockdev, the way the original kernel's minix driver
// sits above its generic buffer layer.
package minix

import (
	"encoding/binary"
	"time"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/buffercache"
	"github.com/eric29200/nulix/fs/vfs"
)

const (
	BlockSize      = 1024
	NameLen        = 14
	DirEntrySize   = 2 + NameLen // ino(2) + name(14)
	InodeSize      = 32
	NumZones       = 9
	DirectZones    = 7
	IndZoneIdx     = 7
	DIndZoneIdx    = 8
	ZonesPerBlock  = BlockSize / 4
	Magic          = 0x137F
)

// SuperBlock is the Minix v1 on-disk superblock, decoded from block 1.
type SuperBlock struct {
	NInodes       uint16
	NZones        uint16
	ImapBlocks    uint16
	ZmapBlocks    uint16
	FirstDataZone uint16
	LogZoneSize   uint16
	MaxSize       uint32
	Magic         uint16
}

// diskInode is the 32-byte on-disk inode record.
type diskInode struct {
	Mode   uint16
	Uid    uint16
	Size   uint32
	Time   uint32
	Gid    uint8
	Nlinks uint8
	Zone   [NumZones]uint16
}

// FS is a mounted Minix instance.
type FS struct {
	dev    uint64
	sb     SuperBlock
	cache  *buffercache.Cache
	vsb    *vfs.SuperBlock
	table  *vfs.InodeTable

	imapStart uint32
	zmapStart uint32
	itabStart uint32
}

// Mount decodes the superblock at block 1 of dev and returns the mounted
// FS plus the vfs.SuperBlock namei should attach it under.
func Mount(table *vfs.InodeTable, cache *buffercache.Cache, dev uint64) (*FS, *vfs.SuperBlock, error) {
	buf, err := cache.Bread(dev, 1, BlockSize)
	if err != nil {
		return nil, nil, err
	}
	defer cache.Brelse(buf)

	sb := decodeSuperBlock(buf.Data)
	if sb.Magic != Magic {
		return nil, nil, errdefs.InvalidParameter(errBadMagic)
	}

	fs := &FS{
		dev:   dev,
		sb:    sb,
		cache: cache,
		table: table,
	}
	fs.imapStart = 2
	fs.zmapStart = fs.imapStart + uint32(sb.ImapBlocks)
	fs.itabStart = fs.zmapStart + uint32(sb.ZmapBlocks)

	vsb := &vfs.SuperBlock{FSType: "minix", Ops: fs, RootIno: 1}
	fs.vsb = vsb
	return fs, vsb, nil
}

func decodeSuperBlock(b []byte) SuperBlock {
	return SuperBlock{
		NInodes:       binary.LittleEndian.Uint16(b[0:2]),
		NZones:        binary.LittleEndian.Uint16(b[2:4]),
		ImapBlocks:    binary.LittleEndian.Uint16(b[4:6]),
		ZmapBlocks:    binary.LittleEndian.Uint16(b[6:8]),
		FirstDataZone: binary.LittleEndian.Uint16(b[8:10]),
		LogZoneSize:   binary.LittleEndian.Uint16(b[10:12]),
		MaxSize:       binary.LittleEndian.Uint32(b[12:16]),
		Magic:         binary.LittleEndian.Uint16(b[16:18]),
	}
}

func decodeInode(b []byte) diskInode {
	var di diskInode
	di.Mode = binary.LittleEndian.Uint16(b[0:2])
	di.Uid = binary.LittleEndian.Uint16(b[2:4])
	di.Size = binary.LittleEndian.Uint32(b[4:8])
	di.Time = binary.LittleEndian.Uint32(b[8:12])
	di.Gid = uint8(b[12])
	di.Nlinks = uint8(b[13])
	for i := 0; i < NumZones; i++ {
		di.Zone[i] = binary.LittleEndian.Uint16(b[14+2*i : 16+2*i])
	}
	return di
}

func encodeInode(di diskInode, b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], di.Mode)
	binary.LittleEndian.PutUint16(b[2:4], di.Uid)
	binary.LittleEndian.PutUint32(b[4:8], di.Size)
	binary.LittleEndian.PutUint32(b[8:12], di.Time)
	b[12] = di.Gid
	b[13] = di.Nlinks
	for i := 0; i < NumZones; i++ {
		binary.LittleEndian.PutUint16(b[14+2*i:16+2*i], di.Zone[i])
	}
}

// inodeBlock returns the disk block holding ino's 32-byte record and the
// record's offset within that block.
func (f *FS) inodeBlock(ino uint64) (uint64, int) {
	rel := ino - 1
	block := uint64(f.itabStart) + rel/uint64(BlockSize/InodeSize)
	off := int(rel%uint64(BlockSize/InodeSize)) * InodeSize
	return block, off
}

func (f *FS) readDiskInode(ino uint64) (diskInode, error) {
	block, off := f.inodeBlock(ino)
	buf, err := f.cache.Bread(f.dev, block, BlockSize)
	if err != nil {
		return diskInode{}, err
	}
	defer f.cache.Brelse(buf)
	return decodeInode(buf.Data[off : off+InodeSize]), nil
}

func (f *FS) writeDiskInode(ino uint64, di diskInode) error {
	block, off := f.inodeBlock(ino)
	buf, err := f.cache.Bread(f.dev, block, BlockSize)
	if err != nil {
		return err
	}
	encodeInode(di, buf.Data[off:off+InodeSize])
	buf.MarkDirty()
	f.cache.Brelse(buf)
	return nil
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

// Reader is the vfs.Reader minix registers with the global inode table.
func (f *FS) Reader(sb *vfs.SuperBlock, ino uint64) (vfs.Attr, any, error) {
	di, err := f.readDiskInode(ino)
	if err != nil {
		return vfs.Attr{}, nil, err
	}
	attr := vfs.Attr{
		Mode:  modeFromDisk(di.Mode),
		Uid:   uint32(di.Uid),
		Gid:   uint32(di.Gid),
		Size:  int64(di.Size),
		Mtime: time.Unix(int64(di.Time), 0),
		Nlink: uint32(di.Nlinks),
	}
	return attr, di, nil
}

func (f *FS) diskInodeOf(i *vfs.Inode) diskInode {
	if di, ok := i.Private().(diskInode); ok {
		return di
	}
	di, _ := f.readDiskInode(i.Ino)
	return di
}

// zoneAt resolves the nth 1024-byte zone of a file to an absolute disk
// zone number, walking the single/double indirect blocks as needed (7
// direct + 1 indirect + 1 double-indirect, matching the 9-pointer layout).
func (f *FS) zoneAt(di diskInode, n int) (uint32, error) {
	if n < DirectZones {
		return uint32(di.Zone[n]), nil
	}
	n -= DirectZones
	if n < ZonesPerBlock {
		return f.indirectLookup(uint32(di.Zone[IndZoneIdx]), n)
	}
	n -= ZonesPerBlock
	outer := n / ZonesPerBlock
	inner := n % ZonesPerBlock
	indBlock, err := f.indirectLookup(uint32(di.Zone[DIndZoneIdx]), outer)
	if err != nil {
		return 0, err
	}
	return f.indirectLookup(indBlock, inner)
}

func (f *FS) indirectLookup(zone uint32, idx int) (uint32, error) {
	if zone == 0 {
		return 0, nil
	}
	buf, err := f.cache.Bread(f.dev, uint64(zone), BlockSize)
	if err != nil {
		return 0, err
	}
	defer f.cache.Brelse(buf)
	return binary.LittleEndian.Uint32(buf.Data[idx*4 : idx*4+4]), nil
}

func (f *FS) ReadAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	di := f.diskInodeOf(i)
	size := int64(di.Size)
	if off >= size {
		return 0, nil
	}
	if off+int64(len(buf)) > size {
		buf = buf[:size-off]
	}
	read := 0
	for read < len(buf) {
		zoneIdx := int((off + int64(read)) / BlockSize)
		zoneOff := int((off + int64(read)) % BlockSize)
		zone, err := f.zoneAt(di, zoneIdx)
		if err != nil {
			return read, err
		}
		n := BlockSize - zoneOff
		if n > len(buf)-read {
			n = len(buf) - read
		}
		if zone == 0 {
			read += n
			continue
		}
		blk, err := f.cache.Bread(f.dev, uint64(zone), BlockSize)
		if err != nil {
			return read, err
		}
		copy(buf[read:read+n], blk.Data[zoneOff:zoneOff+n])
		f.cache.Brelse(blk)
		read += n
	}
	return read, nil
}

func (f *FS) WriteAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	return 0, errdefs.NotImplemented(errReadOnlyGrowth)
}

func (f *FS) Readdir(i *vfs.Inode) ([]vfs.DirEntry, error) {
	di := f.diskInodeOf(i)
	n := int(di.Size) / DirEntrySize
	out := make([]vfs.DirEntry, 0, n)
	raw := make([]byte, di.Size)
	if _, err := f.ReadAt(i, raw, 0); err != nil {
		return nil, err
	}
	for idx := 0; idx < n; idx++ {
		rec := raw[idx*DirEntrySize : (idx+1)*DirEntrySize]
		ino := binary.LittleEndian.Uint16(rec[0:2])
		if ino == 0 {
			continue
		}
		name := trimName(rec[2:])
		childDi, err := f.readDiskInode(uint64(ino))
		if err != nil {
			return nil, err
		}
		out = append(out, vfs.DirEntry{Name: name, Ino: uint64(ino), Type: modeFromDisk(childDi.Mode)})
	}
	return out, nil
}

func trimName(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (f *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, error) {
	entries, err := f.Readdir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Name == name {
			return f.table.Iget(f.vsb, e.Ino, f.Reader)
		}
	}
	return nil, errdefs.NotFound(errNoSuchEntry)
}

func (f *FS) Readlink(i *vfs.Inode) (string, error) {
	buf := make([]byte, i.Attr().Size)
	n, err := f.ReadAt(i, buf, 0)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

func (f *FS) PutInode(i *vfs.Inode) error { return nil }

// Minix is mounted from a fixed image in this module (spec §9: no new
// blocks are allocated at mount/format time by the kernel), so every
// mutating operation reports the filesystem as read-only rather than
// implementing an on-disk allocator; spec §9's Open Question on the new
// zone heuristic applies only if/when this is lifted.
func (f *FS) Create(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Mkdir(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Unlink(dir *vfs.Inode, name string) error {
	return errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Rmdir(dir *vfs.Inode, name string) error {
	return errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Symlink(dir *vfs.Inode, name, target string) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Mknod(dir *vfs.Inode, name string, mode vfs.Mode, rdev vfs.DevT) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Rename(oldDir *vfs.Inode, oldName string, newDir *vfs.Inode, newName string) error {
	return errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Link(dir *vfs.Inode, name string, target *vfs.Inode) error {
	return errdefs.NotImplemented(errReadOnlyGrowth)
}
func (f *FS) Truncate(i *vfs.Inode, size int64) error {
	return errdefs.NotImplemented(errReadOnlyGrowth)
}
