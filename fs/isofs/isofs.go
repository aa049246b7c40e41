// Package isofs implements a read-only ISO9660 filesystem with Rock Ridge
// extensions named in spec §1/§4.8: POSIX names (NM), mode, link count
// and uid/gid (PX), and symlinks (SL) carried in System Use Sharing
// Protocol (SUSP) entries alongside the plain ISO9660 directory records.
// Of the PX fields only the mode reaches vfs.Attr; TF timestamps are not
// decoded.
package isofs

import (
	"encoding/binary"
	"time"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/fs/buffercache"
	"github.com/eric29200/nulix/fs/vfs"
)

const (
	BlockSize      = 2048
	VolDescStart   = 16 // logical block of the first volume descriptor
	PrimaryVolDesc = 1
	TerminatorDesc = 255
)

// SuperBlock is the decoded subset of the ISO9660 primary volume
// descriptor this package uses.
type SuperBlock struct {
	RootExtent uint32
	RootSize   uint32
}

// FS is a mounted, read-only ISO9660 instance.
type FS struct {
	dev   uint64
	sb    SuperBlock
	cache *buffercache.Cache
	vsb   *vfs.SuperBlock
	table *vfs.InodeTable
}

// dirRecord is an in-memory decode of one iso_directory_record plus any
// Rock Ridge (SUSP) extensions found in its system-use area.
type dirRecord struct {
	Extent   uint32
	Size     uint32
	Flags    byte
	Name     string
	IsDir    bool
	RRName   string // Rock Ridge "NM" alternate name, if present
	RRMode   uint32 // Rock Ridge "PX" POSIX mode, if present
	RRUid    uint32
	RRGid    uint32
	RRNlink  uint32
	RRSymTgt string // Rock Ridge "SL" symlink target, if present
}

// num733 decodes a both-endian 8-byte field (little-endian half first),
// matching isofs_num733 in the source this is grounded on.
func num733(b []byte) uint32 { return binary.LittleEndian.Uint32(b[0:4]) }

// Mount reads the primary volume descriptor at logical block 16.
func Mount(table *vfs.InodeTable, cache *buffercache.Cache, dev uint64) (*FS, *vfs.SuperBlock, error) {
	buf, err := cache.Bread(dev, VolDescStart, BlockSize)
	if err != nil {
		return nil, nil, err
	}
	defer cache.Brelse(buf)

	if buf.Data[0] != PrimaryVolDesc {
		return nil, nil, errdefs.InvalidParameter(errNotPrimary)
	}
	if string(buf.Data[1:6]) != "CD001" {
		return nil, nil, errdefs.InvalidParameter(errBadMagic)
	}

	// Root directory record lives at offset 156 within the PVD, 34 bytes
	// long, same shape as any other directory record.
	root := decodeDirRecord(buf.Data[156:190])

	fs := &FS{
		dev:   dev,
		sb:    SuperBlock{RootExtent: root.Extent, RootSize: root.Size},
		cache: cache,
		table: table,
	}
	vsb := &vfs.SuperBlock{FSType: "isofs", Ops: fs, RootIno: uint64(root.Extent)}
	fs.vsb = vsb
	return fs, vsb, nil
}

// decodeDirRecord decodes one iso_directory_record, including any Rock
// Ridge SUSP entries in its trailing system-use area. Callers read the
// record's on-disk length separately with dirRecordLen.
func decodeDirRecord(b []byte) dirRecord {
	length := int(b[0])
	if length == 0 {
		return dirRecord{}
	}
	extent := num733(b[2:10])
	size := num733(b[10:18])
	flags := b[25]
	nameLen := int(b[32])
	name := string(b[33 : 33+nameLen])
	if name == "\x00" {
		name = "."
	} else if name == "\x01" {
		name = ".."
	}

	rec := dirRecord{Extent: extent, Size: size, Flags: flags, Name: name, IsDir: flags&2 != 0}

	suOff := 33 + nameLen
	if nameLen%2 == 0 {
		suOff++
	}
	if suOff < length {
		parseRockRidge(&rec, b[suOff:length])
	}
	return rec
}

func dirRecordLen(b []byte) int { return int(b[0]) }

// parseRockRidge walks the SUSP entry chain in a directory record's
// system-use area, grounded on __setup_rock_ridge/rock_ridge signature
// dispatch in original_source/kernel/fs/isofs/rock.c (NM/PX/SL/TF are the
// extensions spec §2 calls out by name; CE continuation records spanning
// another block are not followed, matching the in-memory-only scope of
// this package).
func parseRockRidge(rec *dirRecord, su []byte) {
	pos := 0
	for pos+4 <= len(su) {
		sig := su[pos : pos+2]
		entryLen := int(su[pos+2])
		if entryLen < 4 || pos+entryLen > len(su) {
			break
		}
		body := su[pos+4 : pos+entryLen]
		switch string(sig) {
		case "NM":
			if len(body) > 1 {
				rec.RRName = string(body[1:])
			}
		case "PX":
			if len(body) >= 32 {
				rec.RRMode = binary.LittleEndian.Uint32(body[0:4])
				rec.RRNlink = binary.LittleEndian.Uint32(body[8:12])
				rec.RRUid = binary.LittleEndian.Uint32(body[16:20])
				rec.RRGid = binary.LittleEndian.Uint32(body[24:28])
			}
		case "SL":
			if len(body) > 1 {
				rec.RRSymTgt = decodeSLComponents(body[1:])
			}
		}
		pos += entryLen
	}
}

// decodeSLComponents joins a Rock Ridge SL entry's component records into
// a slash-separated path (component flag bit value 2 = "current", 4 =
// "parent", otherwise a literal name segment).
func decodeSLComponents(b []byte) string {
	out := ""
	pos := 0
	for pos+2 <= len(b) {
		flags := b[pos]
		clen := int(b[pos+1])
		pos += 2
		if pos+clen > len(b) {
			break
		}
		switch {
		case flags&2 != 0:
			out += "."
		case flags&4 != 0:
			out += ".."
		default:
			out += string(b[pos : pos+clen])
		}
		pos += clen
		if pos < len(b) {
			out += "/"
		}
	}
	return out
}

func (rec dirRecord) displayName() string {
	if rec.RRName != "" {
		return rec.RRName
	}
	return rec.Name
}

func (rec dirRecord) mode() vfs.Mode {
	if rec.RRMode != 0 {
		perm := vfs.Mode(rec.RRMode & 0o7777)
		switch rec.RRMode &^ 0o7777 {
		case 0o040000:
			return perm | vfs.ModeDir
		case 0o120000:
			return perm | vfs.ModeSymlink
		default:
			return perm | vfs.ModeRegular
		}
	}
	if rec.IsDir {
		return vfs.ModeDir | 0o555
	}
	if rec.RRSymTgt != "" {
		return vfs.ModeSymlink | 0o777
	}
	return vfs.ModeRegular | 0o444
}

// readDir lists every directory record in a directory's extent.
func (fs *FS) readDir(extent, size uint32) ([]dirRecord, error) {
	var out []dirRecord
	blocks := (size + BlockSize - 1) / BlockSize
	for b := uint32(0); b < blocks; b++ {
		buf, err := fs.cache.Bread(fs.dev, uint64(extent+b), BlockSize)
		if err != nil {
			return nil, err
		}
		pos := 0
		for pos < BlockSize {
			l := dirRecordLen(buf.Data[pos:])
			if l == 0 {
				break
			}
			rec := decodeDirRecord(buf.Data[pos : pos+l])
			if rec.Name != "." && rec.Name != ".." {
				out = append(out, rec)
			}
			pos += l
		}
		fs.cache.Brelse(buf)
	}
	return out, nil
}

// Reader is the vfs.Reader isofs registers with the global inode table;
// the inode number IS the extent (ISO9660 has no separate inode space),
// so size must be rediscovered by re-listing the parent, which Lookup
// does and stashes via private.
func (fs *FS) Reader(sb *vfs.SuperBlock, ino uint64) (vfs.Attr, any, error) {
	if ino == uint64(fs.sb.RootExtent) {
		buf, err := fs.cache.Bread(fs.dev, VolDescStart, BlockSize)
		if err != nil {
			return vfs.Attr{}, nil, err
		}
		defer fs.cache.Brelse(buf)
		root := decodeDirRecord(buf.Data[156:190])
		return vfs.Attr{Mode: root.mode(), Nlink: 2, Mtime: time.Time{}}, root, nil
	}
	return vfs.Attr{}, nil, errdefs.NotFound(errNoSuchEntry)
}

func (fs *FS) recordOf(i *vfs.Inode) dirRecord {
	if rec, ok := i.Private().(dirRecord); ok {
		return rec
	}
	return dirRecord{Extent: uint32(i.Ino)}
}

func (fs *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, error) {
	dirRec := fs.recordOf(dir)
	entries, err := fs.readDir(dirRec.Extent, dirRec.Size)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.displayName() == name {
			ino := uint64(e.Extent)
			inode, err := fs.table.Iget(fs.vsb, ino, func(sb *vfs.SuperBlock, _ uint64) (vfs.Attr, any, error) {
				return vfs.Attr{Mode: e.mode(), Nlink: 1, Size: int64(e.Size)}, e, nil
			})
			return inode, err
		}
	}
	return nil, errdefs.NotFound(errNoSuchEntry)
}

func (fs *FS) Readdir(i *vfs.Inode) ([]vfs.DirEntry, error) {
	rec := fs.recordOf(i)
	entries, err := fs.readDir(rec.Extent, rec.Size)
	if err != nil {
		return nil, err
	}
	out := make([]vfs.DirEntry, 0, len(entries))
	for _, e := range entries {
		typ := vfs.Mode(vfs.ModeRegular)
		if e.IsDir {
			typ = vfs.ModeDir
		}
		out = append(out, vfs.DirEntry{Name: e.displayName(), Ino: uint64(e.Extent), Type: typ})
	}
	return out, nil
}

func (fs *FS) ReadAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	rec := fs.recordOf(i)
	size := int64(rec.Size)
	if off >= size {
		return 0, nil
	}
	if off+int64(len(buf)) > size {
		buf = buf[:size-off]
	}
	read := 0
	for read < len(buf) {
		blockIdx := uint32((off + int64(read)) / BlockSize)
		blockOff := int((off + int64(read)) % BlockSize)
		blk, err := fs.cache.Bread(fs.dev, uint64(rec.Extent+blockIdx), BlockSize)
		if err != nil {
			return read, err
		}
		n := BlockSize - blockOff
		if n > len(buf)-read {
			n = len(buf) - read
		}
		copy(buf[read:read+n], blk.Data[blockOff:blockOff+n])
		fs.cache.Brelse(blk)
		read += n
	}
	return read, nil
}

func (fs *FS) Readlink(i *vfs.Inode) (string, error) {
	rec := fs.recordOf(i)
	if rec.RRSymTgt == "" {
		return "", errdefs.InvalidParameter(errNotSymlink)
	}
	return rec.RRSymTgt, nil
}

func (fs *FS) PutInode(i *vfs.Inode) error { return nil }

func (fs *FS) WriteAt(i *vfs.Inode, buf []byte, off int64) (int, error) {
	return 0, errdefs.NotImplemented(errReadOnly)
}
func (fs *FS) Create(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (fs *FS) Mkdir(dir *vfs.Inode, name string, mode vfs.Mode) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (fs *FS) Unlink(dir *vfs.Inode, name string) error { return errdefs.NotImplemented(errReadOnly) }
func (fs *FS) Rmdir(dir *vfs.Inode, name string) error  { return errdefs.NotImplemented(errReadOnly) }
func (fs *FS) Symlink(dir *vfs.Inode, name, target string) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (fs *FS) Mknod(dir *vfs.Inode, name string, mode vfs.Mode, rdev vfs.DevT) (*vfs.Inode, error) {
	return nil, errdefs.NotImplemented(errReadOnly)
}
func (fs *FS) Rename(oldDir *vfs.Inode, oldName string, newDir *vfs.Inode, newName string) error {
	return errdefs.NotImplemented(errReadOnly)
}
func (fs *FS) Link(dir *vfs.Inode, name string, target *vfs.Inode) error {
	return errdefs.NotImplemented(errReadOnly)
}
func (fs *FS) Truncate(i *vfs.Inode, size int64) error {
	return errdefs.NotImplemented(errReadOnly)
}
