package devfs

import (
	"testing"

	"github.com/eric29200/nulix/fs/vfs"
	"gotest.tools/v3/assert"
)

func TestRegisterAndLookup(t *testing.T) {
	table := vfs.NewInodeTable()
	fs, sb := New(table)
	fs.Register("tty0", vfs.ModeChr, vfs.MkDev(4, 0))

	root, err := table.Iget(sb, sb.RootIno, fs.Reader)
	assert.NilError(t, err)

	node, err := fs.Lookup(root, "tty0")
	assert.NilError(t, err)
	assert.Assert(t, node.Attr().Mode.IsChr())
	assert.Equal(t, node.Attr().Rdev, vfs.MkDev(4, 0))
}

func TestReaddirSorted(t *testing.T) {
	table := vfs.NewInodeTable()
	fs, sb := New(table)
	fs.Register("sdb", vfs.ModeBlk, vfs.MkDev(8, 16))
	fs.Register("sda", vfs.ModeBlk, vfs.MkDev(8, 0))

	root, err := table.Iget(sb, sb.RootIno, fs.Reader)
	assert.NilError(t, err)

	entries, err := fs.Readdir(root)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 2)
	assert.Equal(t, entries[0].Name, "sda")
	assert.Equal(t, entries[1].Name, "sdb")
}

func TestMknodRegistersDevice(t *testing.T) {
	table := vfs.NewInodeTable()
	fs, sb := New(table)
	root, err := table.Iget(sb, sb.RootIno, fs.Reader)
	assert.NilError(t, err)

	n, err := fs.Mknod(root, "null", vfs.ModeChr, vfs.MkDev(1, 3))
	assert.NilError(t, err)
	assert.Assert(t, n.Attr().Mode.IsChr())

	assert.NilError(t, fs.Unlink(root, "null"))
	_, err = fs.Lookup(root, "null")
	assert.ErrorContains(t, err, "no such device")
}
