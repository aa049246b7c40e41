package tmpfs

import (
	"testing"

	"github.com/eric29200/nulix/fs/vfs"
	"gotest.tools/v3/assert"
)

func TestCreateLookupRoundTrip(t *testing.T) {
	table := vfs.NewInodeTable()
	fs, sb := New(table)

	root, err := table.Iget(sb, sb.RootIno, fs.Reader)
	assert.NilError(t, err)

	created, err := fs.Create(root, "hello.txt", 0o644)
	assert.NilError(t, err)

	n, err := fs.WriteAt(created, []byte("hi"), 0)
	assert.NilError(t, err)
	assert.Equal(t, n, 2)

	found, err := fs.Lookup(root, "hello.txt")
	assert.NilError(t, err)
	assert.Equal(t, found.Ino, created.Ino)
	assert.Equal(t, found.Attr().Size, int64(2))

	buf := make([]byte, 2)
	n, err = fs.ReadAt(found, buf, 0)
	assert.NilError(t, err)
	assert.Equal(t, n, 2)
	assert.Equal(t, string(buf), "hi")
}

func TestLookupReturnsSharedIdentity(t *testing.T) {
	table := vfs.NewInodeTable()
	fs, sb := New(table)

	root, err := table.Iget(sb, sb.RootIno, fs.Reader)
	assert.NilError(t, err)

	created, err := fs.Create(root, "a", 0o644)
	assert.NilError(t, err)
	assert.NilError(t, table.Iput(created))

	first, err := fs.Lookup(root, "a")
	assert.NilError(t, err)
	second, err := fs.Lookup(root, "a")
	assert.NilError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.RefCount(), 2)

	assert.NilError(t, table.Iput(first))
	assert.NilError(t, table.Iput(second))

	_, cached := table.Lookup(sb, first.Ino)
	assert.Equal(t, cached, false)
}

func TestMkdirRmdir(t *testing.T) {
	table := vfs.NewInodeTable()
	fs, sb := New(table)
	root, err := table.Iget(sb, sb.RootIno, fs.Reader)
	assert.NilError(t, err)

	dir, err := fs.Mkdir(root, "sub", 0o755)
	assert.NilError(t, err)
	assert.Assert(t, dir.Attr().Mode.IsDir())

	err = fs.Rmdir(root, "sub")
	assert.NilError(t, err)

	_, err = fs.Lookup(root, "sub")
	assert.ErrorContains(t, err, "no such entry")
}

func TestSymlinkReadlink(t *testing.T) {
	table := vfs.NewInodeTable()
	fs, sb := New(table)
	root, err := table.Iget(sb, sb.RootIno, fs.Reader)
	assert.NilError(t, err)

	link, err := fs.Symlink(root, "l", "/hello.txt")
	assert.NilError(t, err)
	assert.Assert(t, link.Attr().Mode.IsSymlink())

	target, err := fs.Readlink(link)
	assert.NilError(t, err)
	assert.Equal(t, target, "/hello.txt")
}
