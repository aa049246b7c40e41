package errno

import (
	"testing"

	"github.com/eric29200/nulix/errdefs"
	"gotest.tools/v3/assert"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Errno
	}{
		{"nil", nil, 0},
		{"not-found", errdefs.NotFound(assertErr("x")), ENOENT},
		{"invalid", errdefs.InvalidParameter(assertErr("x")), EINVAL},
		{"conflict", errdefs.Conflict(assertErr("x")), EEXIST},
		{"forbidden", errdefs.Forbidden(assertErr("x")), EACCES},
		{"exhausted", errdefs.ResourceExhausted(assertErr("x")), ENOMEM},
		{"unavailable", errdefs.Unavailable(assertErr("x")), EAGAIN},
		{"not-implemented", errdefs.NotImplemented(assertErr("x")), ENOSYS},
		{"interrupted", errdefs.Interrupted(assertErr("x")), EINTR},
		{"raw-errno", ENXIO, ENXIO},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, FromError(c.err), c.want)
		})
	}
}

type simpleErr string

func (s simpleErr) Error() string { return string(s) }
func assertErr(s string) error    { return simpleErr(s) }
