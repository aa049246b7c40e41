package errdefs

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
)

var errTest = errors.New("this is a test")

type causal interface {
	Cause() error
}

func TestNotFound(t *testing.T) {
	if IsNotFound(errTest) {
		t.Fatalf("did not expect not found error, got %T", errTest)
	}
	e := NotFound(errTest)
	if !IsNotFound(e) {
		t.Fatalf("expected not found error, got: %T", e)
	}
	if cause := e.(causal).Cause(); cause != errTest {
		t.Fatalf("cause should be errTest, got: %v", cause)
	}
	if !errors.Is(e, errTest) {
		t.Fatalf("expected not found error to match errTest")
	}
	wrapped := fmt.Errorf("foo: %w", e)
	if !IsNotFound(wrapped) {
		t.Fatalf("expected not found error, got: %T", wrapped)
	}
}

func TestConflict(t *testing.T) {
	e := Conflict(errTest)
	assert.Assert(t, IsConflict(e))
	assert.Assert(t, !IsConflict(errTest))
}

func TestForbidden(t *testing.T) {
	e := Forbidden(errTest)
	assert.Assert(t, IsForbidden(e))
}

func TestResourceExhausted(t *testing.T) {
	e := ResourceExhausted(errTest)
	assert.Assert(t, IsResourceExhausted(e))
}

func TestInterrupted(t *testing.T) {
	e := Interrupted(errTest)
	assert.Assert(t, IsInterrupted(e))
}

type errCause struct{ err error }

func newErrCause(err error) errCause { return errCause{err: err} }
func (e errCause) Error() string     { return e.err.Error() }
func (e errCause) Cause() error      { return e.err }

func TestImplements(t *testing.T) {
	var errorNotFound errNotFound
	var errorInvalidParameter errInvalidParameter
	errOther := errors.New("other")

	tests := map[string]struct {
		err      error
		expected bool
	}{
		"nil":                     {},
		"direct-not-found":        {err: errorNotFound, expected: true},
		"direct-other":            {err: errOther},
		"wrapped-not-found":       {err: fmt.Errorf("wrap: %w", errorNotFound), expected: true},
		"wrapped-other":           {err: fmt.Errorf("wrap: %w", errOther)},
		"multi-wrapped-not-found": {err: fmt.Errorf("wrap: %w", fmt.Errorf("wrap: %w", errorNotFound)), expected: true},
		"join-not-found":          {err: errors.Join(errOther, errorNotFound), expected: true},
		"join-other":              {err: errors.Join(errOther, errOther)},
		"join-invalid-param":      {err: errors.Join(errOther, errorInvalidParameter, errorNotFound)},
		"cause-not-found":         {err: newErrCause(errorNotFound), expected: true},
		"join-cause-not-found":    {err: errors.Join(errOther, newErrCause(errorNotFound)), expected: true},
		"join-cause-other":        {err: errors.Join(errOther, newErrCause(errOther))},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, IsNotFound(tc.err), tc.expected)
		})
	}
}
