package iox

import (
	"errors"
	"testing"
)

// countingCloser fails every Close so the helpers must swallow the error.
type countingCloser struct{ closes int }

func (c *countingCloser) Close() error {
	c.closes++
	return errors.New("close failed")
}

func TestDiscardClose(t *testing.T) {
	c := &countingCloser{}
	DiscardClose(c)
	if c.closes != 1 {
		t.Fatalf("closes = %d, want 1", c.closes)
	}
}

func TestCloseFunc_Deferred(t *testing.T) {
	c := &countingCloser{}
	cleanup := CloseFunc(c)
	if c.closes != 0 {
		t.Fatal("Close ran before cleanup was invoked")
	}

	cleanup()
	cleanup()
	if c.closes != 2 {
		t.Fatalf("closes = %d, want 2", c.closes)
	}
}

func TestDiscardErr(t *testing.T) {
	calls := 0
	sync := func() error {
		calls++
		return errors.New("sync /dev/stderr: invalid argument")
	}

	DiscardErr(sync)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
