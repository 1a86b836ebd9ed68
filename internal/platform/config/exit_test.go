package config

import (
	"bytes"
	"testing"
)

func TestExitfWritesMessageAndExitsWithCode1(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	prevWriter, prevExit := exitWriter, exitFunc
	exitWriter = &buf
	exitFunc = func(c int) { code = c }
	t.Cleanup(func() {
		exitWriter, exitFunc = prevWriter, prevExit
	})

	Exitf("fatal: %s", "bias out of range")

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if got, want := buf.String(), "fatal: bias out of range\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}
