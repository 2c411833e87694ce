package segment

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeScript creates an executable shell script standing in for rembg.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-rembg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestCommandRemover_Remove(t *testing.T) {
	// Arguments: i <in> <out>
	script := writeScript(t, `[ "$1" = "i" ] || exit 3
cp "$2" "$3"
`)

	out, err := NewCommandRemover(script).Remove(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if string(out) != "payload" {
		t.Errorf("output: got %q, want payload", out)
	}
}

func TestCommandRemover_ExtraArgs(t *testing.T) {
	script := writeScript(t, `[ "$2" = "-m" ] && [ "$3" = "u2net" ] || exit 3
cp "$4" "$5"
`)

	out, err := NewCommandRemover(script, "-m", "u2net").Remove(context.Background(), []byte("abc"))
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if string(out) != "abc" {
		t.Errorf("output: got %q, want abc", out)
	}
}

func TestCommandRemover_Failure(t *testing.T) {
	script := writeScript(t, "echo 'no model' >&2\nexit 1\n")

	_, err := NewCommandRemover(script).Remove(context.Background(), []byte("x"))
	if err == nil {
		t.Fatal("Remove should fail when the command exits non-zero")
	}
}

func TestCommandRemover_MissingBinary(t *testing.T) {
	_, err := NewCommandRemover("/nonexistent/rembg").Remove(context.Background(), []byte("x"))
	if err == nil {
		t.Fatal("Remove should fail for a missing executable")
	}
}
