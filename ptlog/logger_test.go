package ptlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToDatedDirectory(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "shim")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.Printf("hello %s", "world")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Fatalf("expected exactly one dated subdirectory, got %v", entries)
	}

	logPath := filepath.Join(dir, entries[0].Name(), "shim.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Fatalf("expected log file to contain the message, got %q", data)
	}
}
