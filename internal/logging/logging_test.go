package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetup_Quiet(t *testing.T) {
	var stderr bytes.Buffer
	s := Setup(Options{Stderr: &stderr})
	defer s.Close()

	s.Logger("sync").Printf("hello")
	if stderr.Len() != 0 {
		t.Errorf("quiet sink wrote to stderr: %q", stderr.String())
	}
	if s.Writer() != io.Discard {
		t.Error("expected discard writer")
	}
}

func TestSetup_VerboseAndFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "palmtask.log")
	s := Setup(Options{File: path, MaxSizeMB: 1, Verbose: true, Stderr: &stderr})

	s.Logger("store").Printf("opened %s", "db")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if !strings.Contains(stderr.String(), "[store] ") || !strings.Contains(stderr.String(), "opened db") {
		t.Errorf("stderr = %q", stderr.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[store] opened db") {
		t.Errorf("log file = %q", data)
	}
}
