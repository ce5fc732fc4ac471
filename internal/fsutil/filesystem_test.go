package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_CreateAndRead(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "out", "plots")
	if err := osfs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	path := filepath.Join(dir, "report.json")
	w, err := osfs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := osfs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("content = %q", data)
	}
	info, err := osfs.Stat(path)
	if err != nil || info.Size() != int64(len(data)) {
		t.Errorf("Stat = %v, %v", info, err)
	}

	if _, err := osfs.Create(filepath.Join(dir, "missing", "x.json")); err == nil {
		t.Error("expected error creating a file in a missing directory")
	}
}

func TestMemoryFileSystem_CreateNeedsDirectory(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Create("out/report.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Create without directory: err = %v, want ErrNotExist", err)
	}
	if err := mfs.MkdirAll("out", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	w, err := mfs.Create("out/report.json")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w.Write([]byte("hello, "))
	w.Write([]byte("world"))

	// Contents appear on Close.
	if data, _ := mfs.ReadFile("out/report.json"); len(data) != 0 {
		t.Errorf("content before Close = %q, want empty", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, err := mfs.ReadFile("out/./report.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello, world" {
		t.Errorf("content = %q, want %q", data, "hello, world")
	}
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/runs/a/plots", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, dir := range []string{"/runs", "/runs/a", "/runs/a/plots"} {
		info, err := mfs.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Stat(%s) = %v, %v; want directory", dir, info, err)
		}
	}

	w, _ := mfs.Create("/runs/a/x.png")
	w.Write([]byte{1, 2, 3})
	w.Close()
	info, err := mfs.Stat("/runs/a/x.png")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.IsDir() || info.Size() != 3 || info.Name() != "x.png" {
		t.Errorf("Stat = {name %s size %d dir %v}", info.Name(), info.Size(), info.IsDir())
	}

	if _, err := mfs.Stat("/runs/b"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat missing: err = %v", err)
	}
	if err := mfs.MkdirAll("/runs/a/x.png/sub", 0755); err == nil {
		t.Error("expected MkdirAll through a file to fail")
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"b.json", "a.html"} {
		w, err := mfs.Create(name)
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", name, err)
		}
		w.Close()
	}
	got := mfs.Files()
	if len(got) != 2 || got[0] != "a.html" || got[1] != "b.json" {
		t.Errorf("Files() = %v", got)
	}
}
