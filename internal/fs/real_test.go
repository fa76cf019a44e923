package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func Test_Real_OpenFile_Creates_File_When_Flag_Set(t *testing.T) {
	t.Parallel()

	r := NewReal()
	path := filepath.Join(t.TempDir(), "file")

	f, err := r.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		t.Fatalf("OpenFile(%q): %v", path, err)
	}
	defer f.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %q to exist after OpenFile with O_CREATE: %v", path, err)
	}
}

func Test_Real_OpenFile_Returns_ErrNotExist_Without_Create_Flag(t *testing.T) {
	t.Parallel()

	r := NewReal()
	path := filepath.Join(t.TempDir(), "missing")

	_, err := r.OpenFile(path, os.O_RDONLY, 0o600)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("OpenFile(%q): err=%v, want %v", path, err, os.ErrNotExist)
	}
}

func Test_Real_OpenFile_Returned_File_Satisfies_Fd_And_Stat(t *testing.T) {
	t.Parallel()

	r := NewReal()
	path := filepath.Join(t.TempDir(), "file")

	f, err := r.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		t.Fatalf("OpenFile(%q): %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat(): %v", err)
	}

	if info.Name() != filepath.Base(path) {
		t.Fatalf("Stat().Name() = %q, want %q", info.Name(), filepath.Base(path))
	}
}

func Test_Real_MkdirAll_Creates_Nested_Directories(t *testing.T) {
	t.Parallel()

	r := NewReal()
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := r.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected %q to exist: %v", path, err)
	}

	if !info.IsDir() {
		t.Fatalf("%q is not a directory", path)
	}
}

func Test_Real_MkdirAll_Is_NoOp_When_Directory_Exists(t *testing.T) {
	t.Parallel()

	r := NewReal()
	path := t.TempDir()

	if err := r.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q) on existing dir: %v", path, err)
	}
}

func Test_Real_Stat_Returns_ErrNotExist_For_Missing_Path(t *testing.T) {
	t.Parallel()

	r := NewReal()
	path := filepath.Join(t.TempDir(), "missing")

	_, err := r.Stat(path)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Stat(%q): err=%v, want %v", path, err, os.ErrNotExist)
	}
}

func Test_Real_Stat_Reports_Same_Inode_As_Just_Created_File(t *testing.T) {
	t.Parallel()

	r := NewReal()
	path := filepath.Join(t.TempDir(), "file")

	f, err := r.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		t.Fatalf("OpenFile(%q): %v", path, err)
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		t.Fatalf("File.Stat(): %v", err)
	}

	pathInfo, err := r.Stat(path)
	if err != nil {
		t.Fatalf("Real.Stat(%q): %v", path, err)
	}

	if !os.SameFile(fileInfo, pathInfo) {
		t.Fatalf("File.Stat() and Real.Stat(%q) report different files", path)
	}
}
