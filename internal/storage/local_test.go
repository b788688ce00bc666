package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"tagflow/internal/catalog"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func collect(t *testing.T, it catalog.EntryIterator) (files, dirs []string) {
	t.Helper()
	defer it.Close()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		if e.IsDir {
			dirs = append(dirs, e.Path)
		} else {
			files = append(files, e.Path)
		}
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator Err() = %v", err)
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs
}

func TestLocalAdapter_ListRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Projects/2024/Design/img.png", "png")
	writeFile(t, root, "Projects/readme.md", "hello")
	writeFile(t, root, "top.jpg", "jpg")
	writeFile(t, root, "build/out.bin", "x")
	writeFile(t, root, "debug.log", "x")
	writeFile(t, root, IgnoreFileName, "build/\n")

	a, err := NewLocalAdapter(root, []string{"*.log"})
	if err != nil {
		t.Fatalf("NewLocalAdapter() error = %v", err)
	}
	it, err := a.ListRecursive(context.Background())
	if err != nil {
		t.Fatalf("ListRecursive() error = %v", err)
	}

	files, dirs := collect(t, it)
	wantFiles := []string{"Projects/2024/Design/img.png", "Projects/readme.md", "top.jpg"}
	if strings.Join(files, ",") != strings.Join(wantFiles, ",") {
		t.Errorf("files = %v, want %v", files, wantFiles)
	}
	wantDirs := []string{"Projects", "Projects/2024", "Projects/2024/Design"}
	if strings.Join(dirs, ",") != strings.Join(wantDirs, ",") {
		t.Errorf("dirs = %v, want %v", dirs, wantDirs)
	}
}

func TestLocalAdapter_Symlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "target.jpg", "0123456789")
	writeFile(t, outside, "dir/inner.jpg", "x")

	if err := os.Symlink(filepath.Join(outside, "target.jpg"), filepath.Join(root, "link.jpg")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linkdir")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "missing"), filepath.Join(root, "dangling")); err != nil {
		t.Fatal(err)
	}

	a, err := NewLocalAdapter(root, nil)
	if err != nil {
		t.Fatalf("NewLocalAdapter() error = %v", err)
	}
	it, err := a.ListRecursive(context.Background())
	if err != nil {
		t.Fatalf("ListRecursive() error = %v", err)
	}
	files, dirs := collect(t, it)

	if len(files) != 1 || files[0] != "link.jpg" {
		t.Errorf("files = %v, want [link.jpg]", files)
	}
	if len(dirs) != 1 || dirs[0] != "linkdir" {
		t.Errorf("dirs = %v, want [linkdir] (not descended)", dirs)
	}

	meta, err := a.Stat(context.Background(), "link.jpg")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if meta.Size != 10 {
		t.Errorf("Stat(link.jpg).Size = %d, want target size 10", meta.Size)
	}
}

func TestLocalAdapter_Stat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b.txt", "hello")
	mod := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(root, "a", "b.txt"), mod, mod); err != nil {
		t.Fatal(err)
	}

	a, err := NewLocalAdapter(root, nil)
	if err != nil {
		t.Fatalf("NewLocalAdapter() error = %v", err)
	}

	meta, err := a.Stat(context.Background(), "a/b.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if meta.Size != 5 || meta.ModTime != mod.Unix() || meta.IsDir {
		t.Errorf("Stat() = %+v, want size 5 mtime %d", meta, mod.Unix())
	}

	if _, err := a.Stat(context.Background(), "a/missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(missing) error = %v, want fs.ErrNotExist", err)
	}
	if _, err := a.Stat(context.Background(), "../escape"); err == nil {
		t.Error("Stat(../escape) expected error")
	}
}

func TestLocalAdapter_Materialize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "clip.mp4", "data")

	a, err := NewLocalAdapter(root, nil)
	if err != nil {
		t.Fatalf("NewLocalAdapter() error = %v", err)
	}

	local, cleanup, err := a.Materialize(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	defer cleanup()
	if local != filepath.Join(a.Root(), "clip.mp4") {
		t.Errorf("Materialize() = %q, want path inside root", local)
	}

	if _, _, err := a.Materialize(context.Background(), "gone.mp4"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Materialize(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestLocalAdapter_MissingRoot(t *testing.T) {
	a, err := NewLocalAdapter(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("NewLocalAdapter() error = %v", err)
	}
	if err := a.Validate(context.Background()); !errors.Is(err, catalog.ErrConnectionFailed) {
		t.Errorf("Validate() error = %v, want ErrConnectionFailed", err)
	}
	if _, err := a.ListRecursive(context.Background()); !errors.Is(err, catalog.ErrConnectionFailed) {
		t.Errorf("ListRecursive() error = %v, want ErrConnectionFailed", err)
	}
}

func TestLocalAdapter_CloseStopsWalk(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, root, fmt.Sprintf("d%d/f%d.txt", i%5, i), "x")
	}

	a, err := NewLocalAdapter(root, nil)
	if err != nil {
		t.Fatalf("NewLocalAdapter() error = %v", err)
	}
	it, err := a.ListRecursive(context.Background())
	if err != nil {
		t.Fatalf("ListRecursive() error = %v", err)
	}
	if _, ok := it.Next(); !ok {
		t.Fatal("Next() = false, want at least one entry")
	}
	if err := it.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, ok := it.Next(); ok {
		t.Error("Next() after Close() = true, want false")
	}
}

func TestLocalAdapter_ContextCancel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "x")
	writeFile(t, root, "b.txt", "x")

	a, err := NewLocalAdapter(root, nil)
	if err != nil {
		t.Fatalf("NewLocalAdapter() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	it, err := a.ListRecursive(ctx)
	if err != nil {
		t.Fatalf("ListRecursive() error = %v", err)
	}
	defer it.Close()
	cancel()

	for {
		if _, ok := it.Next(); !ok {
			break
		}
	}
	if err := it.Err(); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Err() = %v, want nil or context.Canceled", err)
	}
}
