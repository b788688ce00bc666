package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tagflow/internal/catalog"
)

// LocalAdapter serves a library rooted in a directory on the local filesystem.
type LocalAdapter struct {
	root   string
	ignore *IgnoreMatcher
}

var _ catalog.StorageAdapter = (*LocalAdapter)(nil)

// NewLocalAdapter creates an adapter for root. Patterns from an ignore file
// at the root are merged with the given patterns.
func NewLocalAdapter(root string, patterns []string) (*LocalAdapter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving library root: %w", err)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(abs, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	return &LocalAdapter{
		root:   abs,
		ignore: NewIgnoreMatcher(append(append([]string(nil), patterns...), filePatterns...)),
	}, nil
}

// Root returns the absolute library root.
func (a *LocalAdapter) Root() string {
	return a.root
}

func (a *LocalAdapter) Validate(ctx context.Context) error {
	info, err := os.Stat(a.root)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrConnectionFailed, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", catalog.ErrConnectionFailed, a.root)
	}
	return nil
}

// ListRecursive walks the library root. Symbolic links are followed for
// stat purposes: a link to a file is listed as that file, a link to a
// directory is listed as a directory but not descended into.
func (a *LocalAdapter) ListRecursive(ctx context.Context) (catalog.EntryIterator, error) {
	if err := a.Validate(ctx); err != nil {
		return nil, err
	}

	return newWalkIterator(ctx, func(emit func(catalog.Entry) error) error {
		return filepath.WalkDir(a.root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == a.root {
				return nil
			}

			rel, err := filepath.Rel(a.root, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if a.ignore.Match(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			mode := d.Type()
			switch {
			case mode&fs.ModeSymlink != 0:
				info, err := os.Stat(p)
				if err != nil {
					// Dangling link.
					return nil
				}
				return emit(catalog.Entry{Path: rel, IsDir: info.IsDir()})
			case d.IsDir():
				return emit(catalog.Entry{Path: rel, IsDir: true})
			case mode.IsRegular():
				return emit(catalog.Entry{Path: rel})
			default:
				// Devices, pipes and sockets are not catalogued.
				return nil
			}
		})
	}), nil
}

func (a *LocalAdapter) Stat(ctx context.Context, path string) (catalog.Metadata, error) {
	full, err := a.resolve(path)
	if err != nil {
		return catalog.Metadata{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return catalog.Metadata{
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
		IsDir:   info.IsDir(),
	}, nil
}

// Materialize returns the file's own path; there is nothing to clean up.
func (a *LocalAdapter) Materialize(ctx context.Context, path string) (string, func(), error) {
	full, err := a.resolve(path)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(full); err != nil {
		return "", nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return full, func() {}, nil
}

func (a *LocalAdapter) resolve(path string) (string, error) {
	native := filepath.FromSlash(path)
	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("path escapes library root: %s", path)
	}
	return filepath.Join(a.root, native), nil
}
