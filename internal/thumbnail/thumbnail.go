// Package thumbnail implements the "thumb" task handler.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"tagflow/internal/catalog"
	"tagflow/internal/database/sqlc"
)

// Generator renders a thumbnail of src into dst.
type Generator interface {
	Generate(ctx context.Context, src, dst string) error
}

// Handler produces one thumbnail per file under a cache directory.
type Handler struct {
	opener    catalog.StorageOpener
	generator Generator
	cacheDir  string
	extension string
	logger    catalog.Logger
}

var _ catalog.Handler = (*Handler)(nil)

// NewHandler creates a Handler writing <cacheDir>/<file id>.<extension>.
func NewHandler(opener catalog.StorageOpener, generator Generator, cacheDir, extension string, logger catalog.Logger) *Handler {
	if extension == "" {
		extension = "webp"
	}
	return &Handler{
		opener:    opener,
		generator: generator,
		cacheDir:  cacheDir,
		extension: extension,
		logger:    logger,
	}
}

// ArtifactPath returns where the thumbnail of fileID is stored.
func (h *Handler) ArtifactPath(fileID int64) string {
	return filepath.Join(h.cacheDir, strconv.FormatInt(fileID, 10)+"."+h.extension)
}

// Handle generates the thumbnail for fileID. An existing thumbnail counts as
// success. A source that is gone from storage yields catalog.ErrSourceMissing.
func (h *Handler) Handle(ctx context.Context, fileID int64, db catalog.Database) error {
	loc, err := db.FindFileLocation(ctx, fileID)
	if err != nil {
		return fmt.Errorf("locating file %d: %w", fileID, err)
	}
	if loc == nil {
		return fmt.Errorf("file %d: %w", fileID, catalog.ErrNotFound)
	}

	adapter, err := h.opener.Open(ctx, &sqlc.Library{
		ID:         loc.LibraryID,
		Name:       loc.LibraryName,
		Protocol:   loc.Protocol,
		BasePath:   loc.BasePath,
		ConfigJson: loc.ConfigJSON,
	})
	if err != nil {
		return fmt.Errorf("opening library %s: %w", loc.LibraryName, err)
	}

	if _, err := adapter.Stat(ctx, loc.RelativePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", catalog.ErrSourceMissing, loc.LibraryName, loc.RelativePath)
		}
		return fmt.Errorf("stat source: %w", err)
	}

	dst := h.ArtifactPath(fileID)
	if _, err := os.Stat(dst); err == nil {
		h.logger.Debug("thumbnail exists", "file_id", fileID, "path", dst)
		return nil
	}

	if err := os.MkdirAll(h.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	src, cleanup, err := adapter.Materialize(ctx, loc.RelativePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", catalog.ErrSourceMissing, loc.LibraryName, loc.RelativePath)
		}
		return fmt.Errorf("fetching source: %w", err)
	}
	defer cleanup()

	// Render beside the destination so a crash never leaves a truncated
	// file under the final name.
	partial := filepath.Join(h.cacheDir, strconv.FormatInt(fileID, 10)+".partial."+h.extension)
	if err := h.generator.Generate(ctx, src, partial); err != nil {
		os.Remove(partial)
		return err
	}
	if err := os.Rename(partial, dst); err != nil {
		os.Remove(partial)
		return fmt.Errorf("storing thumbnail: %w", err)
	}

	h.logger.Info("thumbnail generated", "file_id", fileID, "path", dst)
	return nil
}
