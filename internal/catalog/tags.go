package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tagflow/internal/database/sqlc"
)

// TagResolver maps directory paths onto the tag hierarchy.
type TagResolver struct {
	database Database
	logger   Logger
}

func NewTagResolver(database Database, logger Logger) *TagResolver {
	return &TagResolver{database: database, logger: logger}
}

// EnsurePathTags walks segments from the root, creating any missing tag at
// each level, and returns the id of the deepest tag. Empty segments are
// ignored; a path with no segments left returns ErrEmptyPath.
func (r *TagResolver) EnsurePathTags(ctx context.Context, segments []string) (int64, error) {
	var parentID sql.NullInt64
	created := 0

	for _, name := range segments {
		if name == "" {
			continue
		}

		tag, err := r.database.FindTag(ctx, name, parentID)
		if err != nil {
			return 0, fmt.Errorf("finding tag %q: %w", name, err)
		}
		if tag == nil {
			tag, err = r.database.CreateTag(ctx, name, TagCategoryPath, parentID)
			if errors.Is(err, ErrAlreadyExists) {
				// Another scan created it between lookup and insert.
				tag, err = r.database.FindTag(ctx, name, parentID)
			}
			if err != nil {
				return 0, fmt.Errorf("creating tag %q: %w", name, err)
			}
			if tag == nil {
				return 0, fmt.Errorf("tag %q vanished after insert conflict", name)
			}
			created++
		}
		parentID = sql.NullInt64{Int64: tag.ID, Valid: true}
	}

	if !parentID.Valid {
		return 0, ErrEmptyPath
	}
	if created > 0 {
		r.logger.Debug("path tags created", "segments", segments, "created", created)
	}
	return parentID.Int64, nil
}

// LinkFileToTag links a file to a tag. An existing link is left untouched,
// including its source.
func (r *TagResolver) LinkFileToTag(ctx context.Context, fileID, tagID int64, source string) error {
	if err := r.database.LinkFileTag(ctx, fileID, tagID, source); err != nil {
		return fmt.Errorf("linking file %d to tag %d: %w", fileID, tagID, err)
	}
	return nil
}

// TagTree loads every tag into a TagTree.
func (r *TagResolver) TagTree(ctx context.Context) (*TagTree, error) {
	tags, err := r.database.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return BuildTagTree(tags), nil
}

// ListFilesByTag returns files linked to tagID. When recursive is set, files
// linked to any descendant tag are included as well.
func (r *TagResolver) ListFilesByTag(ctx context.Context, tagID int64, recursive bool, limit, offset int64) ([]*sqlc.File, error) {
	tag, err := r.database.FindTagByID(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("finding tag: %w", err)
	}
	if tag == nil {
		return nil, fmt.Errorf("tag %d: %w", tagID, ErrNotFound)
	}

	files, err := r.database.ListFiles(ctx, FileFilter{
		TagID:     tagID,
		Recursive: recursive,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing files for tag %d: %w", tagID, err)
	}
	return files, nil
}
