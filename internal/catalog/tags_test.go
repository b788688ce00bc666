package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"tagflow/internal/catalog"
	"tagflow/internal/testutil"
)

func TestTagResolver_EnsurePathTags(t *testing.T) {
	ctx := context.Background()

	t.Run("is idempotent", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		r := catalog.NewTagResolver(db, catalog.NewNopLogger())

		first, err := r.EnsurePathTags(ctx, []string{"A", "B"})
		if err != nil {
			t.Fatalf("EnsurePathTags() error = %v", err)
		}
		second, err := r.EnsurePathTags(ctx, []string{"A", "B"})
		if err != nil {
			t.Fatalf("EnsurePathTags() error = %v", err)
		}
		if first != second {
			t.Errorf("EnsurePathTags() ids = %d, %d; want equal", first, second)
		}

		tags, _ := db.ListTags(ctx)
		if len(tags) != 2 {
			t.Errorf("tags = %d, want 2", len(tags))
		}
	})

	t.Run("shares prefixes", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		r := catalog.NewTagResolver(db, catalog.NewNopLogger())

		ab, _ := r.EnsurePathTags(ctx, []string{"A", "B"})
		ac, err := r.EnsurePathTags(ctx, []string{"A", "", "C"})
		if err != nil {
			t.Fatalf("EnsurePathTags() error = %v", err)
		}
		if ab == ac {
			t.Error("A/B and A/C resolved to the same tag")
		}

		tree, err := r.TagTree(ctx)
		if err != nil {
			t.Fatalf("TagTree() error = %v", err)
		}
		if tree.Len() != 3 || len(tree.Roots) != 1 {
			t.Errorf("tree has %d nodes and %d roots, want 3 and 1", tree.Len(), len(tree.Roots))
		}
		if p := tree.Path(ac); len(p) != 2 || p[0] != "A" || p[1] != "C" {
			t.Errorf("Path() = %v, want [A C]", p)
		}
	})

	t.Run("same name under different parents", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		r := catalog.NewTagResolver(db, catalog.NewNopLogger())

		x, _ := r.EnsurePathTags(ctx, []string{"2024", "Design"})
		y, _ := r.EnsurePathTags(ctx, []string{"2023", "Design"})
		z, _ := r.EnsurePathTags(ctx, []string{"Design"})
		if x == y || y == z || x == z {
			t.Errorf("ids %d, %d, %d should be distinct", x, y, z)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		r := catalog.NewTagResolver(db, catalog.NewNopLogger())

		for _, segments := range [][]string{nil, {}, {"", ""}} {
			if _, err := r.EnsurePathTags(ctx, segments); !errors.Is(err, catalog.ErrEmptyPath) {
				t.Errorf("EnsurePathTags(%q) error = %v, want ErrEmptyPath", segments, err)
			}
		}
		tags, _ := db.ListTags(ctx)
		if len(tags) != 0 {
			t.Errorf("tags = %d, want 0", len(tags))
		}
	})
}

func TestTagResolver_LinkAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	r := catalog.NewTagResolver(db, catalog.NewNopLogger())
	lib := testutil.NewTestLibrary(t, db, "lib")

	insert := func(parent, name string) int64 {
		t.Helper()
		f, err := db.InsertFile(ctx, catalog.NewFile{LibraryID: lib.ID, ParentPath: parent, Filename: name})
		if err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
		return f.ID
	}
	top := insert("A/", "top.jpg")
	deep := insert("A/B/", "deep.jpg")

	a, _ := r.EnsurePathTags(ctx, []string{"A"})
	b, _ := r.EnsurePathTags(ctx, []string{"A", "B"})
	if err := r.LinkFileToTag(ctx, top, a, catalog.TagSourceAuto); err != nil {
		t.Fatalf("LinkFileToTag() error = %v", err)
	}
	if err := r.LinkFileToTag(ctx, deep, b, catalog.TagSourceAuto); err != nil {
		t.Fatalf("LinkFileToTag() error = %v", err)
	}
	if err := r.LinkFileToTag(ctx, deep, b, "manual"); err != nil {
		t.Fatalf("repeated LinkFileToTag() error = %v", err)
	}

	tags, _ := db.ListFileTags(ctx, deep)
	if len(tags) != 1 {
		t.Errorf("deep.jpg has %d links, want 1", len(tags))
	}
	conn, ok := db.(interface{ DB() *sql.DB })
	if !ok {
		t.Fatal("test database does not expose its connection")
	}
	var source string
	if err := conn.DB().QueryRowContext(ctx,
		"SELECT source FROM file_tags WHERE file_id = ? AND tag_id = ?", deep, b).Scan(&source); err != nil {
		t.Fatalf("reading link source: %v", err)
	}
	if source != catalog.TagSourceAuto {
		t.Errorf("link source = %q after relink, want %q kept from the first link", source, catalog.TagSourceAuto)
	}

	direct, err := r.ListFilesByTag(ctx, a, false, 0, 0)
	if err != nil {
		t.Fatalf("ListFilesByTag() error = %v", err)
	}
	if len(direct) != 1 || direct[0].ID != top {
		t.Errorf("direct files = %v, want [top.jpg]", direct)
	}

	all, err := r.ListFilesByTag(ctx, a, true, 0, 0)
	if err != nil {
		t.Fatalf("ListFilesByTag(recursive) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("recursive files = %d, want 2", len(all))
	}

	page, _ := r.ListFilesByTag(ctx, a, true, 1, 1)
	if len(page) != 1 {
		t.Errorf("paged files = %d, want 1", len(page))
	}

	if _, err := r.ListFilesByTag(ctx, 9999, false, 0, 0); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("ListFilesByTag(unknown) error = %v, want ErrNotFound", err)
	}
}
