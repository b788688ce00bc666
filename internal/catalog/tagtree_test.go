package catalog

import (
	"database/sql"
	"reflect"
	"strings"
	"testing"

	"tagflow/internal/database/sqlc"
)

func tag(id int64, name string, parent int64) *sqlc.Tag {
	t := &sqlc.Tag{ID: id, Name: name, Category: TagCategoryPath}
	if parent != 0 {
		t.ParentID = sql.NullInt64{Int64: parent, Valid: true}
	}
	return t
}

func TestBuildTagTree(t *testing.T) {
	tree := BuildTagTree([]*sqlc.Tag{
		tag(1, "Projects", 0),
		tag(2, "2024", 1),
		tag(3, "Design", 2),
		tag(4, "Archive", 0),
		tag(5, "2023", 1),
		tag(6, "Orphan", 99),
	})

	if tree.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", tree.Len())
	}

	var lines []string
	tree.Walk(func(node *TagNode, depth int) bool {
		lines = append(lines, strings.Repeat("  ", depth)+node.Name)
		return true
	})
	want := []string{
		"Archive",
		"Orphan",
		"Projects",
		"  2023",
		"  2024",
		"    Design",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Walk() order =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}

	if got := tree.Path(3); !reflect.DeepEqual(got, []string{"Projects", "2024", "Design"}) {
		t.Errorf("Path(3) = %v", got)
	}
	if got := tree.Path(42); len(got) != 0 {
		t.Errorf("Path(unknown) = %v, want empty", got)
	}

	node, ok := tree.Lookup(2)
	if !ok || len(node.Children) != 1 || tree.Nodes[node.Children[0]].Name != "Design" {
		t.Errorf("Lookup(2) = %+v, %v", node, ok)
	}
}

func TestTagTree_WalkSkipsChildren(t *testing.T) {
	tree := BuildTagTree([]*sqlc.Tag{
		tag(1, "a", 0),
		tag(2, "b", 1),
		tag(3, "c", 0),
	})

	var visited []string
	tree.Walk(func(node *TagNode, depth int) bool {
		visited = append(visited, node.Name)
		return node.Name != "a"
	})
	if !reflect.DeepEqual(visited, []string{"a", "c"}) {
		t.Errorf("visited = %v, want [a c]", visited)
	}
}

func TestTagTree_DeepChain(t *testing.T) {
	const depth = 10000
	tags := make([]*sqlc.Tag, depth)
	for i := range tags {
		tags[i] = tag(int64(i+1), "n", int64(i))
	}
	tree := BuildTagTree(tags)

	maxDepth := -1
	tree.Walk(func(node *TagNode, d int) bool {
		maxDepth = max(maxDepth, d)
		return true
	})
	if maxDepth != depth-1 {
		t.Errorf("max depth = %d, want %d", maxDepth, depth-1)
	}
	if got := len(tree.Path(depth)); got != depth {
		t.Errorf("len(Path()) = %d, want %d", got, depth)
	}
}

func TestBuildTagTree_Empty(t *testing.T) {
	tree := BuildTagTree(nil)
	called := false
	tree.Walk(func(*TagNode, int) bool { called = true; return true })
	if called || tree.Len() != 0 {
		t.Error("empty tree should have no nodes")
	}
}
