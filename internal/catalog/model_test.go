package catalog

import (
	"context"
	"reflect"
	"testing"
)

func TestSplitRelativePath(t *testing.T) {
	tests := []struct {
		rel        string
		wantParent string
		wantName   string
	}{
		{"a.jpg", "", "a.jpg"},
		{"Projects/2024/Design/img.png", "Projects/2024/Design/", "img.png"},
		{"/x/y.txt", "x/", "y.txt"},
		{"x//y.txt", "x/", "y.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			parent, name := SplitRelativePath(tt.rel)
			if parent != tt.wantParent || name != tt.wantName {
				t.Errorf("SplitRelativePath(%q) = %q, %q; want %q, %q", tt.rel, parent, name, tt.wantParent, tt.wantName)
			}
			if got := JoinRelativePath(parent, name); got != tt.wantParent+tt.wantName {
				t.Errorf("JoinRelativePath() = %q", got)
			}
		})
	}
}

func TestFileExtension(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":      "jpg",
		"archive.tar.gz": "gz",
		"README":         "",
		"trailing.":      "",
		".bashrc":        "bashrc",
	}
	for name, want := range tests {
		if got := FileExtension(name); got != want {
			t.Errorf("FileExtension(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestPathSegments(t *testing.T) {
	if got := PathSegments(""); len(got) != 0 {
		t.Errorf("PathSegments(\"\") = %v, want empty", got)
	}
	want := []string{"Projects", "2024", "Design"}
	if got := PathSegments("Projects//2024/Design/"); !reflect.DeepEqual(got, want) {
		t.Errorf("PathSegments() = %v, want %v", got, want)
	}
}

func TestTaskStatusNames(t *testing.T) {
	for _, status := range []int64{TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed} {
		got, ok := ParseTaskStatus(TaskStatusName(status))
		if !ok || got != status {
			t.Errorf("ParseTaskStatus(TaskStatusName(%d)) = %d, %v", status, got, ok)
		}
	}
	if _, ok := ParseTaskStatus("paused"); ok {
		t.Error("ParseTaskStatus(paused) = ok, want false")
	}
	if FileStatusName(FileStatusLost) != "lost" || FileStatusName(FileStatusActive) != "active" {
		t.Error("FileStatusName() returned unexpected names")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := HandlerFunc(func(ctx context.Context, fileID int64, db Database) error { return nil })

	if err := r.Register("thumb", noop); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("thumb", noop); err == nil {
		t.Error("Register() expected error for duplicate type")
	}
	if err := r.Register("", noop); err == nil {
		t.Error("Register() expected error for empty type")
	}
	if err := r.Register("probe", noop); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, ok := r.Lookup("thumb"); !ok {
		t.Error("Lookup(thumb) = false")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) = true")
	}
	if got := r.Types(); !reflect.DeepEqual(got, []string{"probe", "thumb"}) {
		t.Errorf("Types() = %v", got)
	}
}
