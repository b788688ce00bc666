package catalog

import (
	"path"
	"strings"
)

// File status values stored in files.status.
const (
	FileStatusLost   int64 = 0
	FileStatusActive int64 = 1
)

// Task status values stored in tasks.status.
const (
	TaskStatusPending   int64 = 0
	TaskStatusRunning   int64 = 1
	TaskStatusCompleted int64 = 2
	TaskStatusFailed    int64 = 3
)

// TagCategoryPath marks tags derived from a file's directory path.
const TagCategoryPath = "path"

// TagSourceAuto marks file/tag links created by the scanner.
const TagSourceAuto = "auto"

// TaskStatusName returns the human readable form of a task status.
func TaskStatusName(status int64) string {
	switch status {
	case TaskStatusPending:
		return "pending"
	case TaskStatusRunning:
		return "running"
	case TaskStatusCompleted:
		return "completed"
	case TaskStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseTaskStatus is the inverse of TaskStatusName.
func ParseTaskStatus(name string) (int64, bool) {
	switch strings.ToLower(name) {
	case "pending":
		return TaskStatusPending, true
	case "running":
		return TaskStatusRunning, true
	case "completed":
		return TaskStatusCompleted, true
	case "failed":
		return TaskStatusFailed, true
	default:
		return 0, false
	}
}

// FileStatusName returns the human readable form of a file status.
func FileStatusName(status int64) string {
	if status == FileStatusActive {
		return "active"
	}
	return "lost"
}

// FileState is the persisted stat of a catalogued file, keyed in a snapshot
// by its library-relative path.
type FileState struct {
	Size   int64
	Mtime  int64
	Status int64
}

// NewFile describes a file row to insert.
type NewFile struct {
	LibraryID  int64
	ParentPath string
	Filename   string
	Extension  string
	Size       int64
	Mtime      int64
}

// FileLocation joins a file with the library it lives in.
type FileLocation struct {
	FileID       int64
	LibraryID    int64
	LibraryName  string
	Protocol     string
	BasePath     string
	ConfigJSON   string
	RelativePath string
}

// LibraryDefinition is the declared shape of a library, as read from config.
type LibraryDefinition struct {
	Name       string
	Protocol   string
	BasePath   string
	ConfigJSON string
}

// FileFilter narrows file listings. Zero values mean no constraint.
type FileFilter struct {
	LibraryID int64
	TagID     int64
	// Recursive includes files tagged with any descendant of TagID.
	Recursive bool
	Status    *int64
	Limit     int64
	Offset    int64
}

// TaskFilter narrows task listings. Zero values mean no constraint.
type TaskFilter struct {
	Status *int64
	FileID int64
	Limit  int64
}

// SplitRelativePath splits a library-relative path into the parent_path
// and filename columns. parent_path is empty for top-level files and
// otherwise ends with a slash.
func SplitRelativePath(rel string) (parentPath, filename string) {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return "", rel
	}
	return rel[:idx+1], rel[idx+1:]
}

// JoinRelativePath is the inverse of SplitRelativePath.
func JoinRelativePath(parentPath, filename string) string {
	return parentPath + filename
}

// FileExtension returns the lowercased text after the final dot of a
// filename, or "" when there is none.
func FileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// PathSegments returns the directory segments of a parent_path.
func PathSegments(parentPath string) []string {
	var segments []string
	for _, s := range strings.Split(parentPath, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
