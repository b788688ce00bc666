package catalog

import "errors"

var (
	// ErrUnsupportedProtocol is returned when a library names a storage
	// protocol this build cannot serve.
	ErrUnsupportedProtocol = errors.New("unsupported storage protocol")

	// ErrConnectionFailed wraps any failure to reach a library's storage.
	ErrConnectionFailed = errors.New("storage connection failed")

	// ErrEmptyPath is returned when a tag path has no non-empty segments.
	ErrEmptyPath = errors.New("tag path is empty")

	// ErrSourceMissing is returned by handlers when the catalogued file no
	// longer exists in storage.
	ErrSourceMissing = errors.New("source file does not exist")

	// ErrScanInProgress is returned when another scan holds the library lease.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrUnknownTaskType is recorded on tasks no registered handler accepts.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by the database when a unique key collides.
	ErrAlreadyExists = errors.New("already exists")
)
