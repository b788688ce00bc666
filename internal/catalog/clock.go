package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the timestamps written to indexed_at, heartbeat_at and
// the other time columns.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock, always in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator names scan runs so their log lines can be correlated.
type IDGenerator interface {
	New() string
}

// UUIDGenerator names runs with random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
