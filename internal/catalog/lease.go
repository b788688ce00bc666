package catalog

// Lease is an exclusive hold on a named resource.
type Lease interface {
	Release() error
}

// LeaseManager hands out per-library scan leases. Acquire returns an error
// wrapping ErrScanInProgress when the library is already held.
type LeaseManager interface {
	Acquire(libraryID int64) (Lease, error)
}
