package catalog

import (
	"context"
	"errors"
	"time"
)

// Scheduler scans every library at a fixed interval.
type Scheduler struct {
	database Database
	scanner  *Scanner
	logger   Logger
	interval time.Duration
}

// NewScheduler returns a Scheduler. A non-positive interval disables it.
func NewScheduler(database Database, scanner *Scanner, logger Logger, interval time.Duration) *Scheduler {
	return &Scheduler{database: database, scanner: scanner, logger: logger, interval: interval}
}

// Run scans all libraries immediately and then once per interval until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("scheduled scans disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.ScanAll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ScanAll scans every library in turn. A failing library is logged and
// does not stop the others. It returns the results of the successful scans.
func (s *Scheduler) ScanAll(ctx context.Context) []*ScanResult {
	libraries, err := s.database.ListLibraries(ctx)
	if err != nil {
		s.logger.Error("listing libraries failed", "error", err)
		return nil
	}

	var results []*ScanResult
	for _, library := range libraries {
		if ctx.Err() != nil {
			break
		}
		result, err := s.scanner.ScanLibrary(ctx, library)
		switch {
		case errors.Is(err, ErrScanInProgress):
			s.logger.Info("scan skipped, already in progress", "library", library.Name)
		case err != nil:
			s.logger.Error("scan failed", "library", library.Name, "error", err)
		default:
			results = append(results, result)
		}
	}
	return results
}
