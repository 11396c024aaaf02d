package selection

import (
	"context"

	"filter-selector/internal/storage"
)

// ErrCatalogNotReady is returned until the first catalog snapshot is published.
var ErrCatalogNotReady = &CatalogNotReadyError{}

type CatalogNotReadyError struct{}

func (e *CatalogNotReadyError) Error() string {
	return "catalog is not loaded yet"
}

func (e *CatalogNotReadyError) Is(target error) bool {
	_, ok := target.(*CatalogNotReadyError)
	return ok
}

type SnapshotReader interface {
	Current() *storage.Snapshot
}

type Service struct {
	snapshots SnapshotReader
}

func NewService(snapshots SnapshotReader) *Service {
	return &Service{snapshots: snapshots}
}

// Calculate runs Select over the snapshot that is current when it is called.
// A refresh that lands mid-calculation does not affect the result.
func (s *Service) Calculate(ctx context.Context, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	snap := s.snapshots.Current()
	if snap == nil {
		return Result{}, ErrCatalogNotReady
	}

	res, err := Select(snap.Records, q)
	if err != nil {
		return Result{}, err
	}

	res.SnapshotID = snap.ID.String()
	res.SnapshotVersion = snap.Version

	return res, nil
}
