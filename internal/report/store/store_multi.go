package store

import (
	"context"
	"errors"

	"idsync/internal/reconcile/models"
	"idsync/pkg/platform/sentinel"
)

// ReportStore is implemented by every store in this package.
type ReportStore interface {
	Save(ctx context.Context, report *models.RunReport) error
	Latest(ctx context.Context) (*models.RunReport, error)
}

// Multi writes to every store and reads from the first one that has a
// report.
type Multi struct {
	stores []ReportStore
}

func NewMulti(stores ...ReportStore) *Multi {
	return &Multi{stores: stores}
}

// Save attempts every store and joins their errors.
func (m *Multi) Save(ctx context.Context, report *models.RunReport) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Save(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Latest(ctx context.Context) (*models.RunReport, error) {
	var errs []error
	for _, s := range m.stores {
		report, err := s.Latest(ctx)
		if err == nil {
			return report, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, sentinel.ErrNotFound
}
