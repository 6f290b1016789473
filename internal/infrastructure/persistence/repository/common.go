package repository

import (
	"fmt"
	"time"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/period"
)

// storeError tags a driver failure with entity.ErrPersistence
func storeError(action string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", entity.ErrPersistence, action, err)
}

// isoDate formats t the way DATE columns are stored
func isoDate(t time.Time) string {
	return t.Format(period.ISOLayout)
}

func affected(action string, n int64, err error) (bool, error) {
	if err != nil {
		return false, storeError(action, err)
	}
	return n > 0, nil
}
