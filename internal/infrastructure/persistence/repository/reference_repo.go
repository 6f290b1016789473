package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/infrastructure/persistence/sqlite"
)

// ReferenceRepository implements port.ReferenceRepository over the catalog tables
type ReferenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReferenceRepository creates a new reference data repository
func NewReferenceRepository(db *sql.DB, logger *zap.Logger) port.ReferenceRepository {
	return &ReferenceRepository{
		db:     db,
		logger: logger,
	}
}

// ListFlatRateTypes returns the fraisforfait catalog ordered by id
func (r *ReferenceRepository) ListFlatRateTypes(ctx context.Context) ([]entity.FlatRateType, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT id, libelle, montant FROM fraisforfait ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list flat-rate types", zap.Error(err))
		return nil, storeError("list flat-rate types", err)
	}
	defer rows.Close()

	var types []entity.FlatRateType
	for rows.Next() {
		var ft entity.FlatRateType
		var label sql.NullString
		var amount decimal.NullDecimal
		if err := rows.Scan(&ft.ID, &label, &amount); err != nil {
			return nil, storeError("scan flat-rate type", err)
		}
		ft.Label = label.String
		if amount.Valid {
			ft.UnitAmount = amount.Decimal
		}
		types = append(types, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate flat-rate types", err)
	}
	return types, nil
}

// ListVehicleRates returns the fraiskm price list ordered by id
func (r *ReferenceRepository) ListVehicleRates(ctx context.Context) ([]entity.VehicleRate, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `SELECT id, prix FROM fraiskm ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list vehicle rates", zap.Error(err))
		return nil, storeError("list vehicle rates", err)
	}
	defer rows.Close()

	var rates []entity.VehicleRate
	for rows.Next() {
		var vr entity.VehicleRate
		var price decimal.NullDecimal
		if err := rows.Scan(&vr.ID, &price); err != nil {
			return nil, storeError("scan vehicle rate", err)
		}
		if price.Valid {
			vr.Price = price.Decimal
		}
		rates = append(rates, vr)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate vehicle rates", err)
	}
	return rates, nil
}

// ListStates returns the etat labels ordered by id
func (r *ReferenceRepository) ListStates(ctx context.Context) ([]entity.State, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `SELECT id, libelle FROM etat ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list states", zap.Error(err))
		return nil, storeError("list states", err)
	}
	defer rows.Close()

	var states []entity.State
	for rows.Next() {
		var s entity.State
		var label sql.NullString
		if err := rows.Scan(&s.ID, &label); err != nil {
			return nil, storeError("scan state", err)
		}
		s.Label = label.String
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate states", err)
	}
	return states, nil
}

func (r *ReferenceRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ReferenceRepository = (*ReferenceRepository)(nil)
