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

// FlatRateLineRepository implements port.FlatRateLineRepository on lignefraisforfait
type FlatRateLineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFlatRateLineRepository creates a new flat-rate line repository
func NewFlatRateLineRepository(db *sql.DB, logger *zap.Logger) port.FlatRateLineRepository {
	return &FlatRateLineRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a flat-rate line
func (r *FlatRateLineRepository) Create(ctx context.Context, line *entity.FlatRateLine) error {
	query := `
		INSERT INTO lignefraisforfait (idvisiteur, mois, idfraisforfait, quantite)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		line.VisitorID,
		line.Month,
		line.FlatRateID,
		line.Quantity,
	)
	if err != nil {
		r.logger.Error("Failed to create flat-rate line",
			zap.String("id_visiteur", line.VisitorID),
			zap.String("mois", line.Month),
			zap.String("id_frais", line.FlatRateID),
			zap.Error(err))
		return storeError("create flat-rate line", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of one flat-rate line
func (r *FlatRateLineRepository) UpdateQuantity(ctx context.Context, visitorID, month, flatRateID string, quantity int) (bool, error) {
	query := `
		UPDATE lignefraisforfait
		SET quantite = ?
		WHERE idvisiteur = ? AND mois = ? AND idfraisforfait = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, quantity, visitorID, month, flatRateID)
	if err != nil {
		r.logger.Error("Failed to update flat-rate quantity",
			zap.String("id_visiteur", visitorID),
			zap.String("mois", month),
			zap.String("id_frais", flatRateID),
			zap.Error(err))
		return false, storeError("update flat-rate quantity", err)
	}
	n, err := result.RowsAffected()
	return affected("update flat-rate quantity", n, err)
}

// ListDetails returns the report's flat-rate lines joined with the catalog and
// the per-km price of the visitor's vehicle
func (r *FlatRateLineRepository) ListDetails(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error) {
	query := `
		SELECT ff.id, ff.libelle, l.quantite, ff.montant, fk.prix
		FROM lignefraisforfait l
		INNER JOIN fraisforfait ff ON ff.id = l.idfraisforfait
		INNER JOIN visiteur v ON v.id = l.idvisiteur
		LEFT JOIN fraiskm fk ON fk.id = v.idvehicule
		WHERE l.idvisiteur = ? AND l.mois = ?
		ORDER BY ff.id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, visitorID, month)
	if err != nil {
		r.logger.Error("Failed to list flat-rate lines",
			zap.String("id_visiteur", visitorID),
			zap.String("mois", month),
			zap.Error(err))
		return nil, storeError("list flat-rate lines", err)
	}
	defer rows.Close()

	var details []entity.FlatRateDetail
	for rows.Next() {
		var d entity.FlatRateDetail
		var label sql.NullString
		var quantity sql.NullInt64
		var unit, vehicle decimal.NullDecimal
		if err := rows.Scan(&d.FlatRateID, &label, &quantity, &unit, &vehicle); err != nil {
			return nil, storeError("scan flat-rate line", err)
		}
		d.Label = label.String
		d.Quantity = int(quantity.Int64)
		if unit.Valid {
			d.UnitAmount = unit.Decimal
		}
		if vehicle.Valid {
			d.VehicleRate = vehicle.Decimal
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate flat-rate lines", err)
	}
	return details, nil
}

// Count returns the number of flat-rate lines on the report
func (r *FlatRateLineRepository) Count(ctx context.Context, visitorID, month string) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lignefraisforfait WHERE idvisiteur = ? AND mois = ?`,
		visitorID, month).Scan(&count)
	if err != nil {
		return 0, storeError("count flat-rate lines", err)
	}
	return count, nil
}

func (r *FlatRateLineRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.FlatRateLineRepository = (*FlatRateLineRepository)(nil)
