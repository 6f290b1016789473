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

// ItemizedLineRepository implements port.ItemizedLineRepository on lignefraishorsforfait
type ItemizedLineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewItemizedLineRepository creates a new itemized line repository
func NewItemizedLineRepository(db *sql.DB, logger *zap.Logger) port.ItemizedLineRepository {
	return &ItemizedLineRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an itemized line and sets its ID
func (r *ItemizedLineRepository) Create(ctx context.Context, line *entity.ItemizedLine) error {
	query := `
		INSERT INTO lignefraishorsforfait (idvisiteur, mois, libelle, date, montant)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		line.VisitorID,
		line.Month,
		line.Label,
		isoDate(line.Date),
		line.Amount.StringFixed(2),
	)
	if err != nil {
		r.logger.Error("Failed to create itemized line",
			zap.String("id_visiteur", line.VisitorID),
			zap.String("mois", line.Month),
			zap.Error(err))
		return storeError("create itemized line", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storeError("get last insert id", err)
	}

	line.ID = id
	return nil
}

// GetByID retrieves an itemized line
func (r *ItemizedLineRepository) GetByID(ctx context.Context, id int64) (*entity.ItemizedLine, error) {
	query := `
		SELECT id, idvisiteur, mois, libelle, date, montant
		FROM lignefraishorsforfait
		WHERE id = ?
	`

	line, err := scanItemized(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get itemized line", zap.Int64("id", id), zap.Error(err))
		return nil, storeError("get itemized line", err)
	}
	return line, nil
}

// List returns the report's itemized lines in insertion order
func (r *ItemizedLineRepository) List(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error) {
	query := `
		SELECT id, idvisiteur, mois, libelle, date, montant
		FROM lignefraishorsforfait
		WHERE idvisiteur = ? AND mois = ?
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, visitorID, month)
	if err != nil {
		r.logger.Error("Failed to list itemized lines",
			zap.String("id_visiteur", visitorID),
			zap.String("mois", month),
			zap.Error(err))
		return nil, storeError("list itemized lines", err)
	}
	defer rows.Close()

	var lines []*entity.ItemizedLine
	for rows.Next() {
		line, err := scanItemized(rows)
		if err != nil {
			return nil, storeError("scan itemized line", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate itemized lines", err)
	}
	return lines, nil
}

// Update rewrites label, amount and date of a line belonging to the report
func (r *ItemizedLineRepository) Update(ctx context.Context, visitorID, month string, id int64, upd entity.ItemizedUpdate) (bool, error) {
	query := `
		UPDATE lignefraishorsforfait
		SET libelle = ?, montant = ?, date = ?
		WHERE id = ? AND idvisiteur = ? AND mois = ?
	`
	return r.exec(ctx, "update itemized line", query,
		upd.Label, upd.Amount.StringFixed(2), isoDate(upd.Date), id, visitorID, month)
}

// UpdateLabel rewrites the label only
func (r *ItemizedLineRepository) UpdateLabel(ctx context.Context, id int64, label string) (bool, error) {
	return r.exec(ctx, "update itemized label",
		`UPDATE lignefraishorsforfait SET libelle = ? WHERE id = ?`, label, id)
}

// Move reattaches the line to another month of the same visitor
func (r *ItemizedLineRepository) Move(ctx context.Context, id int64, month string) (bool, error) {
	return r.exec(ctx, "move itemized line",
		`UPDATE lignefraishorsforfait SET mois = ? WHERE id = ?`, month, id)
}

// Delete removes the line
func (r *ItemizedLineRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.exec(ctx, "delete itemized line",
		`DELETE FROM lignefraishorsforfait WHERE id = ?`, id)
}

func (r *ItemizedLineRepository) exec(ctx context.Context, action, query string, args ...interface{}) (bool, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, zap.Any("args", args), zap.Error(err))
		return false, storeError(action, err)
	}
	n, err := result.RowsAffected()
	return affected(action, n, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItemized(row rowScanner) (*entity.ItemizedLine, error) {
	var line entity.ItemizedLine
	var label sql.NullString
	var date sql.NullTime
	var amount decimal.NullDecimal

	if err := row.Scan(&line.ID, &line.VisitorID, &line.Month, &label, &date, &amount); err != nil {
		return nil, err
	}

	line.Label = label.String
	if date.Valid {
		line.Date = date.Time
	}
	if amount.Valid {
		line.Amount = amount.Decimal
	}
	return &line, nil
}

func (r *ItemizedLineRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ItemizedLineRepository = (*ItemizedLineRepository)(nil)
