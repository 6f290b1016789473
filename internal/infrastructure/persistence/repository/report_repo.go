package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/infrastructure/persistence/sqlite"
)

// ReportRepository implements port.ReportRepository on table fichefrais
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new expense report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether the visitor has a report for month
func (r *ReportRepository) Exists(ctx context.Context, visitorID, month string) (bool, error) {
	query := `SELECT COUNT(*) FROM fichefrais WHERE idvisiteur = ? AND mois = ?`

	var count int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, visitorID, month).Scan(&count); err != nil {
		r.logger.Error("Failed to check report existence",
			zap.String("id_visiteur", visitorID),
			zap.String("mois", month),
			zap.Error(err))
		return false, storeError("check report existence", err)
	}
	return count > 0, nil
}

// Get retrieves a report with its state label
func (r *ReportRepository) Get(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	query := `
		SELECT f.idvisiteur, f.mois, f.idetat, e.libelle, f.datemodif,
			f.nbjustificatifs, f.montantvalide
		FROM fichefrais f
		LEFT JOIN etat e ON e.id = f.idetat
		WHERE f.idvisiteur = ? AND f.mois = ?
	`

	var report entity.ExpenseReport
	var label sql.NullString
	var modified sql.NullTime
	var count sql.NullInt64
	var amount decimal.NullDecimal

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, visitorID, month).Scan(
		&report.VisitorID,
		&report.Month,
		&report.StateID,
		&label,
		&modified,
		&count,
		&amount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report",
			zap.String("id_visiteur", visitorID),
			zap.String("mois", month),
			zap.Error(err))
		return nil, storeError("get report", err)
	}

	report.StateLabel = label.String
	if modified.Valid {
		report.ModifiedAt = modified.Time
	}
	report.JustificationCount = int(count.Int64)
	if amount.Valid {
		report.ValidatedAmount = amount.Decimal
	}
	return &report, nil
}

// LatestMonth returns the greatest month the visitor has a report for, "" when none
func (r *ReportRepository) LatestMonth(ctx context.Context, visitorID string) (string, error) {
	var month sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT MAX(mois) FROM fichefrais WHERE idvisiteur = ?`, visitorID).Scan(&month)
	if err != nil {
		r.logger.Error("Failed to get latest month", zap.String("id_visiteur", visitorID), zap.Error(err))
		return "", storeError("get latest month", err)
	}
	return month.String, nil
}

// ListMonths returns the visitor's report months, most recent first
func (r *ReportRepository) ListMonths(ctx context.Context, visitorID string) ([]string, error) {
	return r.listMonths(ctx,
		`SELECT mois FROM fichefrais WHERE idvisiteur = ? ORDER BY mois DESC`, visitorID)
}

// ListMonthsInState returns the months whose report is in stateID, most recent first
func (r *ReportRepository) ListMonthsInState(ctx context.Context, visitorID, stateID string) ([]string, error) {
	return r.listMonths(ctx,
		`SELECT mois FROM fichefrais WHERE idvisiteur = ? AND idetat = ? ORDER BY mois DESC`, visitorID, stateID)
}

// ListInStateBefore returns the reports in stateID whose month precedes month,
// oldest first. Only the key and state are filled.
func (r *ReportRepository) ListInStateBefore(ctx context.Context, stateID, month string) ([]*entity.ExpenseReport, error) {
	query := `
		SELECT idvisiteur, mois, idetat
		FROM fichefrais
		WHERE idetat = ? AND mois < ?
		ORDER BY mois ASC, idvisiteur ASC
	`
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, stateID, month)
	if err != nil {
		r.logger.Error("Failed to list stale reports",
			zap.String("id_etat", stateID),
			zap.String("mois", month),
			zap.Error(err))
		return nil, storeError("list reports by state", err)
	}
	defer rows.Close()

	var reports []*entity.ExpenseReport
	for rows.Next() {
		var report entity.ExpenseReport
		if err := rows.Scan(&report.VisitorID, &report.Month, &report.StateID); err != nil {
			return nil, storeError("scan report", err)
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate reports", err)
	}
	return reports, nil
}

func (r *ReportRepository) listMonths(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list report months", zap.Any("args", args), zap.Error(err))
		return nil, storeError("list report months", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, storeError("scan report month", err)
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate report months", err)
	}
	return months, nil
}

// Create inserts a new report
func (r *ReportRepository) Create(ctx context.Context, report *entity.ExpenseReport) error {
	query := `
		INSERT INTO fichefrais (
			idvisiteur, mois, nbjustificatifs, montantvalide, datemodif, idetat
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		report.VisitorID,
		report.Month,
		report.JustificationCount,
		report.ValidatedAmount.StringFixed(2),
		isoDate(report.ModifiedAt),
		report.StateID,
	)
	if err != nil {
		r.logger.Error("Failed to create report",
			zap.String("id_visiteur", report.VisitorID),
			zap.String("mois", report.Month),
			zap.Error(err))
		return storeError("create report", err)
	}
	return nil
}

// UpdateState moves the report to stateID and stamps the modification date
func (r *ReportRepository) UpdateState(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error) {
	query := `
		UPDATE fichefrais
		SET idetat = ?, datemodif = ?
		WHERE idvisiteur = ? AND mois = ?
	`
	return r.exec(ctx, "update report state", query, stateID, isoDate(at), visitorID, month)
}

// SetValidated moves the report to stateID and records the validated amount
func (r *ReportRepository) SetValidated(ctx context.Context, visitorID, month, stateID string, amount decimal.Decimal, at time.Time) (bool, error) {
	query := `
		UPDATE fichefrais
		SET idetat = ?, montantvalide = ?, datemodif = ?
		WHERE idvisiteur = ? AND mois = ?
	`
	return r.exec(ctx, "set validated report", query, stateID, amount.StringFixed(2), isoDate(at), visitorID, month)
}

// SetValidatedAmount overwrites the validated amount only
func (r *ReportRepository) SetValidatedAmount(ctx context.Context, visitorID, month string, amount decimal.Decimal) (bool, error) {
	query := `UPDATE fichefrais SET montantvalide = ? WHERE idvisiteur = ? AND mois = ?`
	return r.exec(ctx, "set validated amount", query, amount.StringFixed(2), visitorID, month)
}

// UpdateJustificationCount sets nbjustificatifs
func (r *ReportRepository) UpdateJustificationCount(ctx context.Context, visitorID, month string, count int) (bool, error) {
	query := `UPDATE fichefrais SET nbjustificatifs = ? WHERE idvisiteur = ? AND mois = ?`
	return r.exec(ctx, "update justification count", query, count, visitorID, month)
}

func (r *ReportRepository) exec(ctx context.Context, action, query string, args ...interface{}) (bool, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, zap.Any("args", args), zap.Error(err))
		return false, storeError(action, err)
	}
	n, err := result.RowsAffected()
	return affected(action, n, err)
}

func (r *ReportRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ReportRepository = (*ReportRepository)(nil)
