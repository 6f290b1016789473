package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/infrastructure/persistence/sqlite"
)

// VisitorRepository implements port.VisitorRepository
type VisitorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVisitorRepository creates a new visitor repository
func NewVisitorRepository(db *sql.DB, logger *zap.Logger) port.VisitorRepository {
	return &VisitorRepository{
		db:     db,
		logger: logger,
	}
}

// GetCredential returns the stored hash for login
func (r *VisitorRepository) GetCredential(ctx context.Context, login string) (*entity.Credential, error) {
	query := `SELECT id, nom, prenom, mdp FROM visiteur WHERE login = ?`

	var cred entity.Credential
	var hash sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, login).Scan(
		&cred.ID,
		&cred.LastName,
		&cred.FirstName,
		&hash,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get visitor credential", zap.String("login", login), zap.Error(err))
		return nil, storeError("get visitor credential", err)
	}

	cred.PasswordHash = hash.String
	return &cred, nil
}

// UpdatePasswordHash replaces the stored hash for login
func (r *VisitorRepository) UpdatePasswordHash(ctx context.Context, login, hash string) (bool, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `UPDATE visiteur SET mdp = ? WHERE login = ?`, hash, login)
	if err != nil {
		r.logger.Error("Failed to update visitor password", zap.String("login", login), zap.Error(err))
		return false, storeError("update visitor password", err)
	}
	n, err := result.RowsAffected()
	return affected("update visitor password", n, err)
}

// GetByID retrieves a visitor by ID
func (r *VisitorRepository) GetByID(ctx context.Context, id string) (*entity.Visitor, error) {
	query := `
		SELECT id, nom, prenom, login, idvehicule
		FROM visiteur
		WHERE id = ?
	`

	var v entity.Visitor
	var login, vehicle sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.LastName,
		&v.FirstName,
		&login,
		&vehicle,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get visitor by ID", zap.String("id", id), zap.Error(err))
		return nil, storeError("get visitor", err)
	}

	v.Login = login.String
	v.VehicleID = vehicle.String
	return &v, nil
}

// List returns every visitor ordered by id
func (r *VisitorRepository) List(ctx context.Context) ([]*entity.Visitor, error) {
	query := `
		SELECT id, nom, prenom, login, idvehicule
		FROM visiteur
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list visitors", zap.Error(err))
		return nil, storeError("list visitors", err)
	}
	defer rows.Close()

	var visitors []*entity.Visitor
	for rows.Next() {
		var v entity.Visitor
		var login, vehicle sql.NullString
		if err := rows.Scan(&v.ID, &v.LastName, &v.FirstName, &login, &vehicle); err != nil {
			return nil, storeError("scan visitor", err)
		}
		v.Login = login.String
		v.VehicleID = vehicle.String
		visitors = append(visitors, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate visitors", err)
	}
	return visitors, nil
}

// FindID returns the id of the visitor with that name, "" when none matches
func (r *VisitorRepository) FindID(ctx context.Context, lastName, firstName string) (string, error) {
	query := `SELECT id FROM visiteur WHERE nom = ? AND prenom = ? ORDER BY id LIMIT 1`

	var id string
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, lastName, firstName).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		r.logger.Error("Failed to find visitor",
			zap.String("nom", lastName),
			zap.String("prenom", firstName),
			zap.Error(err))
		return "", storeError("find visitor", err)
	}
	return id, nil
}

// ListWithReportInState returns the visitors whose report for month is in stateID
func (r *VisitorRepository) ListWithReportInState(ctx context.Context, month, stateID string) ([]entity.VisitorName, error) {
	query := `
		SELECT v.id, v.nom || ' ' || v.prenom
		FROM visiteur v
		INNER JOIN fichefrais f ON f.idvisiteur = v.id
		WHERE f.mois = ? AND f.idetat = ?
		ORDER BY v.nom, v.prenom
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, month, stateID)
	if err != nil {
		r.logger.Error("Failed to list visitors by report state",
			zap.String("mois", month),
			zap.String("etat", stateID),
			zap.Error(err))
		return nil, storeError("list visitors by report state", err)
	}
	defer rows.Close()

	var names []entity.VisitorName
	for rows.Next() {
		var n entity.VisitorName
		if err := rows.Scan(&n.VisitorID, &n.FullName); err != nil {
			return nil, storeError("scan visitor name", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate visitor names", err)
	}
	return names, nil
}

func (r *VisitorRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.VisitorRepository = (*VisitorRepository)(nil)
