package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/infrastructure/persistence/sqlite"
)

// AccountantRepository implements port.AccountantRepository
type AccountantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAccountantRepository creates a new accountant repository
func NewAccountantRepository(db *sql.DB, logger *zap.Logger) port.AccountantRepository {
	return &AccountantRepository{
		db:     db,
		logger: logger,
	}
}

// GetCredential returns the stored hash for login
func (r *AccountantRepository) GetCredential(ctx context.Context, login string) (*entity.Credential, error) {
	query := `SELECT id, nom, prenom, mdp FROM comptable WHERE login = ?`

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
		r.logger.Error("Failed to get accountant credential", zap.String("login", login), zap.Error(err))
		return nil, storeError("get accountant credential", err)
	}

	cred.PasswordHash = hash.String
	return &cred, nil
}

// UpdatePasswordHash replaces the stored hash for login
func (r *AccountantRepository) UpdatePasswordHash(ctx context.Context, login, hash string) (bool, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `UPDATE comptable SET mdp = ? WHERE login = ?`, hash, login)
	if err != nil {
		r.logger.Error("Failed to update accountant password", zap.String("login", login), zap.Error(err))
		return false, storeError("update accountant password", err)
	}
	n, err := result.RowsAffected()
	return affected("update accountant password", n, err)
}

// GetByID retrieves an accountant by ID
func (r *AccountantRepository) GetByID(ctx context.Context, id string) (*entity.Accountant, error) {
	query := `SELECT id, nom, prenom, login FROM comptable WHERE id = ?`

	var a entity.Accountant
	var login sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(&a.ID, &a.LastName, &a.FirstName, &login)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get accountant by ID", zap.String("id", id), zap.Error(err))
		return nil, storeError("get accountant", err)
	}

	a.Login = login.String
	return &a, nil
}

func (r *AccountantRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.AccountantRepository = (*AccountantRepository)(nil)
