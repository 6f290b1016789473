package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

// CredentialRepository looks up stored password hashes for one identity table
type CredentialRepository interface {
	// GetCredential returns nil, nil for an unknown login
	GetCredential(ctx context.Context, login string) (*entity.Credential, error)
	UpdatePasswordHash(ctx context.Context, login, hash string) (bool, error)
}

// VisitorRepository defines persistence operations for visitors
type VisitorRepository interface {
	CredentialRepository
	GetByID(ctx context.Context, id string) (*entity.Visitor, error)
	List(ctx context.Context) ([]*entity.Visitor, error)
	FindID(ctx context.Context, lastName, firstName string) (string, error)
	ListWithReportInState(ctx context.Context, month, stateID string) ([]entity.VisitorName, error)
}

// AccountantRepository defines persistence operations for accountants
type AccountantRepository interface {
	CredentialRepository
	GetByID(ctx context.Context, id string) (*entity.Accountant, error)
}

// ReportRepository defines persistence operations for fichefrais.
// Mutations return false when no row matched.
type ReportRepository interface {
	Exists(ctx context.Context, visitorID, month string) (bool, error)
	Get(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error)
	LatestMonth(ctx context.Context, visitorID string) (string, error)
	ListMonths(ctx context.Context, visitorID string) ([]string, error)
	ListMonthsInState(ctx context.Context, visitorID, stateID string) ([]string, error)
	ListInStateBefore(ctx context.Context, stateID, month string) ([]*entity.ExpenseReport, error)
	Create(ctx context.Context, report *entity.ExpenseReport) error
	UpdateState(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error)
	SetValidated(ctx context.Context, visitorID, month, stateID string, amount decimal.Decimal, at time.Time) (bool, error)
	SetValidatedAmount(ctx context.Context, visitorID, month string, amount decimal.Decimal) (bool, error)
	UpdateJustificationCount(ctx context.Context, visitorID, month string, count int) (bool, error)
}

// FlatRateLineRepository defines persistence operations for lignefraisforfait
type FlatRateLineRepository interface {
	Create(ctx context.Context, line *entity.FlatRateLine) error
	UpdateQuantity(ctx context.Context, visitorID, month, flatRateID string, quantity int) (bool, error)
	ListDetails(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error)
	Count(ctx context.Context, visitorID, month string) (int, error)
}

// ItemizedLineRepository defines persistence operations for lignefraishorsforfait
type ItemizedLineRepository interface {
	Create(ctx context.Context, line *entity.ItemizedLine) error
	GetByID(ctx context.Context, id int64) (*entity.ItemizedLine, error)
	List(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error)
	Update(ctx context.Context, visitorID, month string, id int64, upd entity.ItemizedUpdate) (bool, error)
	UpdateLabel(ctx context.Context, id int64, label string) (bool, error)
	Move(ctx context.Context, id int64, month string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ReferenceRepository reads the catalog tables
type ReferenceRepository interface {
	ListFlatRateTypes(ctx context.Context) ([]entity.FlatRateType, error)
	ListVehicleRates(ctx context.Context) ([]entity.VehicleRate, error)
	ListStates(ctx context.Context) ([]entity.State, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
