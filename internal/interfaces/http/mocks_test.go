package http

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/application/service"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

var (
	visitorIdentity    = &entity.Identity{ID: "a131", LastName: "Villechalane", FirstName: "Louis", Role: entity.RoleVisitor}
	accountantIdentity = &entity.Identity{ID: "c001", LastName: "Durand", FirstName: "Claire", Role: entity.RoleAccountant}
)

type mockAuthService struct {
	LoginFunc func(ctx context.Context, role, login, password string) (*service.Session, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, role, login, password string) (*entity.Identity, error) {
	return nil, entity.ErrAuthentication
}

func (m *mockAuthService) Login(ctx context.Context, role, login, password string) (*service.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, role, login, password)
	}
	return nil, entity.ErrAuthentication
}

func (m *mockAuthService) ParseToken(token string) (*entity.Identity, error) {
	switch token {
	case "visitor-token":
		return visitorIdentity, nil
	case "accountant-token":
		return accountantIdentity, nil
	}
	return nil, fmt.Errorf("%w: bad token", entity.ErrAuthentication)
}

func (m *mockAuthService) SetPassword(ctx context.Context, role, login, password string) error {
	return nil
}

type mockReportService struct {
	EnsureReportFunc  func(ctx context.Context, visitorID, month string) (bool, error)
	GetReportFunc     func(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error)
	ComputeTotalFunc  func(ctx context.Context, visitorID, month string) (decimal.Decimal, error)
	ValidateFunc      func(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error
	MarkInPaymentFunc func(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error
	UpdateCountFunc   func(ctx context.Context, visitorID, month string, count int) error
	months            []entity.MonthOption
	closed            []entity.MonthOption
}

func (m *mockReportService) IsFirstReportOfMonth(ctx context.Context, visitorID, month string) (bool, error) {
	return false, nil
}

func (m *mockReportService) CreateReport(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	return nil, nil
}

func (m *mockReportService) EnsureReport(ctx context.Context, visitorID, month string) (bool, error) {
	if m.EnsureReportFunc != nil {
		return m.EnsureReportFunc(ctx, visitorID, month)
	}
	return false, nil
}

func (m *mockReportService) GetReport(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	if m.GetReportFunc != nil {
		return m.GetReportFunc(ctx, visitorID, month)
	}
	return &entity.ExpenseReport{
		VisitorID:  visitorID,
		Month:      month,
		StateID:    entity.StateOpen,
		StateLabel: "Fiche créée, saisie en cours",
		ModifiedAt: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockReportService) LatestMonth(ctx context.Context, visitorID string) (string, error) {
	if len(m.months) == 0 {
		return "", nil
	}
	return m.months[0].Month, nil
}

func (m *mockReportService) AvailableMonths(ctx context.Context, visitorID string) ([]entity.MonthOption, error) {
	return m.months, nil
}

func (m *mockReportService) ClosedMonths(ctx context.Context, visitorID string) ([]entity.MonthOption, error) {
	return m.closed, nil
}

func (m *mockReportService) Validate(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, visitorID, month, amount, actor)
	}
	return nil
}

func (m *mockReportService) MarkInPayment(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error {
	if m.MarkInPaymentFunc != nil {
		return m.MarkInPaymentFunc(ctx, visitorID, month, amount, actor)
	}
	return nil
}

func (m *mockReportService) UpdateJustificationCount(ctx context.Context, visitorID, month string, count int) error {
	if m.UpdateCountFunc != nil {
		return m.UpdateCountFunc(ctx, visitorID, month, count)
	}
	return nil
}

func (m *mockReportService) SubtractFromValidatedAmount(ctx context.Context, visitorID, month string, amount decimal.Decimal) error {
	return nil
}

func (m *mockReportService) ComputeTotal(ctx context.Context, visitorID, month string) (decimal.Decimal, error) {
	if m.ComputeTotalFunc != nil {
		return m.ComputeTotalFunc(ctx, visitorID, month)
	}
	return decimal.Zero, nil
}

func (m *mockReportService) CloseMonthsBefore(ctx context.Context, month, actor string) (int, error) {
	return 0, nil
}

type mockExpenseService struct {
	UpdateFlatRateFunc func(ctx context.Context, role, visitorID, month string, quantities map[string]int) error
	UpdateItemizedFunc func(ctx context.Context, visitorID, month string, labels map[int64]string, amounts map[int64]decimal.Decimal, dates map[int64]string) error
	CreateFunc         func(ctx context.Context, visitorID, month string, in service.ItemizedInput) (*entity.ItemizedLine, error)
	DeleteFunc         func(ctx context.Context, role, actor, visitorID, month string, id int64) error
	RejectFunc         func(ctx context.Context, actor, visitorID, month string, id int64) (*entity.ItemizedLine, error)
	DeferFunc          func(ctx context.Context, actor, visitorID, currentMonth string, id int64) (string, error)
	flat               []entity.FlatRateDetail
	itemized           []*entity.ItemizedLine
}

func (m *mockExpenseService) FlatRateLines(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error) {
	return m.flat, nil
}

func (m *mockExpenseService) ItemizedLines(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error) {
	return m.itemized, nil
}

func (m *mockExpenseService) UpdateFlatRateQuantities(ctx context.Context, role, visitorID, month string, quantities map[string]int) error {
	if m.UpdateFlatRateFunc != nil {
		return m.UpdateFlatRateFunc(ctx, role, visitorID, month, quantities)
	}
	return nil
}

func (m *mockExpenseService) UpdateItemizedLines(ctx context.Context, visitorID, month string, labels map[int64]string, amounts map[int64]decimal.Decimal, dates map[int64]string) error {
	if m.UpdateItemizedFunc != nil {
		return m.UpdateItemizedFunc(ctx, visitorID, month, labels, amounts, dates)
	}
	return nil
}

func (m *mockExpenseService) CreateItemizedLine(ctx context.Context, visitorID, month string, in service.ItemizedInput) (*entity.ItemizedLine, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, visitorID, month, in)
	}
	return nil, nil
}

func (m *mockExpenseService) DeleteItemizedLine(ctx context.Context, role, actor, visitorID, month string, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, role, actor, visitorID, month, id)
	}
	return nil
}

func (m *mockExpenseService) RejectItemizedLine(ctx context.Context, actor, visitorID, month string, id int64) (*entity.ItemizedLine, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, actor, visitorID, month, id)
	}
	return nil, nil
}

func (m *mockExpenseService) DeferItemizedLine(ctx context.Context, actor, visitorID, currentMonth string, id int64) (string, error) {
	if m.DeferFunc != nil {
		return m.DeferFunc(ctx, actor, visitorID, currentMonth, id)
	}
	return "", nil
}

type mockDirectoryService struct {
	visitors  []*entity.Visitor
	validated []entity.VisitorName
	types     []entity.FlatRateType
	vehicles  []entity.VehicleRate
	states    []entity.State
}

func (m *mockDirectoryService) ListVisitors(ctx context.Context) ([]*entity.Visitor, error) {
	return m.visitors, nil
}

func (m *mockDirectoryService) GetVisitor(ctx context.Context, id string) (*entity.Visitor, error) {
	for _, v := range m.visitors {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m *mockDirectoryService) FindVisitorID(ctx context.Context, lastName, firstName string) (string, error) {
	if lastName == "" || firstName == "" {
		return "", entity.ErrValidation
	}
	for _, v := range m.visitors {
		if v.LastName == lastName && v.FirstName == firstName {
			return v.ID, nil
		}
	}
	return "", entity.ErrNotFound
}

func (m *mockDirectoryService) VisitorsWithValidatedReport(ctx context.Context, month string) ([]entity.VisitorName, error) {
	return m.validated, nil
}

func (m *mockDirectoryService) FlatRateTypes(ctx context.Context) ([]entity.FlatRateType, error) {
	return m.types, nil
}

func (m *mockDirectoryService) VehicleRates(ctx context.Context) ([]entity.VehicleRate, error) {
	return m.vehicles, nil
}

func (m *mockDirectoryService) States(ctx context.Context) ([]entity.State, error) {
	return m.states, nil
}

type mockJustificationService struct {
	UploadFunc func(ctx context.Context, visitorID, month, filename string, content []byte) (int, error)
}

func (m *mockJustificationService) Upload(ctx context.Context, visitorID, month, filename string, content []byte) (int, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, visitorID, month, filename, content)
	}
	return 0, nil
}

type mockExportService struct {
	ExportFunc func(ctx context.Context, visitorID, month string, w io.Writer) error
}

func (m *mockExportService) Sheet(ctx context.Context, visitorID, month string) (*port.ReportSheet, error) {
	return nil, nil
}

func (m *mockExportService) Export(ctx context.Context, visitorID, month string, w io.Writer) error {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, visitorID, month, w)
	}
	return nil
}
