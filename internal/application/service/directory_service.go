package service

import (
	"context"
	"fmt"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/period"
)

// DirectoryService answers the accountant's lookups on visitors and catalogs
type DirectoryService interface {
	ListVisitors(ctx context.Context) ([]*entity.Visitor, error)
	GetVisitor(ctx context.Context, id string) (*entity.Visitor, error)
	FindVisitorID(ctx context.Context, lastName, firstName string) (string, error)
	VisitorsWithValidatedReport(ctx context.Context, month string) ([]entity.VisitorName, error)
	FlatRateTypes(ctx context.Context) ([]entity.FlatRateType, error)
	VehicleRates(ctx context.Context) ([]entity.VehicleRate, error)
	States(ctx context.Context) ([]entity.State, error)
}

type directoryServiceImpl struct {
	visitors  port.VisitorRepository
	reference port.ReferenceRepository
	logger    Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(visitors port.VisitorRepository, reference port.ReferenceRepository, logger Logger) DirectoryService {
	return &directoryServiceImpl{
		visitors:  visitors,
		reference: reference,
		logger:    logger,
	}
}

func (s *directoryServiceImpl) ListVisitors(ctx context.Context) ([]*entity.Visitor, error) {
	visitors, err := s.visitors.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list visitors", "error", err)
		return nil, err
	}
	return visitors, nil
}

func (s *directoryServiceImpl) GetVisitor(ctx context.Context, id string) (*entity.Visitor, error) {
	visitor, err := s.visitors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if visitor == nil {
		return nil, fmt.Errorf("%w: visitor %s", entity.ErrNotFound, id)
	}
	return visitor, nil
}

func (s *directoryServiceImpl) FindVisitorID(ctx context.Context, lastName, firstName string) (string, error) {
	if lastName == "" || firstName == "" {
		return "", fmt.Errorf("%w: last and first name are required", entity.ErrValidation)
	}
	id, err := s.visitors.FindID(ctx, lastName, firstName)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: visitor %s %s", entity.ErrNotFound, lastName, firstName)
	}
	return id, nil
}

// VisitorsWithValidatedReport lists the visitors whose report for month awaits payment
func (s *directoryServiceImpl) VisitorsWithValidatedReport(ctx context.Context, month string) ([]entity.VisitorName, error) {
	if _, err := period.ParseMonth(month); err != nil {
		return nil, err
	}
	names, err := s.visitors.ListWithReportInState(ctx, month, entity.StateValidated)
	if err != nil {
		s.logger.Error("Failed to list validated reports", "error", err, "mois", month)
		return nil, err
	}
	return names, nil
}

func (s *directoryServiceImpl) FlatRateTypes(ctx context.Context) ([]entity.FlatRateType, error) {
	return s.reference.ListFlatRateTypes(ctx)
}

func (s *directoryServiceImpl) VehicleRates(ctx context.Context) ([]entity.VehicleRate, error) {
	return s.reference.ListVehicleRates(ctx)
}

func (s *directoryServiceImpl) States(ctx context.Context) ([]entity.State, error) {
	return s.reference.ListStates(ctx)
}
