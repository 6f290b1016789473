package service

import (
	"context"
	"fmt"
	"io"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

// ExportService renders a report for download
type ExportService interface {
	Sheet(ctx context.Context, visitorID, month string) (*port.ReportSheet, error)
	Export(ctx context.Context, visitorID, month string, w io.Writer) error
}

type exportServiceImpl struct {
	visitors  port.VisitorRepository
	reports   port.ReportRepository
	flatRates port.FlatRateLineRepository
	itemized  port.ItemizedLineRepository
	writer    port.SheetWriter
	logger    Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	visitors port.VisitorRepository,
	reports port.ReportRepository,
	flatRates port.FlatRateLineRepository,
	itemized port.ItemizedLineRepository,
	writer port.SheetWriter,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		visitors:  visitors,
		reports:   reports,
		flatRates: flatRates,
		itemized:  itemized,
		writer:    writer,
		logger:    logger,
	}
}

// Sheet gathers everything shown on the accountant's report screen
func (s *exportServiceImpl) Sheet(ctx context.Context, visitorID, month string) (*port.ReportSheet, error) {
	if err := validateKey(visitorID, month); err != nil {
		return nil, err
	}

	visitor, err := s.visitors.GetByID(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if visitor == nil {
		return nil, fmt.Errorf("%w: visitor %s", entity.ErrNotFound, visitorID)
	}
	report, err := s.reports.Get(ctx, visitorID, month)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, reportNotFound(visitorID, month)
	}
	details, err := s.flatRates.ListDetails(ctx, visitorID, month)
	if err != nil {
		return nil, err
	}
	lines, err := s.itemized.List(ctx, visitorID, month)
	if err != nil {
		return nil, err
	}

	return &port.ReportSheet{
		Visitor:   visitor,
		Report:    report,
		FlatRates: details,
		Itemized:  lines,
		Total:     reportTotal(details, lines),
	}, nil
}

// Export writes the report sheet to w
func (s *exportServiceImpl) Export(ctx context.Context, visitorID, month string, w io.Writer) error {
	sheet, err := s.Sheet(ctx, visitorID, month)
	if err != nil {
		return err
	}
	if err := s.writer.Write(sheet, w); err != nil {
		s.logger.Error("Failed to export report", "error", err, "id_visiteur", visitorID, "mois", month)
		return fmt.Errorf("write sheet: %w", err)
	}
	s.logger.Info("Report exported", "id_visiteur", visitorID, "mois", month)
	return nil
}
