package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/event"
	"github.com/gsblab/gsb-frais/internal/domain/period"
	"github.com/gsblab/gsb-frais/internal/domain/workflow"
)

// ReportService drives the expense report lifecycle
type ReportService interface {
	IsFirstReportOfMonth(ctx context.Context, visitorID, month string) (bool, error)
	CreateReport(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error)
	EnsureReport(ctx context.Context, visitorID, month string) (bool, error)
	GetReport(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error)
	LatestMonth(ctx context.Context, visitorID string) (string, error)
	AvailableMonths(ctx context.Context, visitorID string) ([]entity.MonthOption, error)
	ClosedMonths(ctx context.Context, visitorID string) ([]entity.MonthOption, error)
	Validate(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error
	MarkInPayment(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error
	UpdateJustificationCount(ctx context.Context, visitorID, month string, count int) error
	SubtractFromValidatedAmount(ctx context.Context, visitorID, month string, amount decimal.Decimal) error
	ComputeTotal(ctx context.Context, visitorID, month string) (decimal.Decimal, error)
	CloseMonthsBefore(ctx context.Context, month, actor string) (int, error)
}

type reportServiceImpl struct {
	writer    *reportWriter
	reports   port.ReportRepository
	txManager port.TransactionManager
	publisher EventPublisher
	logger    Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	reports port.ReportRepository,
	flatRates port.FlatRateLineRepository,
	itemized port.ItemizedLineRepository,
	reference port.ReferenceRepository,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
	clock Clock,
) ReportService {
	if clock == nil {
		clock = time.Now
	}
	return &reportServiceImpl{
		writer: &reportWriter{
			reports:   reports,
			flatRates: flatRates,
			itemized:  itemized,
			reference: reference,
			now:       clock,
		},
		reports:   reports,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
	}
}

// IsFirstReportOfMonth returns true when the visitor has no report for month yet
func (s *reportServiceImpl) IsFirstReportOfMonth(ctx context.Context, visitorID, month string) (bool, error) {
	if err := validateKey(visitorID, month); err != nil {
		return false, err
	}
	exists, err := s.reports.Exists(ctx, visitorID, month)
	if err != nil {
		s.logger.Error("Failed to check report", "error", err, "id_visiteur", visitorID, "mois", month)
		return false, err
	}
	return !exists, nil
}

// CreateReport opens the report for month, closing the previous open one
func (s *reportServiceImpl) CreateReport(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	if err := validateKey(visitorID, month); err != nil {
		return nil, err
	}

	var report *entity.ExpenseReport
	var events []*event.Event
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		report, events, err = s.writer.create(txCtx, visitorID, month)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to create report", "error", err, "id_visiteur", visitorID, "mois", month)
		return nil, err
	}

	publishAll(ctx, s.publisher, events)
	s.logger.Info("Report created", "id_visiteur", visitorID, "mois", month)
	return report, nil
}

// EnsureReport creates the report for month when it does not exist yet
func (s *reportServiceImpl) EnsureReport(ctx context.Context, visitorID, month string) (bool, error) {
	if err := validateKey(visitorID, month); err != nil {
		return false, err
	}

	var created bool
	var events []*event.Event
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		created, events, err = s.writer.ensure(txCtx, visitorID, month)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to ensure report", "error", err, "id_visiteur", visitorID, "mois", month)
		return false, err
	}

	publishAll(ctx, s.publisher, events)
	if created {
		s.logger.Info("Report created", "id_visiteur", visitorID, "mois", month)
	}
	return created, nil
}

// GetReport returns the report with its state label
func (s *reportServiceImpl) GetReport(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	if err := validateKey(visitorID, month); err != nil {
		return nil, err
	}
	report, err := s.writer.load(ctx, visitorID, month)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// LatestMonth returns the visitor's most recent report month, "" when none
func (s *reportServiceImpl) LatestMonth(ctx context.Context, visitorID string) (string, error) {
	if visitorID == "" {
		return "", fmt.Errorf("%w: visitor id is required", entity.ErrValidation)
	}
	return s.reports.LatestMonth(ctx, visitorID)
}

// AvailableMonths lists every month with a report, most recent first
func (s *reportServiceImpl) AvailableMonths(ctx context.Context, visitorID string) ([]entity.MonthOption, error) {
	months, err := s.reports.ListMonths(ctx, visitorID)
	if err != nil {
		s.logger.Error("Failed to list months", "error", err, "id_visiteur", visitorID)
		return nil, err
	}
	return monthOptions(months), nil
}

// ClosedMonths lists the months waiting for validation, most recent first
func (s *reportServiceImpl) ClosedMonths(ctx context.Context, visitorID string) ([]entity.MonthOption, error) {
	months, err := s.reports.ListMonthsInState(ctx, visitorID, entity.StateClosed)
	if err != nil {
		s.logger.Error("Failed to list closed months", "error", err, "id_visiteur", visitorID)
		return nil, err
	}
	return monthOptions(months), nil
}

// Validate moves the report to VA with the accepted amount.
// A nil amount validates the report total computed in the same transaction.
func (s *reportServiceImpl) Validate(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error {
	return s.fire(ctx, visitorID, month, workflow.TriggerValidate, amount, actor, event.TypeReportValidated)
}

// MarkInPayment moves a validated report to MP.
// A nil amount keeps the validated amount.
func (s *reportServiceImpl) MarkInPayment(ctx context.Context, visitorID, month string, amount *decimal.Decimal, actor string) error {
	return s.fire(ctx, visitorID, month, workflow.TriggerPay, amount, actor, event.TypeReportInPayment)
}

func (s *reportServiceImpl) fire(ctx context.Context, visitorID, month string, trigger workflow.Trigger, amount *decimal.Decimal, actor string, evtType event.Type) error {
	if err := validateKey(visitorID, month); err != nil {
		return err
	}
	if amount != nil && amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", entity.ErrValidation)
	}

	var next workflow.State
	var recorded decimal.Decimal
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		next, recorded, err = s.writer.transition(txCtx, visitorID, month, trigger, amount)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to change report state",
			"error", err,
			"id_visiteur", visitorID,
			"mois", month,
			"trigger", trigger,
		)
		return err
	}

	publishAll(ctx, s.publisher, []*event.Event{
		event.New(evtType, visitorID, month).With("montant", recorded.StringFixed(2)).By(actor),
	})
	s.logger.Info("Report state changed", "id_visiteur", visitorID, "mois", month, "etat", next)
	return nil
}

// UpdateJustificationCount records how many supporting documents were received
func (s *reportServiceImpl) UpdateJustificationCount(ctx context.Context, visitorID, month string, count int) error {
	if err := validateKey(visitorID, month); err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%w: justification count must not be negative", entity.ErrValidation)
	}

	ok, err := s.reports.UpdateJustificationCount(ctx, visitorID, month, count)
	if err != nil {
		s.logger.Error("Failed to update justification count", "error", err, "id_visiteur", visitorID, "mois", month)
		return err
	}
	if !ok {
		return reportNotFound(visitorID, month)
	}
	return nil
}

// SubtractFromValidatedAmount lowers the validated amount of the report
func (s *reportServiceImpl) SubtractFromValidatedAmount(ctx context.Context, visitorID, month string, amount decimal.Decimal) error {
	if err := validateKey(visitorID, month); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", entity.ErrValidation)
	}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.writer.subtract(txCtx, visitorID, month, amount)
	})
	if err != nil {
		s.logger.Error("Failed to subtract validated amount", "error", err, "id_visiteur", visitorID, "mois", month)
		return err
	}
	return nil
}

// ComputeTotal prices the report: flat-rate quantities at their unit amount
// (mileage at the visitor's vehicle rate) plus the itemized lines not rejected
func (s *reportServiceImpl) ComputeTotal(ctx context.Context, visitorID, month string) (decimal.Decimal, error) {
	if _, err := s.GetReport(ctx, visitorID, month); err != nil {
		return decimal.Zero, err
	}
	return s.writer.total(ctx, visitorID, month)
}

// CloseMonthsBefore closes every open report of a month earlier than month,
// for visitors who never opened a newer one. It returns how many were closed.
func (s *reportServiceImpl) CloseMonthsBefore(ctx context.Context, month, actor string) (int, error) {
	if _, err := period.ParseMonth(month); err != nil {
		return 0, err
	}

	var events []*event.Event
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		stale, err := s.reports.ListInStateBefore(txCtx, entity.StateOpen, month)
		if err != nil {
			return err
		}
		for _, report := range stale {
			evt, err := s.writer.close(txCtx, report)
			if err != nil {
				return err
			}
			events = append(events, evt.By(actor))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to close stale reports", "error", err, "mois", month)
		return 0, err
	}

	publishAll(ctx, s.publisher, events)
	if len(events) > 0 {
		s.logger.Info("Stale reports closed", "mois", month, "count", len(events))
	}
	return len(events), nil
}

func reportTotal(details []entity.FlatRateDetail, lines []*entity.ItemizedLine) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.LineTotal())
	}
	for _, l := range lines {
		if !l.IsRejected() {
			total = total.Add(l.Amount)
		}
	}
	return total
}

func monthOptions(months []string) []entity.MonthOption {
	options := make([]entity.MonthOption, 0, len(months))
	for _, m := range months {
		options = append(options, period.Month(m).Option())
	}
	return options
}
