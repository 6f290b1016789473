package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/event"
	"github.com/gsblab/gsb-frais/internal/domain/period"
)

// ItemizedInput is a new itemized line as entered on the form
type ItemizedInput struct {
	Label  string
	Date   string // dd/mm/yyyy
	Amount decimal.Decimal
}

// ExpenseService manages the flat-rate and itemized lines of a report
type ExpenseService interface {
	FlatRateLines(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error)
	ItemizedLines(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error)
	UpdateFlatRateQuantities(ctx context.Context, role, visitorID, month string, quantities map[string]int) error
	UpdateItemizedLines(ctx context.Context, visitorID, month string, labels map[int64]string, amounts map[int64]decimal.Decimal, dates map[int64]string) error
	CreateItemizedLine(ctx context.Context, visitorID, month string, in ItemizedInput) (*entity.ItemizedLine, error)
	DeleteItemizedLine(ctx context.Context, role, actor, visitorID, month string, id int64) error
	RejectItemizedLine(ctx context.Context, actor, visitorID, month string, id int64) (*entity.ItemizedLine, error)
	DeferItemizedLine(ctx context.Context, actor, visitorID, currentMonth string, id int64) (string, error)
}

type expenseServiceImpl struct {
	writer    *reportWriter
	flatRates port.FlatRateLineRepository
	itemized  port.ItemizedLineRepository
	reference port.ReferenceRepository
	txManager port.TransactionManager
	publisher EventPublisher
	logger    Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	reports port.ReportRepository,
	flatRates port.FlatRateLineRepository,
	itemized port.ItemizedLineRepository,
	reference port.ReferenceRepository,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
	clock Clock,
) ExpenseService {
	if clock == nil {
		clock = time.Now
	}
	return &expenseServiceImpl{
		writer: &reportWriter{
			reports:   reports,
			flatRates: flatRates,
			itemized:  itemized,
			reference: reference,
			now:       clock,
		},
		flatRates: flatRates,
		itemized:  itemized,
		reference: reference,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
	}
}

// FlatRateLines returns the flat-rate lines of an existing report
func (s *expenseServiceImpl) FlatRateLines(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error) {
	if err := validateKey(visitorID, month); err != nil {
		return nil, err
	}
	if _, err := s.writer.load(ctx, visitorID, month); err != nil {
		return nil, err
	}
	return s.flatRates.ListDetails(ctx, visitorID, month)
}

// ItemizedLines returns the itemized lines of an existing report
func (s *expenseServiceImpl) ItemizedLines(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error) {
	if err := validateKey(visitorID, month); err != nil {
		return nil, err
	}
	if _, err := s.writer.load(ctx, visitorID, month); err != nil {
		return nil, err
	}
	return s.itemized.List(ctx, visitorID, month)
}

// UpdateFlatRateQuantities sets every given quantity in one transaction
func (s *expenseServiceImpl) UpdateFlatRateQuantities(ctx context.Context, role, visitorID, month string, quantities map[string]int) error {
	if err := validateKey(visitorID, month); err != nil {
		return err
	}
	if len(quantities) == 0 {
		return fmt.Errorf("%w: no quantity given", entity.ErrValidation)
	}

	types, err := s.reference.ListFlatRateTypes(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(types))
	for _, ft := range types {
		known[ft.ID] = true
	}
	for id, qty := range quantities {
		if !known[id] {
			return fmt.Errorf("%w: unknown flat-rate type %q", entity.ErrValidation, id)
		}
		if qty < 0 {
			return fmt.Errorf("%w: quantity for %s must not be negative", entity.ErrValidation, id)
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.writer.load(txCtx, visitorID, month)
		if err != nil {
			return err
		}
		if err := checkEditable(report, role, false); err != nil {
			return err
		}

		for _, id := range sortedKeys(quantities) {
			ok, err := s.flatRates.UpdateQuantity(txCtx, visitorID, month, id, quantities[id])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: flat-rate line %s on %s/%s", entity.ErrNotFound, id, visitorID, month)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update flat-rate quantities", "error", err, "id_visiteur", visitorID, "mois", month)
		return err
	}

	s.logger.Info("Flat-rate quantities updated", "id_visiteur", visitorID, "mois", month, "count", len(quantities))
	return nil
}

// UpdateItemizedLines applies an accountant's corrections. The three maps must
// share the same key set.
func (s *expenseServiceImpl) UpdateItemizedLines(ctx context.Context, visitorID, month string, labels map[int64]string, amounts map[int64]decimal.Decimal, dates map[int64]string) error {
	if err := validateKey(visitorID, month); err != nil {
		return err
	}
	if len(labels) == 0 {
		return fmt.Errorf("%w: no line given", entity.ErrValidation)
	}
	if !sameKeys(labels, amounts, dates) {
		return fmt.Errorf("%w: label, amount and date must be given for the same lines", entity.ErrValidation)
	}

	updates := make(map[int64]entity.ItemizedUpdate, len(labels))
	for id, label := range labels {
		if err := validateLabel(label); err != nil {
			return fmt.Errorf("line %d: %w", id, err)
		}
		if !amounts[id].IsPositive() {
			return fmt.Errorf("%w: line %d amount must be positive", entity.ErrValidation, id)
		}
		date, err := period.ParseFrenchDate(dates[id])
		if err != nil {
			return fmt.Errorf("line %d: %w", id, err)
		}
		updates[id] = entity.ItemizedUpdate{Label: label, Amount: amounts[id], Date: date}
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.writer.load(txCtx, visitorID, month)
		if err != nil {
			return err
		}
		if err := checkEditable(report, entity.RoleAccountant, false); err != nil {
			return err
		}

		for _, id := range sortedKeys(updates) {
			ok, err := s.itemized.Update(txCtx, visitorID, month, id, updates[id])
			if err != nil {
				return err
			}
			if !ok {
				return lineNotFound(id)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update itemized lines", "error", err, "id_visiteur", visitorID, "mois", month)
		return err
	}

	s.logger.Info("Itemized lines updated", "id_visiteur", visitorID, "mois", month, "count", len(updates))
	return nil
}

// CreateItemizedLine adds a one-off expense to the visitor's open report
func (s *expenseServiceImpl) CreateItemizedLine(ctx context.Context, visitorID, month string, in ItemizedInput) (*entity.ItemizedLine, error) {
	if err := validateKey(visitorID, month); err != nil {
		return nil, err
	}
	if err := validateLabel(in.Label); err != nil {
		return nil, err
	}
	date, err := period.ParseFrenchDate(in.Date)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", entity.ErrValidation)
	}

	line := &entity.ItemizedLine{
		VisitorID: visitorID,
		Month:     month,
		Label:     in.Label,
		Date:      date,
		Amount:    in.Amount,
	}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.writer.load(txCtx, visitorID, month)
		if err != nil {
			return err
		}
		if err := checkEditable(report, entity.RoleVisitor, false); err != nil {
			return err
		}
		return s.itemized.Create(txCtx, line)
	})
	if err != nil {
		s.logger.Error("Failed to create itemized line", "error", err, "id_visiteur", visitorID, "mois", month)
		return nil, err
	}

	s.logger.Info("Itemized line created", "id", line.ID, "id_visiteur", visitorID, "mois", month)
	return line, nil
}

// DeleteItemizedLine removes a line of the visitor's report for month.
// Removing an accepted line from a validated report lowers its validated amount.
func (s *expenseServiceImpl) DeleteItemizedLine(ctx context.Context, role, actor, visitorID, month string, id int64) error {
	if err := validateKey(visitorID, month); err != nil {
		return err
	}
	if role == entity.RoleVisitor && visitorID != actor {
		return lineNotFound(id)
	}

	var line *entity.ItemizedLine
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var report *entity.ExpenseReport
		var err error
		line, report, err = s.loadLine(txCtx, visitorID, month, id)
		if err != nil {
			return err
		}
		if err := checkEditable(report, role, true); err != nil {
			return err
		}

		ok, err := s.itemized.Delete(txCtx, id)
		if err != nil {
			return err
		}
		if !ok {
			return lineNotFound(id)
		}
		return s.releaseAmount(txCtx, report, line)
	})
	if err != nil {
		s.logger.Error("Failed to delete itemized line", "error", err, "id", id)
		return err
	}

	publishAll(ctx, s.publisher, []*event.Event{
		event.New(event.TypeLineDeleted, line.VisitorID, line.Month).
			With("id", strconv.FormatInt(id, 10)).
			With("montant", line.Amount.StringFixed(2)).
			By(actor),
	})
	s.logger.Info("Itemized line deleted", "id", id, "id_visiteur", line.VisitorID, "mois", line.Month)
	return nil
}

// RejectItemizedLine prefixes the label with "REFUSE ". A line already
// rejected is returned unchanged.
func (s *expenseServiceImpl) RejectItemizedLine(ctx context.Context, actor, visitorID, month string, id int64) (*entity.ItemizedLine, error) {
	if err := validateKey(visitorID, month); err != nil {
		return nil, err
	}

	var line *entity.ItemizedLine
	changed := false
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var report *entity.ExpenseReport
		var err error
		line, report, err = s.loadLine(txCtx, visitorID, month, id)
		if err != nil {
			return err
		}
		if err := checkEditable(report, entity.RoleAccountant, true); err != nil {
			return err
		}
		if line.IsRejected() {
			return nil
		}

		if err := s.releaseAmount(txCtx, report, line); err != nil {
			return err
		}
		label := truncateLabel(entity.RejectPrefix + line.Label)
		ok, err := s.itemized.UpdateLabel(txCtx, id, label)
		if err != nil {
			return err
		}
		if !ok {
			return lineNotFound(id)
		}
		line.Label = label
		changed = true
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reject itemized line", "error", err, "id", id)
		return nil, err
	}

	if changed {
		publishAll(ctx, s.publisher, []*event.Event{
			event.New(event.TypeLineRejected, line.VisitorID, line.Month).
				With("id", strconv.FormatInt(id, 10)).
				By(actor),
		})
		s.logger.Info("Itemized line rejected", "id", id, "id_visiteur", line.VisitorID, "mois", line.Month)
	}
	return line, nil
}

// DeferItemizedLine moves a line from currentMonth to the following month,
// creating that month's report when needed. It returns the new month.
func (s *expenseServiceImpl) DeferItemizedLine(ctx context.Context, actor, visitorID, currentMonth string, id int64) (string, error) {
	if err := validateKey(visitorID, currentMonth); err != nil {
		return "", err
	}
	nextMonth, err := period.NextMonth(currentMonth)
	if err != nil {
		return "", err
	}

	var line *entity.ItemizedLine
	var events []*event.Event
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var report *entity.ExpenseReport
		var err error
		line, report, err = s.loadLine(txCtx, visitorID, currentMonth, id)
		if err != nil {
			return err
		}
		if err := checkEditable(report, entity.RoleAccountant, true); err != nil {
			return err
		}

		_, ensured, err := s.writer.ensure(txCtx, line.VisitorID, nextMonth)
		if err != nil {
			return err
		}
		events = append(events, ensured...)

		ok, err := s.itemized.Move(txCtx, id, nextMonth)
		if err != nil {
			return err
		}
		if !ok {
			return lineNotFound(id)
		}
		return s.releaseAmount(txCtx, report, line)
	})
	if err != nil {
		s.logger.Error("Failed to defer itemized line", "error", err, "id", id, "mois", currentMonth)
		return "", err
	}

	events = append(events, event.New(event.TypeLineDeferred, line.VisitorID, currentMonth).
		With("id", strconv.FormatInt(id, 10)).
		With("mois_suivant", nextMonth).
		By(actor))
	publishAll(ctx, s.publisher, events)
	s.logger.Info("Itemized line deferred", "id", id, "from", currentMonth, "to", nextMonth)
	return nextMonth, nil
}

// loadLine returns the line and its report. A line that does not belong to
// the visitor's report for month is reported as not found.
func (s *expenseServiceImpl) loadLine(ctx context.Context, visitorID, month string, id int64) (*entity.ItemizedLine, *entity.ExpenseReport, error) {
	line, err := s.itemized.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if line == nil || line.VisitorID != visitorID || line.Month != month {
		return nil, nil, lineNotFound(id)
	}
	report, err := s.writer.load(ctx, line.VisitorID, line.Month)
	if err != nil {
		return nil, nil, err
	}
	return line, report, nil
}

// releaseAmount removes an accepted line's amount from a validated report.
// The accountant may have validated less than the line total, so the release
// stops at zero.
func (s *expenseServiceImpl) releaseAmount(ctx context.Context, report *entity.ExpenseReport, line *entity.ItemizedLine) error {
	if report.StateID != entity.StateValidated || line.IsRejected() {
		return nil
	}
	amount := decimal.Min(line.Amount, report.ValidatedAmount)
	if !amount.IsPositive() {
		return nil
	}
	return s.writer.subtract(ctx, report.VisitorID, report.Month, amount)
}

func sameKeys(labels map[int64]string, amounts map[int64]decimal.Decimal, dates map[int64]string) bool {
	if len(labels) != len(amounts) || len(labels) != len(dates) {
		return false
	}
	for id := range labels {
		if _, ok := amounts[id]; !ok {
			return false
		}
		if _, ok := dates[id]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys[K int64 | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
