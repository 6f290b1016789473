package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/event"
	"github.com/gsblab/gsb-frais/internal/domain/workflow"
)

// reportWriter holds the report mutations shared by several services.
// Every method expects to run inside a transaction and returns the events to
// publish after commit.
type reportWriter struct {
	reports   port.ReportRepository
	flatRates port.FlatRateLineRepository
	itemized  port.ItemizedLineRepository
	reference port.ReferenceRepository
	now       Clock
}

// load returns the report or ErrNotFound
func (w *reportWriter) load(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	report, err := w.reports.Get(ctx, visitorID, month)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, reportNotFound(visitorID, month)
	}
	return report, nil
}

// create closes the visitor's latest open report when it precedes month, then
// inserts an open report with one zero line per flat-rate type
func (w *reportWriter) create(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, []*event.Event, error) {
	exists, err := w.reports.Exists(ctx, visitorID, month)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: report %s/%s already exists", entity.ErrValidation, visitorID, month)
	}

	var events []*event.Event
	now := w.now()

	latest, err := w.reports.LatestMonth(ctx, visitorID)
	if err != nil {
		return nil, nil, err
	}
	// a report created for an earlier month (deferral target) leaves the current one open
	if latest != "" && latest < month {
		previous, err := w.load(ctx, visitorID, latest)
		if err != nil {
			return nil, nil, err
		}
		if previous.StateID == entity.StateOpen {
			evt, err := w.close(ctx, previous)
			if err != nil {
				return nil, nil, err
			}
			events = append(events, evt)
		}
	}

	report := &entity.ExpenseReport{
		VisitorID:       visitorID,
		Month:           month,
		StateID:         entity.StateOpen,
		ModifiedAt:      now,
		ValidatedAmount: decimal.Zero,
	}
	if err := w.reports.Create(ctx, report); err != nil {
		return nil, nil, err
	}

	types, err := w.reference.ListFlatRateTypes(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, ft := range types {
		line := &entity.FlatRateLine{VisitorID: visitorID, Month: month, FlatRateID: ft.ID}
		if err := w.flatRates.Create(ctx, line); err != nil {
			return nil, nil, err
		}
	}

	events = append(events, event.New(event.TypeReportCreated, visitorID, month))
	return report, events, nil
}

// close moves an open report to CL
func (w *reportWriter) close(ctx context.Context, report *entity.ExpenseReport) (*event.Event, error) {
	next, err := workflow.Next(ctx, report.StateID, workflow.TriggerClose)
	if err != nil {
		return nil, err
	}
	ok, err := w.reports.UpdateState(ctx, report.VisitorID, report.Month, next.String(), w.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reportNotFound(report.VisitorID, report.Month)
	}
	return event.New(event.TypeReportClosed, report.VisitorID, report.Month), nil
}

// ensure creates the report when the visitor has none for month
func (w *reportWriter) ensure(ctx context.Context, visitorID, month string) (bool, []*event.Event, error) {
	exists, err := w.reports.Exists(ctx, visitorID, month)
	if err != nil {
		return false, nil, err
	}
	if exists {
		return false, nil, nil
	}
	_, events, err := w.create(ctx, visitorID, month)
	if err != nil {
		return false, nil, err
	}
	return true, events, nil
}

// subtract lowers the validated amount of the report. The amount must lie
// between zero and the current validated amount.
func (w *reportWriter) subtract(ctx context.Context, visitorID, month string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", entity.ErrValidation)
	}
	report, err := w.load(ctx, visitorID, month)
	if err != nil {
		return err
	}
	if amount.GreaterThan(report.ValidatedAmount) {
		return fmt.Errorf("%w: amount %s exceeds validated amount %s of %s/%s", entity.ErrValidation,
			amount.StringFixed(2), report.ValidatedAmount.StringFixed(2), visitorID, month)
	}
	ok, err := w.reports.SetValidatedAmount(ctx, visitorID, month, report.ValidatedAmount.Sub(amount))
	if err != nil {
		return err
	}
	if !ok {
		return reportNotFound(visitorID, month)
	}
	return nil
}

// transition fires trigger on the stored state and records the amount.
// Without an amount, validation records the report total and payment keeps
// the validated amount.
func (w *reportWriter) transition(ctx context.Context, visitorID, month string, trigger workflow.Trigger, amount *decimal.Decimal) (workflow.State, decimal.Decimal, error) {
	report, err := w.load(ctx, visitorID, month)
	if err != nil {
		return "", decimal.Zero, err
	}
	next, err := workflow.Next(ctx, report.StateID, trigger)
	if err != nil {
		return "", decimal.Zero, err
	}

	recorded := report.ValidatedAmount
	switch {
	case amount != nil:
		recorded = *amount
	case trigger == workflow.TriggerValidate:
		if recorded, err = w.total(ctx, visitorID, month); err != nil {
			return "", decimal.Zero, err
		}
	}

	ok, err := w.reports.SetValidated(ctx, visitorID, month, next.String(), recorded, w.now())
	if err != nil {
		return "", decimal.Zero, err
	}
	if !ok {
		return "", decimal.Zero, reportNotFound(visitorID, month)
	}
	return next, recorded, nil
}

// total prices the report lines as currently stored
func (w *reportWriter) total(ctx context.Context, visitorID, month string) (decimal.Decimal, error) {
	details, err := w.flatRates.ListDetails(ctx, visitorID, month)
	if err != nil {
		return decimal.Zero, err
	}
	lines, err := w.itemized.List(ctx, visitorID, month)
	if err != nil {
		return decimal.Zero, err
	}
	return reportTotal(details, lines), nil
}
