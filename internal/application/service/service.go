// Package service holds the expense report use cases. Services validate input
// before touching the store, run multi-step changes in one transaction and
// publish lifecycle events once the transaction has committed.
package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/event"
	"github.com/gsblab/gsb-frais/internal/domain/period"
	"github.com/gsblab/gsb-frais/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EventPublisher delivers committed lifecycle events to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event)
}

// Clock returns the current time
type Clock func() time.Time

func publishAll(ctx context.Context, publisher EventPublisher, events []*event.Event) {
	if publisher == nil {
		return
	}
	for _, evt := range events {
		publisher.Publish(ctx, evt)
	}
}

func validateKey(visitorID, month string) error {
	if visitorID == "" {
		return fmt.Errorf("%w: visitor id is required", entity.ErrValidation)
	}
	_, err := period.ParseMonth(month)
	return err
}

func validateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("%w: label is required", entity.ErrValidation)
	}
	if utf8.RuneCountInString(label) > entity.MaxLabelLength {
		return fmt.Errorf("%w: label exceeds %d characters", entity.ErrValidation, entity.MaxLabelLength)
	}
	return nil
}

// truncateLabel cuts label to the column width without splitting a character
func truncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= entity.MaxLabelLength {
		return label
	}
	return string([]rune(label)[:entity.MaxLabelLength])
}

// checkEditable enforces who may touch a report in its current state.
// Visitors edit open reports only. Accountants correct lines until payment;
// content corrections stop at validation unless afterValidation is set.
func checkEditable(report *entity.ExpenseReport, role string, afterValidation bool) error {
	state := workflow.State(report.StateID)
	switch role {
	case entity.RoleVisitor:
		if state.AcceptsVisitorEdits() {
			return nil
		}
	case entity.RoleAccountant:
		if state.AcceptsReviewEdits() && (afterValidation || state.Before(workflow.StateValidated)) {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown role %q", entity.ErrValidation, role)
	}
	return fmt.Errorf("%w: report %s/%s is %s", entity.ErrReportLocked, report.VisitorID, report.Month, report.StateID)
}

func reportNotFound(visitorID, month string) error {
	return fmt.Errorf("%w: no expense report for visitor %s in %s", entity.ErrNotFound, visitorID, month)
}

func lineNotFound(id int64) error {
	return fmt.Errorf("%w: itemized line %d", entity.ErrNotFound, id)
}
