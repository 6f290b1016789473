package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/event"
	"github.com/gsblab/gsb-frais/internal/domain/workflow"
)

type reportDeps struct {
	reports   *mockReportRepo
	flatRates *mockFlatRateRepo
	itemized  *mockItemizedRepo
	tx        *mockTxManager
	publisher *mockPublisher
}

func newReportService(deps *reportDeps) ReportService {
	if deps.reports == nil {
		deps.reports = &mockReportRepo{}
	}
	if deps.flatRates == nil {
		deps.flatRates = &mockFlatRateRepo{}
	}
	if deps.itemized == nil {
		deps.itemized = &mockItemizedRepo{}
	}
	deps.tx = &mockTxManager{}
	deps.publisher = &mockPublisher{}
	return NewReportService(deps.reports, deps.flatRates, deps.itemized, &mockReferenceRepo{},
		deps.tx, deps.publisher, &mockLogger{}, fixedClock)
}

func TestReportService_IsFirstReportOfMonth(t *testing.T) {
	tests := []struct {
		name    string
		month   string
		exists  bool
		want    bool
		wantErr error
	}{
		{name: "no report yet", month: "202305", exists: false, want: true},
		{name: "report exists", month: "202305", exists: true, want: false},
		{name: "malformed month", month: "2023-5", wantErr: entity.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := &reportDeps{reports: &mockReportRepo{
				existsFunc: func(ctx context.Context, visitorID, month string) (bool, error) {
					return tt.exists, nil
				},
			}}
			svc := newReportService(deps)

			got, err := svc.IsFirstReportOfMonth(context.Background(), "a131", tt.month)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReportService_CreateReport(t *testing.T) {
	var closed []string
	var created *entity.ExpenseReport
	deps := &reportDeps{reports: &mockReportRepo{
		latestMonthFunc: func(ctx context.Context, visitorID string) (string, error) { return "202304", nil },
		getFunc: reportFixture(&entity.ExpenseReport{
			VisitorID: "a131", Month: "202304", StateID: entity.StateOpen,
		}),
		updateStateFunc: func(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error) {
			closed = append(closed, month+":"+stateID)
			return true, nil
		},
		createFunc: func(ctx context.Context, report *entity.ExpenseReport) error {
			created = report
			return nil
		},
	}}
	svc := newReportService(deps)

	report, err := svc.CreateReport(context.Background(), "a131", "202305")
	require.NoError(t, err)

	assert.Equal(t, []string{"202304:CL"}, closed)
	require.NotNil(t, created)
	assert.Equal(t, report, created)
	assert.Equal(t, entity.StateOpen, report.StateID)
	assert.True(t, report.ValidatedAmount.IsZero())
	assert.Equal(t, 0, report.JustificationCount)
	assert.Equal(t, fixedNow, report.ModifiedAt)

	require.Len(t, deps.flatRates.created, 4)
	for _, line := range deps.flatRates.created {
		assert.Equal(t, "202305", line.Month)
		assert.Zero(t, line.Quantity)
	}

	assert.Equal(t, 1, deps.tx.calls)
	assert.Equal(t, []event.Type{event.TypeReportClosed, event.TypeReportCreated}, deps.publisher.types())
}

func TestReportService_CreateReport_LeavesNonOpenPrevious(t *testing.T) {
	updated := false
	deps := &reportDeps{reports: &mockReportRepo{
		latestMonthFunc: func(ctx context.Context, visitorID string) (string, error) { return "202304", nil },
		getFunc: reportFixture(&entity.ExpenseReport{
			VisitorID: "a131", Month: "202304", StateID: entity.StateValidated,
		}),
		updateStateFunc: func(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error) {
			updated = true
			return true, nil
		},
	}}
	svc := newReportService(deps)

	_, err := svc.CreateReport(context.Background(), "a131", "202305")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, []event.Type{event.TypeReportCreated}, deps.publisher.types())
}

func TestReportService_CreateReport_EarlierMonthKeepsCurrentOpen(t *testing.T) {
	updated := false
	deps := &reportDeps{reports: &mockReportRepo{
		latestMonthFunc: func(ctx context.Context, visitorID string) (string, error) { return "202307", nil },
		getFunc: reportFixture(&entity.ExpenseReport{
			VisitorID: "a131", Month: "202307", StateID: entity.StateOpen,
		}),
		updateStateFunc: func(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error) {
			updated = true
			return true, nil
		},
	}}
	svc := newReportService(deps)

	_, err := svc.CreateReport(context.Background(), "a131", "202305")
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestReportService_CreateReport_Errors(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		deps := &reportDeps{reports: &mockReportRepo{
			existsFunc: func(ctx context.Context, visitorID, month string) (bool, error) { return true, nil },
		}}
		svc := newReportService(deps)

		_, err := svc.CreateReport(context.Background(), "a131", "202305")
		assert.ErrorIs(t, err, entity.ErrValidation)
		assert.Empty(t, deps.publisher.types())
	})

	t.Run("store failure publishes nothing", func(t *testing.T) {
		boom := errors.New("disk full")
		deps := &reportDeps{reports: &mockReportRepo{
			createFunc: func(ctx context.Context, report *entity.ExpenseReport) error { return boom },
		}}
		svc := newReportService(deps)

		_, err := svc.CreateReport(context.Background(), "a131", "202305")
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, deps.publisher.types())
	})

	t.Run("missing visitor", func(t *testing.T) {
		svc := newReportService(&reportDeps{})
		_, err := svc.CreateReport(context.Background(), "", "202305")
		assert.ErrorIs(t, err, entity.ErrValidation)
	})
}

func TestReportService_EnsureReport(t *testing.T) {
	t.Run("existing report is left alone", func(t *testing.T) {
		deps := &reportDeps{reports: &mockReportRepo{
			existsFunc: func(ctx context.Context, visitorID, month string) (bool, error) { return true, nil },
			createFunc: func(ctx context.Context, report *entity.ExpenseReport) error {
				t.Fatal("Create must not be called")
				return nil
			},
		}}
		svc := newReportService(deps)

		created, err := svc.EnsureReport(context.Background(), "a131", "202305")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Empty(t, deps.publisher.types())
	})

	t.Run("first access creates", func(t *testing.T) {
		deps := &reportDeps{}
		svc := newReportService(deps)

		created, err := svc.EnsureReport(context.Background(), "a131", "202305")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Len(t, deps.flatRates.created, 4)
	})
}

func TestReportService_ValidateThenPay(t *testing.T) {
	state := entity.StateClosed
	var amounts []string
	deps := &reportDeps{reports: &mockReportRepo{
		getFunc: func(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
			return &entity.ExpenseReport{VisitorID: visitorID, Month: month, StateID: state}, nil
		},
		setValidatedFunc: func(ctx context.Context, visitorID, month, stateID string, amount decimal.Decimal, at time.Time) (bool, error) {
			state = stateID
			amounts = append(amounts, amount.StringFixed(2))
			assert.Equal(t, fixedNow, at)
			return true, nil
		},
	}}
	svc := newReportService(deps)
	ctx := context.Background()
	amount := decimal.RequireFromString("1234.5")
	given := &amount

	err := svc.MarkInPayment(ctx, "a131", "202305", given, "c001")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	assert.Equal(t, entity.StateClosed, state)

	require.NoError(t, svc.Validate(ctx, "a131", "202305", given, "c001"))
	assert.Equal(t, entity.StateValidated, state)

	err = svc.Validate(ctx, "a131", "202305", given, "c001")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	require.NoError(t, svc.MarkInPayment(ctx, "a131", "202305", given, "c001"))
	assert.Equal(t, entity.StateInPayment, state)

	for _, trigger := range []func() error{
		func() error { return svc.Validate(ctx, "a131", "202305", given, "c001") },
		func() error { return svc.MarkInPayment(ctx, "a131", "202305", given, "c001") },
	} {
		assert.ErrorIs(t, trigger(), workflow.ErrInvalidTransition)
	}

	assert.Equal(t, []string{"1234.50", "1234.50"}, amounts)
	require.Len(t, deps.publisher.events, 2)
	assert.Equal(t, event.TypeReportValidated, deps.publisher.events[0].Type)
	assert.Equal(t, "1234.50", deps.publisher.events[0].Get("montant"))
	assert.Equal(t, "c001", deps.publisher.events[0].Actor)
	assert.Equal(t, event.TypeReportInPayment, deps.publisher.events[1].Type)
}

func TestReportService_ValidateErrors(t *testing.T) {
	svc := newReportService(&reportDeps{})
	ctx := context.Background()

	amount := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}

	err := svc.Validate(ctx, "a131", "202305", amount(10), "c001")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	err = svc.Validate(ctx, "a131", "202305", amount(-1), "c001")
	assert.ErrorIs(t, err, entity.ErrValidation)

	err = svc.Validate(ctx, "a131", "202313", amount(1), "c001")
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestReportService_DefaultAmounts(t *testing.T) {
	state := entity.StateClosed
	validated := decimal.Zero
	var listedInTx []bool
	deps := &reportDeps{
		reports: &mockReportRepo{
			getFunc: func(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
				return &entity.ExpenseReport{VisitorID: visitorID, Month: month, StateID: state, ValidatedAmount: validated}, nil
			},
			setValidatedFunc: func(ctx context.Context, visitorID, month, stateID string, amount decimal.Decimal, at time.Time) (bool, error) {
				state, validated = stateID, amount
				return true, nil
			},
		},
		flatRates: &mockFlatRateRepo{
			listDetailsFunc: func(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error) {
				return []entity.FlatRateDetail{{FlatRateID: entity.FlatRateMeal, Quantity: 2, UnitAmount: decimal.NewFromInt(25)}}, nil
			},
		},
		itemized: &mockItemizedRepo{
			listFunc: func(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error) {
				listedInTx = append(listedInTx, ctx.Value(inTxKey{}) != nil)
				return []*entity.ItemizedLine{{ID: 1, Label: "Taxi", Amount: decimal.RequireFromString("12.40")}}, nil
			},
		},
	}
	svc := newReportService(deps)
	deps.tx.withTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(context.WithValue(ctx, inTxKey{}, true))
	}
	ctx := context.Background()

	require.NoError(t, svc.Validate(ctx, "a131", "202305", nil, "c001"))
	assert.Equal(t, entity.StateValidated, state)
	assert.Equal(t, "62.40", validated.StringFixed(2))
	assert.Equal(t, []bool{true}, listedInTx, "total computed inside the validate transaction")

	require.NoError(t, svc.MarkInPayment(ctx, "a131", "202305", nil, "c001"))
	assert.Equal(t, entity.StateInPayment, state)
	assert.Equal(t, "62.40", validated.StringFixed(2))

	require.Len(t, deps.publisher.events, 2)
	assert.Equal(t, "62.40", deps.publisher.events[0].Get("montant"))
	assert.Equal(t, "62.40", deps.publisher.events[1].Get("montant"))
}

type inTxKey struct{}

func TestReportService_UpdateJustificationCount(t *testing.T) {
	deps := &reportDeps{reports: &mockReportRepo{
		updateJustifFunc: func(ctx context.Context, visitorID, month string, count int) (bool, error) {
			return month == "202305", nil
		},
	}}
	svc := newReportService(deps)
	ctx := context.Background()

	require.NoError(t, svc.UpdateJustificationCount(ctx, "a131", "202305", 4))
	assert.ErrorIs(t, svc.UpdateJustificationCount(ctx, "a131", "202306", 4), entity.ErrNotFound)
	assert.ErrorIs(t, svc.UpdateJustificationCount(ctx, "a131", "202305", -1), entity.ErrValidation)
}

func TestReportService_SubtractFromValidatedAmount(t *testing.T) {
	var stored decimal.Decimal
	deps := &reportDeps{reports: &mockReportRepo{
		getFunc: reportFixture(&entity.ExpenseReport{
			VisitorID: "a131", Month: "202305", StateID: entity.StateValidated,
			ValidatedAmount: decimal.RequireFromString("100.00"),
		}),
		setValidatedAmtFunc: func(ctx context.Context, visitorID, month string, amount decimal.Decimal) (bool, error) {
			stored = amount
			return true, nil
		},
	}}
	svc := newReportService(deps)

	tests := []struct {
		name    string
		month   string
		amount  string
		want    string
		wantErr error
	}{
		{name: "lowers the amount", month: "202305", amount: "23.50", want: "76.50"},
		{name: "down to zero", month: "202305", amount: "100", want: "0.00"},
		{name: "zero is a no-op", month: "202305", amount: "0", want: "100.00"},
		{name: "negative amount", month: "202305", amount: "-50", wantErr: entity.ErrValidation},
		{name: "more than validated", month: "202305", amount: "1000", wantErr: entity.ErrValidation},
		{name: "missing report", month: "202306", amount: "1", wantErr: entity.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored = decimal.NewFromInt(-1)
			err := svc.SubtractFromValidatedAmount(context.Background(), "a131", tt.month, decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, "-1", stored.String(), "nothing stored")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.StringFixed(2))
		})
	}
}

func TestReportService_ComputeTotal(t *testing.T) {
	deps := &reportDeps{
		reports: &mockReportRepo{
			getFunc: reportFixture(&entity.ExpenseReport{VisitorID: "a131", Month: "202305", StateID: entity.StateClosed}),
		},
		flatRates: &mockFlatRateRepo{
			listDetailsFunc: func(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error) {
				return []entity.FlatRateDetail{
					{FlatRateID: entity.FlatRateStage, Quantity: 2, UnitAmount: decimal.NewFromInt(110)},
					{FlatRateID: entity.FlatRateMileage, Quantity: 100, UnitAmount: decimal.RequireFromString("0.62"), VehicleRate: decimal.RequireFromString("0.52")},
					{FlatRateID: entity.FlatRateMeal, Quantity: 3, UnitAmount: decimal.NewFromInt(25)},
				}, nil
			},
		},
		itemized: &mockItemizedRepo{
			listFunc: func(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error) {
				return []*entity.ItemizedLine{
					{ID: 1, Label: "Taxi", Amount: decimal.RequireFromString("23.50")},
					{ID: 2, Label: "REFUSE Cadeau", Amount: decimal.NewFromInt(300)},
				}, nil
			},
		},
	}
	svc := newReportService(deps)

	total, err := svc.ComputeTotal(context.Background(), "a131", "202305")
	require.NoError(t, err)
	// 220 + 52 + 75 + 23.50
	assert.Equal(t, "370.50", total.StringFixed(2))
}

func TestReportService_Months(t *testing.T) {
	deps := &reportDeps{reports: &mockReportRepo{
		listMonthsFunc: func(ctx context.Context, visitorID string) ([]string, error) {
			return []string{"202401", "202312"}, nil
		},
		listMonthsInStateFunc: func(ctx context.Context, visitorID, stateID string) ([]string, error) {
			assert.Equal(t, entity.StateClosed, stateID)
			return []string{"202312"}, nil
		},
	}}
	svc := newReportService(deps)
	ctx := context.Background()

	months, err := svc.AvailableMonths(ctx, "a131")
	require.NoError(t, err)
	assert.Equal(t, []entity.MonthOption{
		{Month: "202401", Year: "2024", Num: "01"},
		{Month: "202312", Year: "2023", Num: "12"},
	}, months)

	closed, err := svc.ClosedMonths(ctx, "a131")
	require.NoError(t, err)
	assert.Equal(t, []entity.MonthOption{{Month: "202312", Year: "2023", Num: "12"}}, closed)
}

func TestReportService_CloseMonthsBefore(t *testing.T) {
	var closed []string
	deps := &reportDeps{reports: &mockReportRepo{
		listInStateBeforeFunc: func(ctx context.Context, stateID, month string) ([]*entity.ExpenseReport, error) {
			assert.Equal(t, entity.StateOpen, stateID)
			assert.Equal(t, "202306", month)
			return []*entity.ExpenseReport{
				{VisitorID: "a17", Month: "202304", StateID: entity.StateOpen},
				{VisitorID: "a131", Month: "202305", StateID: entity.StateOpen},
			}, nil
		},
		updateStateFunc: func(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error) {
			closed = append(closed, visitorID+"/"+month+":"+stateID)
			assert.Equal(t, fixedNow, at)
			return true, nil
		},
	}}
	svc := newReportService(deps)

	count, err := svc.CloseMonthsBefore(context.Background(), "202306", "system")
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"a17/202304:CL", "a131/202305:CL"}, closed)
	assert.Equal(t, []event.Type{event.TypeReportClosed, event.TypeReportClosed}, deps.publisher.types())
	assert.Equal(t, "system", deps.publisher.events[0].Actor)
}

func TestReportService_CloseMonthsBefore_RollsBackOnFailure(t *testing.T) {
	deps := &reportDeps{reports: &mockReportRepo{
		listInStateBeforeFunc: func(ctx context.Context, stateID, month string) ([]*entity.ExpenseReport, error) {
			return []*entity.ExpenseReport{
				{VisitorID: "a17", Month: "202304", StateID: entity.StateOpen},
			}, nil
		},
		updateStateFunc: func(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error) {
			return false, errors.New("disk I/O error")
		},
	}}
	svc := newReportService(deps)

	count, err := svc.CloseMonthsBefore(context.Background(), "202306", "system")
	assert.Error(t, err)
	assert.Zero(t, count)
	assert.Empty(t, deps.publisher.types())

	_, err = svc.CloseMonthsBefore(context.Background(), "2023-06", "system")
	assert.ErrorIs(t, err, entity.ErrValidation)
}
