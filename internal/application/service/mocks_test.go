package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/event"
)

var fixedNow = time.Date(2023, 6, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type mockReportRepo struct {
	existsFunc            func(ctx context.Context, visitorID, month string) (bool, error)
	getFunc               func(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error)
	latestMonthFunc       func(ctx context.Context, visitorID string) (string, error)
	listMonthsFunc        func(ctx context.Context, visitorID string) ([]string, error)
	listMonthsInStateFunc func(ctx context.Context, visitorID, stateID string) ([]string, error)
	listInStateBeforeFunc func(ctx context.Context, stateID, month string) ([]*entity.ExpenseReport, error)
	createFunc            func(ctx context.Context, report *entity.ExpenseReport) error
	updateStateFunc       func(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error)
	setValidatedFunc      func(ctx context.Context, visitorID, month, stateID string, amount decimal.Decimal, at time.Time) (bool, error)
	setValidatedAmtFunc   func(ctx context.Context, visitorID, month string, amount decimal.Decimal) (bool, error)
	updateJustifFunc      func(ctx context.Context, visitorID, month string, count int) (bool, error)
}

func (m *mockReportRepo) Exists(ctx context.Context, visitorID, month string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, visitorID, month)
	}
	return false, nil
}

func (m *mockReportRepo) Get(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, visitorID, month)
	}
	return nil, nil
}

func (m *mockReportRepo) LatestMonth(ctx context.Context, visitorID string) (string, error) {
	if m.latestMonthFunc != nil {
		return m.latestMonthFunc(ctx, visitorID)
	}
	return "", nil
}

func (m *mockReportRepo) ListMonths(ctx context.Context, visitorID string) ([]string, error) {
	if m.listMonthsFunc != nil {
		return m.listMonthsFunc(ctx, visitorID)
	}
	return nil, nil
}

func (m *mockReportRepo) ListMonthsInState(ctx context.Context, visitorID, stateID string) ([]string, error) {
	if m.listMonthsInStateFunc != nil {
		return m.listMonthsInStateFunc(ctx, visitorID, stateID)
	}
	return nil, nil
}

func (m *mockReportRepo) ListInStateBefore(ctx context.Context, stateID, month string) ([]*entity.ExpenseReport, error) {
	if m.listInStateBeforeFunc != nil {
		return m.listInStateBeforeFunc(ctx, stateID, month)
	}
	return nil, nil
}

func (m *mockReportRepo) Create(ctx context.Context, report *entity.ExpenseReport) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, report)
	}
	return nil
}

func (m *mockReportRepo) UpdateState(ctx context.Context, visitorID, month, stateID string, at time.Time) (bool, error) {
	if m.updateStateFunc != nil {
		return m.updateStateFunc(ctx, visitorID, month, stateID, at)
	}
	return true, nil
}

func (m *mockReportRepo) SetValidated(ctx context.Context, visitorID, month, stateID string, amount decimal.Decimal, at time.Time) (bool, error) {
	if m.setValidatedFunc != nil {
		return m.setValidatedFunc(ctx, visitorID, month, stateID, amount, at)
	}
	return true, nil
}

func (m *mockReportRepo) SetValidatedAmount(ctx context.Context, visitorID, month string, amount decimal.Decimal) (bool, error) {
	if m.setValidatedAmtFunc != nil {
		return m.setValidatedAmtFunc(ctx, visitorID, month, amount)
	}
	return true, nil
}

func (m *mockReportRepo) UpdateJustificationCount(ctx context.Context, visitorID, month string, count int) (bool, error) {
	if m.updateJustifFunc != nil {
		return m.updateJustifFunc(ctx, visitorID, month, count)
	}
	return true, nil
}

type mockFlatRateRepo struct {
	created            []*entity.FlatRateLine
	updateQuantityFunc func(ctx context.Context, visitorID, month, flatRateID string, quantity int) (bool, error)
	listDetailsFunc    func(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error)
}

func (m *mockFlatRateRepo) Create(ctx context.Context, line *entity.FlatRateLine) error {
	m.created = append(m.created, line)
	return nil
}

func (m *mockFlatRateRepo) UpdateQuantity(ctx context.Context, visitorID, month, flatRateID string, quantity int) (bool, error) {
	if m.updateQuantityFunc != nil {
		return m.updateQuantityFunc(ctx, visitorID, month, flatRateID, quantity)
	}
	return true, nil
}

func (m *mockFlatRateRepo) ListDetails(ctx context.Context, visitorID, month string) ([]entity.FlatRateDetail, error) {
	if m.listDetailsFunc != nil {
		return m.listDetailsFunc(ctx, visitorID, month)
	}
	return nil, nil
}

func (m *mockFlatRateRepo) Count(ctx context.Context, visitorID, month string) (int, error) {
	return len(m.created), nil
}

type mockItemizedRepo struct {
	createFunc      func(ctx context.Context, line *entity.ItemizedLine) error
	getByIDFunc     func(ctx context.Context, id int64) (*entity.ItemizedLine, error)
	listFunc        func(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error)
	updateFunc      func(ctx context.Context, visitorID, month string, id int64, upd entity.ItemizedUpdate) (bool, error)
	updateLabelFunc func(ctx context.Context, id int64, label string) (bool, error)
	moveFunc        func(ctx context.Context, id int64, month string) (bool, error)
	deleteFunc      func(ctx context.Context, id int64) (bool, error)
}

func (m *mockItemizedRepo) Create(ctx context.Context, line *entity.ItemizedLine) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, line)
	}
	line.ID = 1
	return nil
}

func (m *mockItemizedRepo) GetByID(ctx context.Context, id int64) (*entity.ItemizedLine, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockItemizedRepo) List(ctx context.Context, visitorID, month string) ([]*entity.ItemizedLine, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, visitorID, month)
	}
	return nil, nil
}

func (m *mockItemizedRepo) Update(ctx context.Context, visitorID, month string, id int64, upd entity.ItemizedUpdate) (bool, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, visitorID, month, id, upd)
	}
	return true, nil
}

func (m *mockItemizedRepo) UpdateLabel(ctx context.Context, id int64, label string) (bool, error) {
	if m.updateLabelFunc != nil {
		return m.updateLabelFunc(ctx, id, label)
	}
	return true, nil
}

func (m *mockItemizedRepo) Move(ctx context.Context, id int64, month string) (bool, error) {
	if m.moveFunc != nil {
		return m.moveFunc(ctx, id, month)
	}
	return true, nil
}

func (m *mockItemizedRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return true, nil
}

type mockReferenceRepo struct{}

func (m *mockReferenceRepo) ListFlatRateTypes(ctx context.Context) ([]entity.FlatRateType, error) {
	return []entity.FlatRateType{
		{ID: entity.FlatRateStage, Label: "Forfait Etape", UnitAmount: decimal.NewFromInt(110)},
		{ID: entity.FlatRateMileage, Label: "Frais Kilométrique", UnitAmount: decimal.RequireFromString("0.62")},
		{ID: entity.FlatRateNight, Label: "Nuitée Hôtel", UnitAmount: decimal.NewFromInt(80)},
		{ID: entity.FlatRateMeal, Label: "Repas Restaurant", UnitAmount: decimal.NewFromInt(25)},
	}, nil
}

func (m *mockReferenceRepo) ListVehicleRates(ctx context.Context) ([]entity.VehicleRate, error) {
	return []entity.VehicleRate{{ID: "4D", Price: decimal.RequireFromString("0.52")}}, nil
}

func (m *mockReferenceRepo) ListStates(ctx context.Context) ([]entity.State, error) {
	return []entity.State{{ID: "CR"}, {ID: "CL"}, {ID: "VA"}, {ID: "MP"}}, nil
}

type mockVisitorRepo struct {
	credentials map[string]*entity.Credential
	visitors    map[string]*entity.Visitor
	updated     map[string]string
	names       []entity.VisitorName
}

func (m *mockVisitorRepo) GetCredential(ctx context.Context, login string) (*entity.Credential, error) {
	return m.credentials[login], nil
}

func (m *mockVisitorRepo) UpdatePasswordHash(ctx context.Context, login, hash string) (bool, error) {
	if _, ok := m.credentials[login]; !ok {
		return false, nil
	}
	if m.updated == nil {
		m.updated = map[string]string{}
	}
	m.updated[login] = hash
	return true, nil
}

func (m *mockVisitorRepo) GetByID(ctx context.Context, id string) (*entity.Visitor, error) {
	return m.visitors[id], nil
}

func (m *mockVisitorRepo) List(ctx context.Context) ([]*entity.Visitor, error) {
	var out []*entity.Visitor
	for _, v := range m.visitors {
		out = append(out, v)
	}
	return out, nil
}

func (m *mockVisitorRepo) FindID(ctx context.Context, lastName, firstName string) (string, error) {
	for _, v := range m.visitors {
		if v.LastName == lastName && v.FirstName == firstName {
			return v.ID, nil
		}
	}
	return "", nil
}

func (m *mockVisitorRepo) ListWithReportInState(ctx context.Context, month, stateID string) ([]entity.VisitorName, error) {
	return m.names, nil
}

type mockTxManager struct {
	calls               int
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) Publish(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockHasher struct{}

func (m *mockHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (m *mockHasher) Verify(hash, password string) bool    { return hash == "hashed:"+password }

type mockTokens struct {
	issued []*entity.Identity
}

func (m *mockTokens) Issue(identity *entity.Identity) (string, time.Time, error) {
	m.issued = append(m.issued, identity)
	return "token-" + identity.ID, fixedNow.Add(time.Hour), nil
}

func (m *mockTokens) Parse(token string) (*entity.Identity, error) {
	for _, id := range m.issued {
		if token == "token-"+id.ID {
			return id, nil
		}
	}
	return nil, io.EOF
}

type mockStorage struct {
	saved map[string][]byte
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.saved[path], nil
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	delete(m.saved, path)
	return nil
}

func (m *mockStorage) FullPath(path string) string { return "/data/" + path }

type mockPageCounter struct {
	pages int
	err   error
	paths []string
}

func (m *mockPageCounter) CountPages(path string) (int, error) {
	m.paths = append(m.paths, path)
	return m.pages, m.err
}

type mockSheetWriter struct {
	sheet *port.ReportSheet
}

func (m *mockSheetWriter) Write(sheet *port.ReportSheet, w io.Writer) error {
	m.sheet = sheet
	_, err := io.WriteString(w, "xlsx")
	return err
}

// reportFixture returns a Get func serving fixed reports keyed by month
func reportFixture(reports ...*entity.ExpenseReport) func(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
	return func(ctx context.Context, visitorID, month string) (*entity.ExpenseReport, error) {
		for _, r := range reports {
			if r.VisitorID == visitorID && r.Month == month {
				cp := *r
				return &cp, nil
			}
		}
		return nil, nil
	}
}
