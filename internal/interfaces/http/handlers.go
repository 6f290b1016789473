package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/application/service"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	health         HealthFunc
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Role     string `json:"role" binding:"required"`
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// QuantitiesRequest carries flat-rate quantities keyed by type id
type QuantitiesRequest struct {
	Quantities map[string]int `json:"quantites" binding:"required"`
}

// ItemizedRequest is a new itemized line, date as dd/mm/yyyy
type ItemizedRequest struct {
	Label  string          `json:"libelle"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"montant"`
}

// ItemizedCorrectionsRequest carries the accountant's corrections keyed by line id
type ItemizedCorrectionsRequest struct {
	Labels  map[int64]string          `json:"libelles"`
	Amounts map[int64]decimal.Decimal `json:"montants"`
	Dates   map[int64]string          `json:"dates"`
}

// JustificationCountRequest sets the number of received documents
type JustificationCountRequest struct {
	Count *int `json:"nb_justificatifs" binding:"required"`
}

// AmountRequest optionally overrides the amount of a state change
type AmountRequest struct {
	Amount *decimal.Decimal `json:"montant"`
}

// HealthCheck handles GET /health. An unhealthy component answers 503.
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.health == nil {
		ok(c, healthResponse(true, nil))
		return
	}

	healthy, components := h.health()
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: healthResponse(false, components), Error: "service unhealthy"})
		return
	}
	ok(c, healthResponse(true, components))
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "role, login and password are required"})
		return
	}

	session, err := h.services.Auth.Login(c.Request.Context(), req.Role, req.Login, req.Password)
	if err != nil {
		h.fail(c, "log in", err)
		return
	}
	ok(c, session)
}

// VisitorMonths handles GET /api/visitor/months
func (h *Handlers) VisitorMonths(c *gin.Context) {
	h.months(c, currentIdentity(c).ID, true)
}

// VisitorReport handles GET /api/visitor/reports/:month
func (h *Handlers) VisitorReport(c *gin.Context) {
	h.report(c, http.StatusOK, currentIdentity(c).ID, c.Param("month"))
}

// VisitorEnsureReport handles POST /api/visitor/reports/:month.
// The first visit of a month creates the report and closes the previous one.
func (h *Handlers) VisitorEnsureReport(c *gin.Context) {
	visitorID := currentIdentity(c).ID
	month := c.Param("month")

	created, err := h.services.Reports.EnsureReport(c.Request.Context(), visitorID, month)
	if err != nil {
		h.fail(c, "open report", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.report(c, status, visitorID, month)
}

// VisitorUpdateFlatRate handles PUT /api/visitor/reports/:month/flat-rate
func (h *Handlers) VisitorUpdateFlatRate(c *gin.Context) {
	h.updateFlatRate(c, entity.RoleVisitor, currentIdentity(c).ID)
}

// VisitorCreateItemized handles POST /api/visitor/reports/:month/itemized
func (h *Handlers) VisitorCreateItemized(c *gin.Context) {
	var req ItemizedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid itemized line"})
		return
	}

	line, err := h.services.Expenses.CreateItemizedLine(c.Request.Context(), currentIdentity(c).ID, c.Param("month"), service.ItemizedInput{
		Label:  req.Label,
		Date:   req.Date,
		Amount: req.Amount,
	})
	if err != nil {
		h.fail(c, "create itemized line", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toItemizedResponse(line)})
}

// VisitorDeleteItemized handles DELETE /api/visitor/reports/:month/itemized/:lineID
func (h *Handlers) VisitorDeleteItemized(c *gin.Context) {
	h.deleteItemized(c, entity.RoleVisitor, currentIdentity(c).ID)
}

// VisitorUploadJustification handles POST /api/visitor/reports/:month/justifications
func (h *Handlers) VisitorUploadJustification(c *gin.Context) {
	file, err := c.FormFile("justificatif")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "missing justificatif file"})
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "justificatif is too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, "read upload", err)
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		h.fail(c, "read upload", err)
		return
	}

	count, err := h.services.Justifications.Upload(c.Request.Context(), currentIdentity(c).ID, c.Param("month"), file.Filename, content)
	if err != nil {
		h.fail(c, "store justification", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"nb_justificatifs": count}})
}

// ListVisitors handles GET /api/accountant/visitors.
// With ?nom=&prenom= it resolves a single visitor id instead.
func (h *Handlers) ListVisitors(c *gin.Context) {
	lastName, hasLast := c.GetQuery("nom")
	firstName, hasFirst := c.GetQuery("prenom")
	if hasLast || hasFirst {
		id, err := h.services.Directory.FindVisitorID(c.Request.Context(), lastName, firstName)
		if err != nil {
			h.fail(c, "find visitor", err)
			return
		}
		ok(c, gin.H{"id": id})
		return
	}

	visitors, err := h.services.Directory.ListVisitors(c.Request.Context())
	if err != nil {
		h.fail(c, "list visitors", err)
		return
	}
	ok(c, visitors)
}

// GetVisitor handles GET /api/accountant/visitors/:id
func (h *Handlers) GetVisitor(c *gin.Context) {
	visitor, err := h.services.Directory.GetVisitor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get visitor", err)
		return
	}
	ok(c, visitor)
}

// FlatRateTypes handles GET /api/accountant/reference/flat-rates
func (h *Handlers) FlatRateTypes(c *gin.Context) {
	types, err := h.services.Directory.FlatRateTypes(c.Request.Context())
	if err != nil {
		h.fail(c, "list flat-rate types", err)
		return
	}
	ok(c, types)
}

// VehicleRates handles GET /api/accountant/reference/vehicles
func (h *Handlers) VehicleRates(c *gin.Context) {
	rates, err := h.services.Directory.VehicleRates(c.Request.Context())
	if err != nil {
		h.fail(c, "list vehicle rates", err)
		return
	}
	ok(c, rates)
}

// States handles GET /api/accountant/reference/states
func (h *Handlers) States(c *gin.Context) {
	states, err := h.services.Directory.States(c.Request.Context())
	if err != nil {
		h.fail(c, "list states", err)
		return
	}
	ok(c, states)
}

// VisitorMonthsForReview handles GET /api/accountant/visitors/:id/months.
// Only closed reports are listed unless ?etat=all.
func (h *Handlers) VisitorMonthsForReview(c *gin.Context) {
	h.months(c, c.Param("id"), c.Query("etat") == "all")
}

// ReviewReport handles GET /api/accountant/visitors/:id/reports/:month
func (h *Handlers) ReviewReport(c *gin.Context) {
	h.report(c, http.StatusOK, c.Param("id"), c.Param("month"))
}

// ReviewUpdateFlatRate handles PUT .../reports/:month/flat-rate
func (h *Handlers) ReviewUpdateFlatRate(c *gin.Context) {
	h.updateFlatRate(c, entity.RoleAccountant, c.Param("id"))
}

// ReviewUpdateItemized handles PUT .../reports/:month/itemized
func (h *Handlers) ReviewUpdateItemized(c *gin.Context) {
	var req ItemizedCorrectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid corrections"})
		return
	}

	err := h.services.Expenses.UpdateItemizedLines(c.Request.Context(), c.Param("id"), c.Param("month"), req.Labels, req.Amounts, req.Dates)
	if err != nil {
		h.fail(c, "update itemized lines", err)
		return
	}
	h.report(c, http.StatusOK, c.Param("id"), c.Param("month"))
}

// RejectItemized handles POST .../itemized/:lineID/reject
func (h *Handlers) RejectItemized(c *gin.Context) {
	id, good := h.lineID(c)
	if !good {
		return
	}

	line, err := h.services.Expenses.RejectItemizedLine(c.Request.Context(), currentIdentity(c).ID, c.Param("id"), c.Param("month"), id)
	if err != nil {
		h.fail(c, "reject itemized line", err)
		return
	}
	ok(c, toItemizedResponse(line))
}

// DeferItemized handles POST .../itemized/:lineID/defer
func (h *Handlers) DeferItemized(c *gin.Context) {
	id, good := h.lineID(c)
	if !good {
		return
	}

	next, err := h.services.Expenses.DeferItemizedLine(c.Request.Context(), currentIdentity(c).ID, c.Param("id"), c.Param("month"), id)
	if err != nil {
		h.fail(c, "defer itemized line", err)
		return
	}
	ok(c, gin.H{"id": id, "mois_suivant": next})
}

// ReviewDeleteItemized handles DELETE .../itemized/:lineID
func (h *Handlers) ReviewDeleteItemized(c *gin.Context) {
	h.deleteItemized(c, entity.RoleAccountant, c.Param("id"))
}

// UpdateJustificationCount handles PUT .../reports/:month/justifications
func (h *Handlers) UpdateJustificationCount(c *gin.Context) {
	var req JustificationCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "nb_justificatifs is required"})
		return
	}

	if err := h.services.Reports.UpdateJustificationCount(c.Request.Context(), c.Param("id"), c.Param("month"), *req.Count); err != nil {
		h.fail(c, "update justification count", err)
		return
	}
	ok(c, gin.H{"nb_justificatifs": *req.Count})
}

// ValidateReport handles POST .../reports/:month/validate.
// Without a montant the computed report total is validated.
func (h *Handlers) ValidateReport(c *gin.Context) {
	visitorID, month := c.Param("id"), c.Param("month")

	amount, good := h.optionalAmount(c)
	if !good {
		return
	}

	if err := h.services.Reports.Validate(c.Request.Context(), visitorID, month, amount, currentIdentity(c).ID); err != nil {
		h.fail(c, "validate report", err)
		return
	}
	h.report(c, http.StatusOK, visitorID, month)
}

// PayReport handles POST .../reports/:month/pay.
// Without a montant the validated amount is kept.
func (h *Handlers) PayReport(c *gin.Context) {
	visitorID, month := c.Param("id"), c.Param("month")

	amount, good := h.optionalAmount(c)
	if !good {
		return
	}

	if err := h.services.Reports.MarkInPayment(c.Request.Context(), visitorID, month, amount, currentIdentity(c).ID); err != nil {
		h.fail(c, "mark report in payment", err)
		return
	}
	h.report(c, http.StatusOK, visitorID, month)
}

// ExportReport handles GET .../reports/:month/export
func (h *Handlers) ExportReport(c *gin.Context) {
	visitorID, month := c.Param("id"), c.Param("month")

	var buf bytes.Buffer
	if err := h.services.Export.Export(c.Request.Context(), visitorID, month, &buf); err != nil {
		h.fail(c, "export report", err)
		return
	}

	filename := fmt.Sprintf("fiche_%s_%s.xlsx", visitorID, month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// PaymentBatch handles GET /api/accountant/payments/:month
func (h *Handlers) PaymentBatch(c *gin.Context) {
	visitors, err := h.services.Directory.VisitorsWithValidatedReport(c.Request.Context(), c.Param("month"))
	if err != nil {
		h.fail(c, "list validated reports", err)
		return
	}
	ok(c, visitors)
}

func (h *Handlers) months(c *gin.Context, visitorID string, all bool) {
	ctx := c.Request.Context()

	var (
		options []entity.MonthOption
		err     error
	)
	if all {
		options, err = h.services.Reports.AvailableMonths(ctx, visitorID)
	} else {
		options, err = h.services.Reports.ClosedMonths(ctx, visitorID)
	}
	if err != nil {
		h.fail(c, "list months", err)
		return
	}

	latest, err := h.services.Reports.LatestMonth(ctx, visitorID)
	if err != nil {
		h.fail(c, "find latest month", err)
		return
	}
	ok(c, gin.H{"dernier_mois": latest, "mois": options})
}

func (h *Handlers) report(c *gin.Context, status int, visitorID, month string) {
	ctx := c.Request.Context()

	report, err := h.services.Reports.GetReport(ctx, visitorID, month)
	if err != nil {
		h.fail(c, "load report", err)
		return
	}
	flat, err := h.services.Expenses.FlatRateLines(ctx, visitorID, month)
	if err != nil {
		h.fail(c, "load flat-rate lines", err)
		return
	}
	itemized, err := h.services.Expenses.ItemizedLines(ctx, visitorID, month)
	if err != nil {
		h.fail(c, "load itemized lines", err)
		return
	}
	total, err := h.services.Reports.ComputeTotal(ctx, visitorID, month)
	if err != nil {
		h.fail(c, "compute total", err)
		return
	}

	c.JSON(status, Response{Success: true, Data: toReportResponse(report, flat, itemized, total)})
}

func (h *Handlers) updateFlatRate(c *gin.Context, role, visitorID string) {
	var req QuantitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "quantites is required"})
		return
	}

	month := c.Param("month")
	if err := h.services.Expenses.UpdateFlatRateQuantities(c.Request.Context(), role, visitorID, month, req.Quantities); err != nil {
		h.fail(c, "update flat-rate quantities", err)
		return
	}
	h.report(c, http.StatusOK, visitorID, month)
}

func (h *Handlers) deleteItemized(c *gin.Context, role, visitorID string) {
	id, good := h.lineID(c)
	if !good {
		return
	}

	err := h.services.Expenses.DeleteItemizedLine(c.Request.Context(), role, currentIdentity(c).ID, visitorID, c.Param("month"), id)
	if err != nil {
		h.fail(c, "delete itemized line", err)
		return
	}
	ok(c, gin.H{"id": id})
}

func (h *Handlers) lineID(c *gin.Context) (int64, bool) {
	raw := c.Param("lineID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid line ID", "id", raw)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid line ID"})
		return 0, false
	}
	return id, true
}

// optionalAmount reads {"montant": ...}; an empty body yields nil
func (h *Handlers) optionalAmount(c *gin.Context) (*decimal.Decimal, bool) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid montant"})
		return nil, false
	}
	return req.Amount, true
}
