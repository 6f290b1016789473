package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
	"github.com/gsblab/gsb-frais/internal/domain/period"
	"github.com/gsblab/gsb-frais/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// ReportResponse is a report with its lines, as shown on the entry and review screens
type ReportResponse struct {
	VisitorID          string                 `json:"id_visiteur"`
	Month              string                 `json:"mois"`
	Year               string                 `json:"numAnnee"`
	MonthNumber        string                 `json:"numMois"`
	StateID            string                 `json:"id_etat"`
	StateLabel         string                 `json:"lib_etat"`
	ModifiedAt         string                 `json:"date_modif,omitempty"`
	JustificationCount int                    `json:"nb_justificatifs"`
	ValidatedAmount    string                 `json:"montant_valide"`
	FlatRates          []FlatRateLineResponse `json:"frais_forfait"`
	Itemized           []ItemizedLineResponse `json:"frais_hors_forfait"`
	Total              string                 `json:"total"`
}

// FlatRateLineResponse is one flat-rate line with its pricing
type FlatRateLineResponse struct {
	FlatRateID string `json:"id_frais"`
	Label      string `json:"libelle"`
	Quantity   int    `json:"quantite"`
	UnitPrice  string `json:"prix_unitaire"`
	Total      string `json:"total"`
}

// ItemizedLineResponse is one itemized line with a dd/mm/yyyy date
type ItemizedLineResponse struct {
	ID       int64  `json:"id"`
	Month    string `json:"mois"`
	Label    string `json:"libelle"`
	Date     string `json:"date"`
	Amount   string `json:"montant"`
	Rejected bool   `json:"refuse"`
}

func toReportResponse(report *entity.ExpenseReport, flat []entity.FlatRateDetail, itemized []*entity.ItemizedLine, total decimal.Decimal) ReportResponse {
	month := period.Month(report.Month)
	resp := ReportResponse{
		VisitorID:          report.VisitorID,
		Month:              report.Month,
		Year:               month.Year(),
		MonthNumber:        month.Num(),
		StateID:            report.StateID,
		StateLabel:         report.StateLabel,
		JustificationCount: report.JustificationCount,
		ValidatedAmount:    report.ValidatedAmount.StringFixed(2),
		FlatRates:          make([]FlatRateLineResponse, 0, len(flat)),
		Itemized:           make([]ItemizedLineResponse, 0, len(itemized)),
		Total:              total.StringFixed(2),
	}
	if !report.ModifiedAt.IsZero() {
		resp.ModifiedAt = period.FormatFrenchDate(report.ModifiedAt)
	}
	for _, d := range flat {
		resp.FlatRates = append(resp.FlatRates, FlatRateLineResponse{
			FlatRateID: d.FlatRateID,
			Label:      d.Label,
			Quantity:   d.Quantity,
			UnitPrice:  d.UnitPrice().StringFixed(2),
			Total:      d.LineTotal().StringFixed(2),
		})
	}
	for _, l := range itemized {
		resp.Itemized = append(resp.Itemized, toItemizedResponse(l))
	}
	return resp
}

func toItemizedResponse(l *entity.ItemizedLine) ItemizedLineResponse {
	return ItemizedLineResponse{
		ID:       l.ID,
		Month:    l.Month,
		Label:    l.Label,
		Date:     period.FormatFrenchDate(l.Date),
		Amount:   l.Amount.StringFixed(2),
		Rejected: l.IsRejected(),
	}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrReportLocked), errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail logs the error and writes it; persistence details are not exposed
func (h *Handlers) fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "failed to " + action
	}
	h.logger.Error("Request failed",
		"action", action,
		"path", c.Request.URL.Path,
		"status", status,
		"error", err,
	)
	c.JSON(status, Response{Success: false, Error: msg})
}

func healthResponse(healthy bool, components map[string]string) HealthResponse {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    "1.0.0",
		Components: components,
	}
}
