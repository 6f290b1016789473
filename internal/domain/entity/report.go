package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseReport is one visitor's monthly expense submission (table fichefrais)
type ExpenseReport struct {
	VisitorID          string          `json:"id_visiteur"`
	Month              string          `json:"mois"`
	StateID            string          `json:"id_etat"`
	StateLabel         string          `json:"lib_etat,omitempty"`
	ModifiedAt         time.Time       `json:"date_modif"`
	JustificationCount int             `json:"nb_justificatifs"`
	ValidatedAmount    decimal.Decimal `json:"montant_valide"`
}

// FlatRateLine is a quantity of one catalog expense type on a report
type FlatRateLine struct {
	VisitorID  string `json:"id_visiteur"`
	Month      string `json:"mois"`
	FlatRateID string `json:"id_frais"`
	Quantity   int    `json:"quantite"`
}

// FlatRateDetail is a flat-rate line joined with its catalog entry and the
// per-km price of the visitor's vehicle
type FlatRateDetail struct {
	FlatRateID  string          `json:"id_frais"`
	Label       string          `json:"libelle"`
	Quantity    int             `json:"quantite"`
	UnitAmount  decimal.Decimal `json:"prix"`
	VehicleRate decimal.Decimal `json:"frais_km"`
}

// UnitPrice is the catalog amount, or the vehicle rate for mileage
func (d FlatRateDetail) UnitPrice() decimal.Decimal {
	if d.FlatRateID == FlatRateMileage && !d.VehicleRate.IsZero() {
		return d.VehicleRate
	}
	return d.UnitAmount
}

// LineTotal prices the line at UnitPrice
func (d FlatRateDetail) LineTotal() decimal.Decimal {
	return d.UnitPrice().Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// ItemizedLine is a free-form one-off expense (table lignefraishorsforfait)
type ItemizedLine struct {
	ID        int64           `json:"id"`
	VisitorID string          `json:"id_visiteur"`
	Month     string          `json:"mois"`
	Label     string          `json:"libelle"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"montant"`
}

// IsRejected reports whether an accountant already refused the line
func (l *ItemizedLine) IsRejected() bool {
	return strings.HasPrefix(l.Label, RejectPrefix)
}

// ItemizedUpdate carries the accountant's corrections for one itemized line
type ItemizedUpdate struct {
	Label  string
	Amount decimal.Decimal
	Date   time.Time
}

// MonthOption is one entry of a month picker
type MonthOption struct {
	Month string `json:"mois"`
	Year  string `json:"numAnnee"`
	Num   string `json:"numMois"`
}
