package entity

import "github.com/shopspring/decimal"

// FlatRateType is a catalog entry of fraisforfait
type FlatRateType struct {
	ID         string          `json:"id"`
	Label      string          `json:"libelle"`
	UnitAmount decimal.Decimal `json:"montant"`
}

// VehicleRate is the per-km price for a vehicle category (table fraiskm)
type VehicleRate struct {
	ID    string          `json:"id"`
	Price decimal.Decimal `json:"prix"`
}

// State is a report state label (table etat)
type State struct {
	ID    string `json:"id"`
	Label string `json:"libelle"`
}
