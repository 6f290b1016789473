package entity

// Report state codes stored in fichefrais.idetat
const (
	StateOpen      = "CR" // being entered by the visitor
	StateClosed    = "CL" // superseded by a newer month, awaiting review
	StateValidated = "VA" // validated by an accountant
	StateInPayment = "MP" // submitted for payment
)

// Roles map to the identity tables
const (
	RoleVisitor    = "visiteur"
	RoleAccountant = "comptable"
)

// Flat-rate expense type ids seeded in fraisforfait
const (
	FlatRateStage   = "ETP" // forfait etape
	FlatRateMileage = "KM"  // frais kilometrique, priced at the visitor's vehicle rate
	FlatRateNight   = "NUI" // nuitee hotel
	FlatRateMeal    = "REP" // repas restaurant
)

// RejectPrefix marks an itemized line refused by an accountant
const RejectPrefix = "REFUSE "

// MaxLabelLength is the width of lignefraishorsforfait.libelle
const MaxLabelLength = 100
