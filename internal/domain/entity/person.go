package entity

// Visitor represents a field sales visitor (table visiteur)
type Visitor struct {
	ID           string `json:"id"`
	LastName     string `json:"nom"`
	FirstName    string `json:"prenom"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"`
	VehicleID    string `json:"id_vehicule"`
}

// FullName returns "nom prenom" as printed on payment lists
func (v *Visitor) FullName() string {
	return v.LastName + " " + v.FirstName
}

// Accountant represents a reviewer (table comptable)
type Accountant struct {
	ID           string `json:"id"`
	LastName     string `json:"nom"`
	FirstName    string `json:"prenom"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"`
}

// Identity is the authenticated principal returned by a successful login
type Identity struct {
	ID        string `json:"id"`
	LastName  string `json:"nom"`
	FirstName string `json:"prenom"`
	Role      string `json:"role"`
}

// Credential is the stored hash for a login in one of the identity tables
type Credential struct {
	ID           string
	LastName     string
	FirstName    string
	PasswordHash string
}

// VisitorName is a row of the accountant's payment batch screen
type VisitorName struct {
	VisitorID string `json:"visiteur"`
	FullName  string `json:"nomvisiteur"`
}
