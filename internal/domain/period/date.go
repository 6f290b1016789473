package period

import (
	"fmt"
	"time"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

const (
	// FrenchLayout is the dd/mm/yyyy form used on screens
	FrenchLayout = "02/01/2006"

	// ISOLayout is the form stored in DATE columns
	ISOLayout = "2006-01-02"
)

// ParseFrenchDate parses a dd/mm/yyyy date
func ParseFrenchDate(s string) (time.Time, error) {
	t, err := time.Parse(FrenchLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must have the form jj/mm/aaaa", entity.ErrValidation, s)
	}
	return t, nil
}

// FormatFrenchDate renders t as dd/mm/yyyy
func FormatFrenchDate(t time.Time) string {
	return t.Format(FrenchLayout)
}

// FrenchToISO converts dd/mm/yyyy to yyyy-mm-dd
func FrenchToISO(s string) (string, error) {
	t, err := ParseFrenchDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(ISOLayout), nil
}

// ISOToFrench converts yyyy-mm-dd to dd/mm/yyyy
func ISOToFrench(s string) (string, error) {
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: date %q must have the form aaaa-mm-jj", entity.ErrValidation, s)
	}
	return FormatFrenchDate(t), nil
}
