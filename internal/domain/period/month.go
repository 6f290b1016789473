// Package period handles the YYYYMM month keys used to identify expense reports
// and the dd/mm/yyyy dates shown to users.
package period

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

// Month is a report period in YYYYMM form
type Month string

// lastMonth is the latest month a four-digit year can express
const lastMonth Month = "999912"

// ParseMonth validates a YYYYMM key
func ParseMonth(s string) (Month, error) {
	if len(s) != 6 {
		return "", fmt.Errorf("%w: month %q must have the form YYYYMM", entity.ErrValidation, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: month %q must be numeric", entity.ErrValidation, s)
		}
	}
	num, _ := strconv.Atoi(s[4:])
	if num < 1 || num > 12 {
		return "", fmt.Errorf("%w: month number %02d out of range in %q", entity.ErrValidation, num, s)
	}
	return Month(s), nil
}

// FromTime returns the month containing t
func FromTime(t time.Time) Month {
	return Month(t.Format("200601"))
}

// Year returns the four-digit year part
func (m Month) Year() string {
	return string(m)[:4]
}

// Num returns the two-digit month part
func (m Month) Num() string {
	return string(m)[4:]
}

// String returns the YYYYMM key
func (m Month) String() string {
	return string(m)
}

// Next returns the following month, rolling December into January of the next
// year. It must not be called on the last representable month.
func (m Month) Next() Month {
	year, _ := strconv.Atoi(m.Year())
	num, _ := strconv.Atoi(m.Num())
	if num == 12 {
		year++
		num = 1
	} else {
		num++
	}
	return Month(fmt.Sprintf("%04d%02d", year, num))
}

// Option decomposes the key for a month picker
func (m Month) Option() entity.MonthOption {
	return entity.MonthOption{Month: m.String(), Year: m.Year(), Num: m.Num()}
}

// NextMonth validates key and returns the month after it
func NextMonth(key string) (string, error) {
	m, err := ParseMonth(key)
	if err != nil {
		return "", err
	}
	if m == lastMonth {
		return "", fmt.Errorf("%w: no month after %s", entity.ErrValidation, key)
	}
	return m.Next().String(), nil
}
