package model

import "strings"

// Address is the five-field billing address used for card-not-present
// cross-checks. It is embedded into Account and carried on authorization
// requests.
type Address struct {
	Street     string `json:"street" gorm:"size:255"`
	City       string `json:"city" gorm:"size:100"`
	State      string `json:"state" gorm:"size:100"`
	PostalCode string `json:"postal_code" gorm:"size:20"`
	Country    string `json:"country" gorm:"size:2"`
}

// Equal reports field-by-field structural equality. Case sensitivity is a
// policy decision supplied by the caller; leading/trailing whitespace never
// counts either way.
func (a Address) Equal(other Address, caseSensitive bool) bool {
	eq := func(x, y string) bool {
		x, y = strings.TrimSpace(x), strings.TrimSpace(y)
		if caseSensitive {
			return x == y
		}
		return strings.EqualFold(x, y)
	}
	return eq(a.Street, other.Street) &&
		eq(a.City, other.City) &&
		eq(a.State, other.State) &&
		eq(a.PostalCode, other.PostalCode) &&
		eq(a.Country, other.Country)
}

// IsZero reports whether no field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}
