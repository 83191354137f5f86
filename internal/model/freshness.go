package model

import (
	"github.com/rotisserie/eris"
)

// Freshness is the time window applied to every search call.
type Freshness string

const (
	FreshnessAnytime     Freshness = "anytime"
	FreshnessOneMonth    Freshness = "1month"
	FreshnessThreeMonths Freshness = "3months"
	FreshnessSixMonths   Freshness = "6months"
	FreshnessOneYear     Freshness = "1year"
)

var freshnessDays = map[Freshness]int{
	FreshnessOneMonth:    30,
	FreshnessThreeMonths: 90,
	FreshnessSixMonths:   180,
	FreshnessOneYear:     365,
}

// Days returns the search window in days. ok is false for anytime.
func (f Freshness) Days() (days int, ok bool) {
	days, ok = freshnessDays[f]
	return days, ok
}

// Valid reports whether f is a known freshness value.
func (f Freshness) Valid() bool {
	if f == FreshnessAnytime {
		return true
	}
	_, ok := freshnessDays[f]
	return ok
}

// ParseFreshness validates s, treating empty as anytime.
func ParseFreshness(s string) (Freshness, error) {
	if s == "" {
		return FreshnessAnytime, nil
	}
	f := Freshness(s)
	if !f.Valid() {
		return "", eris.Errorf("model: unknown freshness %q", s)
	}
	return f, nil
}
