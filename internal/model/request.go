package model

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// Submission limits.
const (
	MinQueryLen           = 3
	MaxQueryLen           = 500
	MaxCompanyLen         = 100
	MaxCompetitors        = 10
	DefaultMaxCompetitors = 5
)

// SubmitRequest is the job submission contract consumed from the API layer.
type SubmitRequest struct {
	CompanyName      string    `json:"company_name"`
	Query            string    `json:"query"`
	Competitors      []string  `json:"competitors"`
	UseAutoDiscovery bool      `json:"use_auto_discovery"`
	MaxCompetitors   int       `json:"max_competitors"`
	Freshness        Freshness `json:"freshness"`
	Premium          bool      `json:"premium"`
}

// Validate checks field bounds after normalization.
func (r SubmitRequest) Validate() error {
	n := r.normalized()

	if l := utf8.RuneCountInString(n.Query); l < MinQueryLen || l > MaxQueryLen {
		return eris.Errorf("model: query must be %d-%d characters", MinQueryLen, MaxQueryLen)
	}
	if l := utf8.RuneCountInString(n.CompanyName); l < 1 || l > MaxCompanyLen {
		return eris.Errorf("model: company_name must be 1-%d characters", MaxCompanyLen)
	}
	if !n.Freshness.Valid() {
		return eris.Errorf("model: unknown freshness %q", r.Freshness)
	}
	if n.MaxCompetitors < 1 || n.MaxCompetitors > MaxCompetitors {
		return eris.Errorf("model: max_competitors must be 1-%d", MaxCompetitors)
	}
	if !n.UseAutoDiscovery {
		if len(n.Competitors) == 0 {
			return eris.New("model: competitors required when auto-discovery is off")
		}
		if len(n.Competitors) > MaxCompetitors {
			return eris.Errorf("model: at most %d competitors", MaxCompetitors)
		}
	}
	return nil
}

func (r SubmitRequest) normalized() SubmitRequest {
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.Query = strings.TrimSpace(r.Query)
	r.Competitors = DistinctNames(r.Competitors)
	if r.UseAutoDiscovery {
		r.Competitors = []string{}
	}
	if r.Freshness == "" {
		r.Freshness = FreshnessAnytime
	}
	if r.MaxCompetitors == 0 {
		r.MaxCompetitors = DefaultMaxCompetitors
	}
	return r
}

// DistinctNames trims names and drops blanks and case-insensitive duplicates,
// keeping first occurrences in order.
func DistinctNames(names []string) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := fold.String(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// SameName reports whether a and b name the same company, ignoring case.
func SameName(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
