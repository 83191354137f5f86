package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmitRequest_Validate(t *testing.T) {
	valid := SubmitRequest{CompanyName: "Acme", Query: "compare pricing", Competitors: []string{"Beta"}}

	tests := []struct {
		name    string
		mutate  func(r *SubmitRequest)
		wantErr string
	}{
		{"valid", func(*SubmitRequest) {}, ""},
		{"short query", func(r *SubmitRequest) { r.Query = "ab" }, "query"},
		{"long query", func(r *SubmitRequest) { r.Query = strings.Repeat("q", 501) }, "query"},
		{"blank company", func(r *SubmitRequest) { r.CompanyName = "   " }, "company_name"},
		{"long company", func(r *SubmitRequest) { r.CompanyName = strings.Repeat("c", 101) }, "company_name"},
		{"no competitors", func(r *SubmitRequest) { r.Competitors = nil }, "competitors required"},
		{"too many competitors", func(r *SubmitRequest) {
			r.Competitors = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		}, "at most"},
		{"auto discovery needs no competitors", func(r *SubmitRequest) { r.Competitors = nil; r.UseAutoDiscovery = true }, ""},
		{"max competitors out of range", func(r *SubmitRequest) { r.UseAutoDiscovery = true; r.MaxCompetitors = 11 }, "max_competitors"},
		{"bad freshness", func(r *SubmitRequest) { r.Freshness = "2weeks" }, "freshness"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.Competitors = append([]string(nil), valid.Competitors...)
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDistinctNames(t *testing.T) {
	got := DistinctNames([]string{" Beta ", "beta", "", "Gamma", "GAMMA", "Straße", "STRASSE"})
	assert.Equal(t, []string{"Beta", "Gamma", "Straße"}, got)
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("Acme ", "ACME"))
	assert.False(t, SameName("Acme", "Acme Corp"))
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, AnalysisModePremium, ModeFor(true))
	assert.Equal(t, AnalysisModeStandard, ModeFor(false))
}
