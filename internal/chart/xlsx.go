package chart

import (
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/competitive-intel/internal/model"
)

// WriteXLSX writes a workbook with one sheet per chart series. Each sheet has
// a header row of the record keys, label column first.
func WriteXLSX(w io.Writer, job *model.Job) error {
	if job == nil || job.StageOutputs.Analysis == nil || job.StageOutputs.Analysis.ChartData == nil {
		return eris.New("chart: job has no chart data")
	}
	data := job.StageOutputs.Analysis.ChartData

	f := xlsx.NewFile()
	series := []struct {
		name    string
		records []model.ChartRecord
	}{
		{"Pricing", data.Pricing},
		{"Features", data.Features},
		{"Risks", data.Risks},
	}
	for _, s := range series {
		sheet, err := f.AddSheet(s.name)
		if err != nil {
			return eris.Wrapf(err, "chart: add sheet %s", s.name)
		}
		writeRecords(sheet, s.records, job.CompanyName, job.Competitors)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "chart: write workbook")
	}
	return nil
}

func writeRecords(sheet *xlsx.Sheet, records []model.ChartRecord, company string, competitors []string) {
	cols := columns(records, company, competitors)

	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		for _, c := range cols {
			cell := row.AddCell()
			switch v := rec[c].(type) {
			case float64:
				cell.SetFloat(v)
			case string:
				cell.SetString(v)
			case nil:
			default:
				cell.SetValue(v)
			}
		}
	}
}

// columns orders keys as: string-valued label keys, then the company, then
// competitors in job order, then any remaining keys alphabetically.
func columns(records []model.ChartRecord, company string, competitors []string) []string {
	seen := make(map[string]bool)
	var labels, rest []string
	for _, rec := range records {
		for k, v := range rec {
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, ok := v.(string); ok {
				labels = append(labels, k)
			} else {
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(labels)

	ordered := append([]string(nil), labels...)
	placed := make(map[string]bool)
	for _, name := range append([]string{company}, competitors...) {
		if seen[name] && !placed[name] && !contains(labels, name) {
			ordered = append(ordered, name)
			placed[name] = true
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if !placed[k] {
			ordered = append(ordered, k)
		}
	}
	return ordered
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
