// Package chart validates the chart data derived from an analysis report and
// renders it as a spreadsheet.
package chart

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/competitive-intel/internal/model"
)

//go:embed schema.yaml
var schemaYAML []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Schema returns the compiled chart data schema.
func Schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var doc map[string]any
		if err := yaml.Unmarshal(schemaYAML, &doc); err != nil {
			compileErr = eris.Wrap(err, "chart: parse schema yaml")
			return
		}
		b, err := json.Marshal(doc)
		if err != nil {
			compileErr = eris.Wrap(err, "chart: marshal schema")
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("chart.json", bytes.NewReader(b)); err != nil {
			compileErr = eris.Wrap(err, "chart: add schema resource")
			return
		}
		compiled, compileErr = compiler.Compile("chart.json")
		if compileErr != nil {
			compileErr = eris.Wrap(compileErr, "chart: compile schema")
		}
	})
	return compiled, compileErr
}

// Validate parses raw JSON chart data and checks it against the schema.
func Validate(raw []byte) (*model.ChartData, error) {
	schema, err := Schema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "chart: data is not valid JSON")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, eris.Wrap(err, "chart: data does not match schema")
	}

	var data model.ChartData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, eris.Wrap(err, "chart: decode data")
	}
	return &data, nil
}
