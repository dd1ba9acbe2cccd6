package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"signalbot/internal/signal"
)

const (
	LinkIdentity = "identity"
	LinkLogistic = "logistic"
)

// LinearModel is a pre-trained model exported to YAML:
//
//	name: rf-distilled
//	version: 3
//	link: logistic
//	cutoff: 0.5
//	intercept: -1.2
//	weights: {rsi: -0.04, ema_diff: 8.5, macd_diff: 0.9, volume_relative: 0.3, bb_position: -1.1}
//
// With the identity link the raw linear output is returned (regression, in
// percentage points). With the logistic link the output is a 0/1 label.
type LinearModel struct {
	Name      string             `yaml:"name"`
	Version   int                `yaml:"version"`
	Link      string             `yaml:"link"`
	Cutoff    float64            `yaml:"cutoff"`
	Intercept float64            `yaml:"intercept"`
	Weights   map[string]float64 `yaml:"weights"`
}

func (m LinearModel) Predict(v signal.FeatureVector) float64 {
	z := m.Intercept
	values := v.Map()
	for name, w := range m.Weights {
		z += w * values[name]
	}
	if m.Link != LinkLogistic {
		return z
	}
	prob := 1 / (1 + math.Exp(-z))
	if prob >= m.Cutoff {
		return 1
	}
	return 0
}

var modelSchemaDoc = map[string]any{
	"type":     "object",
	"required": []any{"name", "weights"},
	"properties": map[string]any{
		"name":      map[string]any{"type": "string", "minLength": 1},
		"version":   map[string]any{"type": "integer", "minimum": 0},
		"link":      map[string]any{"enum": []any{LinkIdentity, LinkLogistic}},
		"cutoff":    map[string]any{"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1},
		"intercept": map[string]any{"type": "number"},
		"weights": map[string]any{
			"type":                 "object",
			"minProperties":        1,
			"additionalProperties": false,
			"properties":           weightProperties(),
		},
	},
	"additionalProperties": false,
}

func weightProperties() map[string]any {
	out := make(map[string]any, len(signal.FeatureNames))
	for _, name := range signal.FeatureNames {
		out[name] = map[string]any{"type": "number"}
	}
	return out
}

var modelSchema = mustCompileSchema(modelSchemaDoc)

func mustCompileSchema(doc map[string]any) *jsonschema.Schema {
	s, err := compileSchema(doc)
	if err != nil {
		panic(fmt.Sprintf("scoring: model schema: %v", err))
	}
	return s
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("model.schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("model.schema.json")
}

// LoadModel reads, schema-validates and decodes a model file.
func LoadModel(path string) (LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return LinearModel{}, fmt.Errorf("read model failed: %w", err)
	}
	return ParseModel(raw)
}

func ParseModel(raw []byte) (LinearModel, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return LinearModel{}, fmt.Errorf("parse model failed: %w", err)
	}
	// round-trip through JSON so the validator sees plain JSON types
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return LinearModel{}, fmt.Errorf("parse model failed: %w", err)
	}
	var generic any
	if err := json.Unmarshal(asJSON, &generic); err != nil {
		return LinearModel{}, fmt.Errorf("parse model failed: %w", err)
	}
	if err := modelSchema.Validate(generic); err != nil {
		return LinearModel{}, fmt.Errorf("model does not match schema: %w", err)
	}

	var m LinearModel
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return LinearModel{}, fmt.Errorf("decode model failed: %w", err)
	}
	if m.Link == "" {
		m.Link = LinkIdentity
	}
	if m.Link == LinkLogistic && m.Cutoff == 0 {
		m.Cutoff = 0.5
	}
	return m, nil
}
