// Package plan loads, validates and normalizes YAML task plans.
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/me/ticksched/pkg/model"
)

// Document is the top-level YAML layout of a plan file.
type Document struct {
	Plan model.Plan `yaml:"plan"`
}

// Load reads, validates and normalizes the plan at path.
func Load(path string) (*model.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan document, then validates and normalizes it.
func Parse(data []byte) (*model.Plan, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := Validate(&doc.Plan); err != nil {
		return nil, err
	}
	Normalize(&doc.Plan)
	return &doc.Plan, nil
}

// Marshal encodes p as a plan document.
func Marshal(p *model.Plan) ([]byte, error) {
	return yaml.Marshal(Document{Plan: *p})
}
