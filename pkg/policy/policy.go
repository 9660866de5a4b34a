// Package policy provides an embedded authority-decision provider that
// evaluates a local YAML rule document: first matching rule wins, anything
// unmatched is denied by default.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// documentSchema constrains policy documents before any rule is compiled.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "rules"],
  "properties": {
    "version": {"const": 1},
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "effect", "actions"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "effect": {"enum": ["allow", "deny"]},
          "actions": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
          "principals": {"type": "array", "items": {"type": "string"}},
          "tenants": {"type": "array", "items": {"type": "string"}},
          "condition": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// Document is a versioned set of ordered rules.
type Document struct {
	Version int    `yaml:"version" json:"version"`
	Rules   []Rule `yaml:"rules" json:"rules"`
}

// Rule matches a request by action (and optionally principal, tenant, and a
// CEL condition) and applies its effect. Empty principal/tenant lists match
// anything; the action list supports the "*" wildcard entry.
type Rule struct {
	ID         string   `yaml:"id" json:"id"`
	Effect     string   `yaml:"effect" json:"effect"`
	Actions    []string `yaml:"actions" json:"actions"`
	Principals []string `yaml:"principals,omitempty" json:"principals,omitempty"`
	Tenants    []string `yaml:"tenants,omitempty" json:"tenants,omitempty"`
	Condition  string   `yaml:"condition,omitempty" json:"condition,omitempty"`
}

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://predicate.schemas.local/policy-document.schema.json"
	if err := c.AddResource(url, strings.NewReader(documentSchema)); err != nil {
		panic(fmt.Sprintf("policy: schema resource: %v", err))
	}
	schema, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("policy: schema compile: %v", err))
	}
	return schema
}

// Load reads and parses a policy document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse validates raw YAML against the document schema and decodes it.
func Parse(data []byte) (*Document, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("document not JSON-representable: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(raw, &jsonDoc); err != nil {
		return nil, fmt.Errorf("document decode: %w", err)
	}

	if err := compiledSchema.Validate(jsonDoc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return &doc, nil
}
