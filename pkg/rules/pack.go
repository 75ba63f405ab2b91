package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//ErrInvalidPack is returned when a rule pack does not conform to the rule pack schema
var ErrInvalidPack = errors.New("invalid rule pack")

//Pack is a YAML document of additional rules
type Pack struct {
	Name  string       `yaml:"name" json:"name"`
	Rules []Definition `yaml:"rules" json:"rules"`
}

const packSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["rules"],
  "properties": {
    "name": {"type": "string"},
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "pattern", "category", "severity"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "pattern": "^[a-z0-9][a-z0-9._-]*$"},
          "pattern": {"type": "string", "minLength": 1},
          "literal": {"type": "boolean"},
          "category": {"enum": [
            "shell_execution", "code_injection", "credential_access", "network_suspicious",
            "crypto_mining", "obfuscation", "sensitive_path", "destructive_fs",
            "network_server", "env_access", "malicious_known", "data_exfiltration"
          ]},
          "severity": {"enum": ["critical", "high", "medium", "low"]},
          "message": {"type": "string"},
          "skip_if_comment": {"type": "boolean"},
          "contextual": {"type": "boolean"}
        }
      }
    }
  }
}`

var packSchemaLoader = gojsonschema.NewStringLoader(packSchema)

//ParsePack validates YAML rule pack content against the pack schema and compiles its rules
func ParsePack(data []byte) ([]*Rule, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPack, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidPack)
	}
	result, err := gojsonschema.Validate(packSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPack, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPack, strings.Join(problems, "; "))
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPack, err)
	}
	out := make([]*Rule, 0, len(pack.Rules))
	for _, def := range pack.Rules {
		r, err := Compile(def)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

//LoadPacks reads rule pack files and appends their rules to db, in the order given
func LoadPacks(db *Database, paths ...string) (*Database, error) {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading rule pack %s: %w", p, err)
		}
		extra, err := ParsePack(data)
		if err != nil {
			return nil, fmt.Errorf("rule pack %s: %w", p, err)
		}
		if db, err = db.Extend(extra...); err != nil {
			return nil, fmt.Errorf("rule pack %s: %w", p, err)
		}
	}
	return db, nil
}
