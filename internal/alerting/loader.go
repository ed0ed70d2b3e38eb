package alerting

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRulesFromFile loads alert rules from a YAML file.
func LoadRulesFromFile(path string) ([]*Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	return LoadRules(f)
}

// LoadRules loads alert rules from a reader.
// An empty document yields no rules.
func LoadRules(r io.Reader) ([]*Rule, error) {
	var config RulesConfig
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&config); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	return validateRules(config.Rules)
}

// LoadRulesFromBytes loads alert rules from YAML bytes.
func LoadRulesFromBytes(data []byte) ([]*Rule, error) {
	var config RulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	return validateRules(config.Rules)
}

func validateRules(rules []*Rule) ([]*Rule, error) {
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		if rule == nil {
			return nil, fmt.Errorf("invalid rule at index %d: empty", i)
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate rule id %q at index %d", rule.ID, i)
		}
		seen[rule.ID] = true
	}
	return rules, nil
}
