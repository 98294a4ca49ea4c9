package httpfixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadFixturesFromFile loads fixtures from a JSON or YAML file
func LoadFixturesFromFile(path string) (*RuleBasedProvider, error) {
	rules, err := readRules(path)
	if err != nil {
		return nil, err
	}
	return NewRuleBasedProvider(rules), nil
}

// LoadFixturesFromDir loads all .json, .yaml and .yml files in dir, in
// directory order. Other files are ignored.
func LoadFixturesFromDir(dir string) (*RuleBasedProvider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}

	var allRules []HTTPFixtureRule
	for _, entry := range entries {
		if entry.IsDir() || !isFixtureFile(entry.Name()) {
			continue
		}
		rules, err := readRules(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		allRules = append(allRules, rules...)
	}

	return NewRuleBasedProvider(allRules), nil
}

// Load loads path as a directory of fixture files or a single file
func Load(path string) (*RuleBasedProvider, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat fixtures: %w", err)
	}
	if info.IsDir() {
		return LoadFixturesFromDir(path)
	}
	return LoadFixturesFromFile(path)
}

func readRules(path string) ([]HTTPFixtureRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var fixtureSet FixtureSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fixtureSet); err != nil {
			return nil, fmt.Errorf("failed to parse YAML fixtures in %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &fixtureSet); err != nil {
			return nil, fmt.Errorf("failed to parse JSON fixtures in %s: %w", path, err)
		}
	}
	return fixtureSet.Rules, nil
}

func isFixtureFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
