package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// RuleEngine attaches runbook recommendations to alerts from a YAML rule pack.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. Empty fields match anything.
type RuleMatch struct {
	Type           string   `yaml:"type"`
	SourceContains []string `yaml:"source_contains"`
	MinSeverity    string   `yaml:"min_severity"`
	ErrorTypes     []string `yaml:"error_types"`
	Trend          string   `yaml:"trend"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. If path is empty or the
// file does not exist, returns a nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("rule pack loaded", slog.String("path", path), slog.Int("rules", len(cfg.Rules)))
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Recommend returns the de-duplicated recommendations of every rule matching the alert.
func (e *RuleEngine) Recommend(alert models.Alert) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		if rule.Match.Type != "" && !strings.EqualFold(rule.Match.Type, string(alert.Type)) {
			continue
		}
		if len(rule.Match.SourceContains) > 0 && !containsAny(alert.Source, rule.Match.SourceContains) {
			continue
		}
		if rule.Match.MinSeverity != "" && !alert.Severity.AtLeast(models.Severity(strings.ToUpper(rule.Match.MinSeverity))) {
			continue
		}
		if len(rule.Match.ErrorTypes) > 0 && !hasErrorType(alert, rule.Match.ErrorTypes) {
			continue
		}
		if rule.Match.Trend != "" && !strings.EqualFold(rule.Match.Trend, detailString(alert, "trend")) {
			continue
		}
		matched = appendUnique(matched, rule.Recommendations...)
	}
	return matched
}

func containsAny(value string, keywords []string) bool {
	value = strings.ToLower(value)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(value, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func hasErrorType(alert models.Alert, wanted []string) bool {
	types, ok := alert.Details["error_types"].(map[string]int)
	if !ok {
		return false
	}
	for name := range types {
		for _, w := range wanted {
			if strings.EqualFold(name, w) {
				return true
			}
		}
	}
	return false
}

func detailString(alert models.Alert, key string) string {
	switch v := alert.Details[key].(type) {
	case string:
		return v
	case models.Trend:
		return string(v)
	default:
		return ""
	}
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
