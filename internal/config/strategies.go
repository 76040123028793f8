package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"options-scanner/internal/analysis/screener"
	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
	"options-scanner/internal/scanner"
	"options-scanner/internal/strategy"
)

// StrategyEntry is one item of strategies.yaml. Filter is decoded into the
// filter variant of StrategyType when the scan is prepared.
type StrategyEntry struct {
	Enabled         bool                   `mapstructure:"enabled" yaml:"enabled"`
	StrategyType    string                 `mapstructure:"strategyType" yaml:"strategyType"`
	Alias           string                 `mapstructure:"alias" yaml:"alias,omitempty"`
	Filter          map[string]interface{} `mapstructure:"filter" yaml:"filter,omitempty"`
	Securities      []string               `mapstructure:"securities" yaml:"securities,omitempty"`
	SecuritiesFile  string                 `mapstructure:"securitiesFile" yaml:"securitiesFile,omitempty"`
	TechnicalFilter *screener.Conditions   `mapstructure:"technicalFilter" yaml:"technicalFilter,omitempty"`
	MaxTradesToSend int                    `mapstructure:"maxTradesToSend" yaml:"maxTradesToSend,omitempty"`
}

// Kind returns the normalised strategy kind.
func (e StrategyEntry) Kind() strategy.Kind {
	return strategy.Kind(strings.ToUpper(strings.TrimSpace(e.StrategyType)))
}

// Name returns the alias or the strategy type.
func (e StrategyEntry) Name() string {
	if e.Alias != "" {
		return e.Alias
	}
	return string(e.Kind())
}

// Validate checks the fields that do not need the registry.
func (e StrategyEntry) Validate() error {
	if e.Kind() == "" {
		return apperrors.NewValidationError("strategyType", e.StrategyType, "strategy type is required")
	}
	if e.MaxTradesToSend < 0 {
		return apperrors.NewValidationError("maxTradesToSend", e.MaxTradesToSend, "must be non-negative")
	}
	if e.Enabled && len(e.Securities) == 0 && e.SecuritiesFile == "" {
		return apperrors.NewValidationError("securities", e.Name(), "securities or securitiesFile is required")
	}
	if e.TechnicalFilter != nil {
		if err := e.TechnicalFilter.Validate(); err != nil {
			return apperrors.NewValidationError("technicalFilter", e.Name(), err.Error())
		}
	}
	return nil
}

// DecodeFilter decodes raw into the filter variant registered for kind,
// starting from that variant's defaults. Unknown keys are rejected.
func DecodeFilter(registry *strategy.Registry, kind strategy.Kind, raw map[string]interface{}) (models.Filter, error) {
	filter, err := registry.NewFilter(kind)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return filter, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           filter,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, apperrors.NewValidationError("filter", string(kind), err.Error())
	}
	return filter, nil
}

// LoadSecurities reads a YAML list of symbols. A mapping with a "securities"
// key is also accepted.
func LoadSecurities(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading securities file: %w", err)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc struct {
		Securities []string `yaml:"securities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing securities file %s: %w", path, err)
	}
	return doc.Securities, nil
}

// ScanConfigs converts the enabled entries into runner configs. Relative
// securities files resolve against the config directory.
func (c *Config) ScanConfigs(registry *strategy.Registry) ([]scanner.StrategyConfig, error) {
	var out []scanner.StrategyConfig
	for i, entry := range c.EnabledStrategies() {
		sc, err := c.scanConfig(registry, entry)
		if err != nil {
			return nil, fmt.Errorf("strategy %d (%s): %w", i+1, entry.Name(), err)
		}
		out = append(out, sc)
	}
	return out, nil
}

func (c *Config) scanConfig(registry *strategy.Registry, entry StrategyEntry) (scanner.StrategyConfig, error) {
	kind := entry.Kind()
	filter, err := DecodeFilter(registry, kind, entry.Filter)
	if err != nil {
		return scanner.StrategyConfig{}, err
	}

	securities := append([]string(nil), entry.Securities...)
	if entry.SecuritiesFile != "" {
		path := entry.SecuritiesFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.Dir, path)
		}
		fromFile, err := LoadSecurities(path)
		if err != nil {
			return scanner.StrategyConfig{}, err
		}
		securities = append(securities, fromFile...)
	}

	return scanner.StrategyConfig{
		Alias:           entry.Alias,
		Kind:            kind,
		Filter:          filter,
		Securities:      securities,
		TechnicalFilter: entry.TechnicalFilter,
		MaxTradesToSend: entry.MaxTradesToSend,
	}, nil
}
