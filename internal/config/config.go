// =============================================================================
// XtractPajak - Configuration Module
// =============================================================================
//
// This module loads the application configuration, the taxpayer profiles and
// the rate table.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, processing limits and
//      the template workbook contract
//   2. Taxpayer Profiles (configs/taxpayers/*.yaml): which input files belong
//      to which taxpayer, and which documents to produce for them
//   3. Rate Table (configs/rates.yaml): withholding rate and object code per
//      tax category
//
// Every file is optional except the main config: a missing rate table means
// the built-in rates, a missing profiles directory means no profiles.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/xtractpajak/internal/category"
	"github.com/ginjaninja78/xtractpajak/internal/rates"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for ledger documents (*.pdf, *.txt).
	InputDir string `yaml:"input_dir"`

	// OutputDir receives workbooks, XML files and logs.
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives processed input documents.
	InputArchiveDir string `yaml:"input_archive_dir"`

	// TemplatesDir holds the template workbooks named in Templates.
	TemplatesDir string `yaml:"templates_dir"`

	// ProfilesDir holds one YAML file per taxpayer.
	ProfilesDir string `yaml:"profiles_dir"`

	// RateTable is the rate table file.
	RateTable string `yaml:"rate_table"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT NAMING
	// =========================================================================

	// OutputNameFormat builds output base names. Placeholders: {name},
	// {type}, {timestamp}, {date}, {time}, {uuid}.
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds the number of documents processed at once.
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps a batch going after a failed document.
	ContinueOnError bool `yaml:"continue_on_error"`

	// MaxLines rejects documents with more lines than this. 0 disables it.
	MaxLines int `yaml:"max_lines"`

	// =========================================================================
	// TEMPLATE WORKBOOK CONTRACT
	// =========================================================================

	DataSheet      string `yaml:"data_sheet"`
	IdentifierCell string `yaml:"identifier_cell"`
	HeaderRow      int    `yaml:"header_row"`
	StartRow       int    `yaml:"start_row"`

	// Templates maps a document type ("21", "unifikasi", ...) to a template
	// file name under TemplatesDir. Unmapped types get a generated workbook.
	Templates map[string]string `yaml:"templates"`
}

// =============================================================================
// TAXPAYER PROFILES
// =============================================================================

// TaxpayerProfile binds input files to a taxpayer.
type TaxpayerProfile struct {
	// Name is a display name used in logs and summaries.
	Name string `yaml:"name"`

	// TIN is the 16-digit taxpayer identifier (NPWP).
	TIN string `yaml:"tin"`

	// FileMatchingPatterns are filepath.Match patterns on the file name.
	// Example: ["bkpp_dinkes_*.pdf"]
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// DocumentTypes lists the documents to produce. Default: both.
	DocumentTypes []string `yaml:"document_types"`

	// Month restricts records to one reporting month (1..12). 0 = all.
	Month int `yaml:"month"`
}

// DocTypes parses DocumentTypes.
func (p *TaxpayerProfile) DocTypes() ([]types.DocumentType, error) {
	out := make([]types.DocumentType, 0, len(p.DocumentTypes))
	for _, s := range p.DocumentTypes {
		d, err := types.ParseDocumentType(s)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Matches reports whether fileName matches one of the profile's patterns.
func (p *TaxpayerProfile) Matches(fileName string) bool {
	base := filepath.Base(fileName)
	for _, pattern := range p.FileMatchingPatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from the specified file path.
//
// PARAMETERS:
//   - configPath: The path to the main config.yaml file.
//
// RETURNS:
//   - A pointer to the loaded MainConfig struct.
//   - An error if loading or parsing fails.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultMainConfig returns a configuration with every default applied. It
// is used when no config file exists; directories are not created.
func DefaultMainConfig() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for unspecified configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.TemplatesDir == "" {
		config.TemplatesDir = "./templates"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./configs/taxpayers"
	}
	if config.RateTable == "" {
		config.RateTable = "./configs/rates.yaml"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{name}_{type}_{timestamp}"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.DataSheet == "" {
		config.DataSheet = "DATA"
	}
	if config.IdentifierCell == "" {
		config.IdentifierCell = "C1"
	}
	if config.HeaderRow <= 0 {
		config.HeaderRow = 3
	}
	if config.StartRow <= 0 {
		config.StartRow = config.HeaderRow + 1
	}
	if config.Templates == nil {
		config.Templates = make(map[string]string)
	}
}

// validateMainConfig checks the configuration and creates missing directories.
func validateMainConfig(config *MainConfig) error {
	// The table range starts at header_row and the data at start_row; a
	// gap between them would end up inside the table.
	if config.StartRow != config.HeaderRow+1 {
		return fmt.Errorf("start_row (%d) must directly follow header_row (%d)", config.StartRow, config.HeaderRow)
	}
	if config.MaxLines < 0 {
		return fmt.Errorf("max_lines must not be negative")
	}
	for key := range config.Templates {
		if _, err := types.ParseDocumentType(key); err != nil {
			return fmt.Errorf("templates: %w", err)
		}
	}

	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.TemplatesDir,
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// TemplateFor returns the template workbook path for doc, or "" when no
// template is configured.
func (c *MainConfig) TemplateFor(doc types.DocumentType) string {
	for key, file := range c.Templates {
		if d, err := types.ParseDocumentType(key); err == nil && d == doc && file != "" {
			if filepath.IsAbs(file) {
				return file
			}
			return filepath.Join(c.TemplatesDir, file)
		}
	}
	return ""
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadTaxpayerProfiles loads every *.yaml / *.yml file in profilesDir. A
// missing directory yields no profiles.
//
// RETURNS:
//   - Profiles in file name order.
//   - An error if any file fails to load.
func LoadTaxpayerProfiles(profilesDir string) ([]*TaxpayerProfile, error) {
	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	var profiles []*TaxpayerProfile
	for _, file := range files {
		profile, err := loadTaxpayerProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// loadTaxpayerProfile loads a single profile file.
func loadTaxpayerProfile(filePath string) (*TaxpayerProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile TaxpayerProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	if len(profile.DocumentTypes) == 0 {
		profile.DocumentTypes = []string{string(types.Withholding21), string(types.UnifiedWithholding)}
	}
	if _, err := profile.DocTypes(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// FindProfile returns the first profile matching fileName, or nil.
func FindProfile(fileName string, profiles []*TaxpayerProfile) *TaxpayerProfile {
	for _, p := range profiles {
		if p.Matches(fileName) {
			return p
		}
	}
	return nil
}

// =============================================================================
// RATE TABLE
// =============================================================================

// rateTableFile is the on-disk rate table.
//
//	version: "2024"
//	rates:
//	  - category: pph23
//	    rate: "0.02"
//	    code: 24-100-02
type rateTableFile struct {
	Version string          `yaml:"version"`
	Rates   []rateTableLine `yaml:"rates"`
}

type rateTableLine struct {
	Category string `yaml:"category"`
	Rate     string `yaml:"rate"`
	Code     string `yaml:"code"`
}

// LoadRateTable reads the rate table at path. When the file does not exist
// the built-in rules are returned. Rates are decimal strings so that values
// like 0.015 are exact.
func LoadRateTable(path string) ([]rates.Rule, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rates.DefaultRules(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate table: %w", err)
	}

	var file rateTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rate table: %w", err)
	}
	if len(file.Rates) == 0 {
		return nil, fmt.Errorf("rate table %s has no rates", path)
	}

	rules := make([]rates.Rule, 0, len(file.Rates))
	for i, line := range file.Rates {
		tag, ok := category.ParseTag(line.Category)
		if !ok {
			return nil, fmt.Errorf("rate table entry %d: unknown category %q", i+1, line.Category)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(line.Rate))
		if err != nil {
			return nil, fmt.Errorf("rate table entry %d: invalid rate %q: %w", i+1, line.Rate, err)
		}
		rules = append(rules, rates.Rule{Tag: tag, Rate: rate, ObjectCode: strings.TrimSpace(line.Code)})
	}

	return rules, nil
}

// LoadRegistry loads the rate table at path and builds a registry from it.
func LoadRegistry(path string) (*rates.Registry, error) {
	rules, err := LoadRateTable(path)
	if err != nil {
		return nil, err
	}
	reg, err := rates.New(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rate table: %w", err)
	}
	return reg, nil
}
