package config

import (
	"time"
)

// Config is the top-level application configuration.
// It is loaded from ~/.config/aadr/config.yaml (optional), overlaid with
// AADR_* environment variables, and finally with explicit CLI flags.
type Config struct {
	AWS    AWSConfig    `yaml:"aws"    mapstructure:"aws"`
	Report ReportConfig `yaml:"report" mapstructure:"report"`
	Log    LogConfig    `yaml:"log"    mapstructure:"log"`
}

// AWSConfig holds SDK client settings.
type AWSConfig struct {
	// Region is the region the IAM client is configured for.
	Region string `yaml:"region" mapstructure:"region"`

	// Profile is the shared-config profile to load credentials from.
	Profile string `yaml:"profile" mapstructure:"profile"`

	// MaxAttempts is the retry budget per API call, first attempt included.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`

	// ConnectTimeout bounds TCP connection setup per attempt.
	ConnectTimeout time.Duration `yaml:"-" mapstructure:"connect_timeout"`
}

// ReportConfig controls what is collected and which artifacts are produced.
type ReportConfig struct {
	// Output is the JSON artifact path. The workbook is written next to it.
	Output string `yaml:"output" mapstructure:"output"`

	IncludeNonDefaultVersions bool `yaml:"include_non_default_versions" mapstructure:"include_non_default_versions"`
	IncludeUnattached         bool `yaml:"include_unattached"           mapstructure:"include_unattached"`
	Flatten                   bool `yaml:"flatten"                      mapstructure:"flatten"`
	OpenInSpreadsheet         bool `yaml:"open_in_spreadsheet"          mapstructure:"open_in_spreadsheet"`
	SkipRolePagePolicies      bool `yaml:"skip_role_page_policies"      mapstructure:"skip_role_page_policies"`

	// SheetName is the name of the single worksheet.
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`

	// S3URI, when set, receives a copy of both artifacts.
	S3URI string `yaml:"s3_uri,omitempty" mapstructure:"s3_uri"`

	// PageSize is the MaxItems sent per API page; 0 uses the service default.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// LogConfig selects the diagnostic log level and encoding.
type LogConfig struct {
	// Level is one of CRITICAL, ERROR, WARNING, INFO, DEBUG.
	Level string `yaml:"level" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" mapstructure:"format"`
}

// Loader is the interface for reading Config from disk.
// Default implementation reads from ~/.config/aadr/config.yaml.
type Loader interface {
	// Load reads, parses, and overlays the configuration.
	Load() (*Config, error)

	// ConfigPath returns the path to the configuration file.
	ConfigPath() string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AWS: AWSConfig{
			Region:         "us-east-1",
			Profile:        "default",
			MaxAttempts:    10,
			ConnectTimeout: 5 * time.Second,
		},
		Report: ReportConfig{
			Output:    "./accountAuthorizationDetailsReport.json",
			SheetName: "UserDetailList",
		},
		Log: LogConfig{
			Level:  "ERROR",
			Format: "text",
		},
	}
}

// MarshalYAML renders ConnectTimeout as a duration string.
func (a AWSConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Region         string `yaml:"region"`
		Profile        string `yaml:"profile"`
		MaxAttempts    int    `yaml:"max_attempts"`
		ConnectTimeout string `yaml:"connect_timeout"`
	}{a.Region, a.Profile, a.MaxAttempts, a.ConnectTimeout.String()}, nil
}
