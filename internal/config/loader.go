package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// AADR_AWS_REGION or AADR_REPORT_FLATTEN.
const EnvPrefix = "AADR"

// DefaultPath returns ~/.config/aadr/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "aadr", "config.yaml"), nil
}

// FileLoader is the production Loader. It layers built-in defaults, an
// optional YAML file and AADR_* environment variables using viper.
type FileLoader struct {
	path     string
	required bool
}

// NewFileLoader returns a loader for path. An empty path selects DefaultPath,
// which may be absent; an explicit path must exist.
func NewFileLoader(path string) *FileLoader {
	if path != "" {
		return &FileLoader{path: path, required: true}
	}
	p, err := DefaultPath()
	if err != nil {
		return &FileLoader{}
	}
	return &FileLoader{path: p}
}

func (l *FileLoader) ConfigPath() string { return l.path }

// Present reports whether the configuration file exists.
func (l *FileLoader) Present() bool {
	if l.path == "" {
		return false
	}
	_, err := os.Stat(l.path)
	return err == nil
}

// Load returns the merged configuration. Values are not validated; call
// Validate on the result.
func (l *FileLoader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if l.path != "" {
		_, statErr := os.Stat(l.path)
		switch {
		case statErr == nil:
			v.SetConfigFile(l.path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", l.path, err)
			}
		case errors.Is(statErr, fs.ErrNotExist) && !l.required:
			// optional default file
		default:
			return nil, fmt.Errorf("read config %s: %w", l.path, statErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment overrides are seen by
// Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("aws.region", d.AWS.Region)
	v.SetDefault("aws.profile", d.AWS.Profile)
	v.SetDefault("aws.max_attempts", d.AWS.MaxAttempts)
	v.SetDefault("aws.connect_timeout", d.AWS.ConnectTimeout)

	v.SetDefault("report.output", d.Report.Output)
	v.SetDefault("report.include_non_default_versions", d.Report.IncludeNonDefaultVersions)
	v.SetDefault("report.include_unattached", d.Report.IncludeUnattached)
	v.SetDefault("report.flatten", d.Report.Flatten)
	v.SetDefault("report.open_in_spreadsheet", d.Report.OpenInSpreadsheet)
	v.SetDefault("report.skip_role_page_policies", d.Report.SkipRolePagePolicies)
	v.SetDefault("report.sheet_name", d.Report.SheetName)
	v.SetDefault("report.s3_uri", d.Report.S3URI)
	v.SetDefault("report.page_size", d.Report.PageSize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
