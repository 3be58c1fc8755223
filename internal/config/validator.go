package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pankaj-dahiya-devops/aadr/internal/logging"
)

// ValidRegions is the set of regions accepted by --region.
var ValidRegions = []string{
	"af-south-1",
	"ap-east-1",
	"ap-northeast-1",
	"ap-northeast-2",
	"ap-south-1",
	"ap-south-2",
	"ap-southeast-1",
	"ap-southeast-2",
	"ap-southeast-3",
	"ap-southeast-4",
	"ca-central-1",
	"cn-north-1",
	"cn-northwest-1",
	"eu-central-1",
	"eu-central-2",
	"eu-north-1",
	"eu-south-1",
	"eu-west-1",
	"eu-west-2",
	"eu-west-3",
	"me-south-1",
	"me-central-1",
	"sa-east-1",
	"us-east-1",
	"us-east-2",
	"us-gov-east-1",
	"us-gov-west-1",
	"us-west-1",
	"us-west-2",
}

// IsValidRegion reports whether region is in ValidRegions.
func IsValidRegion(region string) bool {
	for _, r := range ValidRegions {
		if r == region {
			return true
		}
	}
	return false
}

// maxSheetNameLength is the worksheet name limit of the xlsx format.
const maxSheetNameLength = 31

// maxPageSize is the upper bound IAM accepts for MaxItems.
const maxPageSize = 1000

// Validate checks cfg for semantic correctness and returns all validation
// errors found. An empty slice means the config is valid.
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	// AWS checks.
	if !IsValidRegion(cfg.AWS.Region) {
		errs = append(errs, fmt.Errorf("aws.region: invalid value %q; valid values: %s", cfg.AWS.Region, strings.Join(ValidRegions, ", ")))
	}
	if strings.TrimSpace(cfg.AWS.Profile) == "" {
		errs = append(errs, fmt.Errorf("aws.profile: must not be empty"))
	}
	if cfg.AWS.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("aws.max_attempts: invalid value %d; must be at least 1", cfg.AWS.MaxAttempts))
	}
	if cfg.AWS.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("aws.connect_timeout: invalid value %s; must be positive", cfg.AWS.ConnectTimeout))
	}

	// Report checks.
	if strings.TrimSpace(cfg.Report.Output) == "" {
		errs = append(errs, fmt.Errorf("report.output: must not be empty"))
	}
	if err := validateSheetName(cfg.Report.SheetName); err != nil {
		errs = append(errs, fmt.Errorf("report.sheet_name: %w", err))
	}
	if cfg.Report.S3URI != "" && !strings.HasPrefix(cfg.Report.S3URI, "s3://") {
		errs = append(errs, fmt.Errorf("report.s3_uri: invalid value %q; must start with s3://", cfg.Report.S3URI))
	}
	if cfg.Report.PageSize < 0 || cfg.Report.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("report.page_size: invalid value %d; must be between 0 and %d", cfg.Report.PageSize, maxPageSize))
	}

	// Log checks.
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format: invalid value %q; valid values: text, json", cfg.Log.Format))
	}

	return errs
}

func validateSheetName(name string) error {
	if name == "" {
		return fmt.Errorf("must not be empty")
	}
	if utf8.RuneCountInString(name) > maxSheetNameLength {
		return fmt.Errorf("invalid value %q; at most %d characters", name, maxSheetNameLength)
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("invalid value %q; must not start or end with a single quote", name)
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return fmt.Errorf(`invalid value %q; must not contain any of : \ / ? * [ ]`, name)
	}
	return nil
}
