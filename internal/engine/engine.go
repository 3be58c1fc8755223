package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/aadr/internal/models"
	awsauthz "github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/authz"
)

// ReportOptions configures a single report run.
// It is the sole input to Engine.RunReport.
type ReportOptions struct {
	// Profile is the named AWS profile to use. Empty means the default profile.
	Profile string

	// Output is the JSON artifact path. A missing or different extension is
	// replaced with .json; the workbook is written alongside with .xlsx.
	Output string

	// SheetName names the single worksheet. Defaults to UserDetailList.
	SheetName string

	// Flatten recursively expands nested columns before the workbook is written.
	Flatten bool

	// Open hands the finished workbook to the platform spreadsheet application.
	Open bool

	// S3URI, when non-empty, receives a copy of both artifacts.
	S3URI string

	// Collect is forwarded to the authorization detail collector.
	Collect awsauthz.CollectOptions
}

// Engine is the central orchestration interface.
// It loads the profile, collects the aggregate, writes both artifacts and
// performs the optional publish and open steps, returning a ReportResult.
//
// Engine must not call AWS SDK clients directly; it delegates to the provider,
// collector and publisher.
type Engine interface {
	RunReport(ctx context.Context, opts ReportOptions) (*models.ReportResult, error)
}
