package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pankaj-dahiya-devops/aadr/internal/flatten"
	"github.com/pankaj-dahiya-devops/aadr/internal/models"
	"github.com/pankaj-dahiya-devops/aadr/internal/opener"
	awsauthz "github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/authz"
	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/aadr/internal/publish"
	"github.com/pankaj-dahiya-devops/aadr/internal/report"
)

// DefaultEngine is the production implementation of Engine.
// Every step runs sequentially on the calling goroutine.
type DefaultEngine struct {
	provider  common.AWSClientProvider
	collector awsauthz.Collector
	opener    opener.Opener
	flattener *flatten.Flattener
	logger    *slog.Logger
}

// NewDefaultEngine constructs a DefaultEngine wired to the supplied provider,
// collector and opener. A nil logger discards all records.
func NewDefaultEngine(
	provider common.AWSClientProvider,
	collector awsauthz.Collector,
	op opener.Opener,
	logger *slog.Logger,
) *DefaultEngine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultEngine{
		provider:  provider,
		collector: collector,
		opener:    op,
		flattener: flatten.New(logger),
		logger:    logger,
	}
}

// RunReport implements Engine. Artifacts already written stay on disk when a
// later step fails.
func (e *DefaultEngine) RunReport(ctx context.Context, opts ReportOptions) (*models.ReportResult, error) {
	output := opts.Output
	if output == "" {
		output = report.DefaultOutputPath
	}
	jsonPath, changed := report.NormalizeOutputPath(output)
	if changed {
		e.logger.Warn("output path rewritten to .json", "from", output, "to", jsonPath)
	}
	xlsxPath := report.SpreadsheetPath(jsonPath)

	sheet := opts.SheetName
	if sheet == "" {
		sheet = report.DefaultSheetName
	}

	// Reject a malformed destination before any network call.
	var loc publish.Location
	if opts.S3URI != "" {
		var err error
		if loc, err = publish.ParseS3URI(opts.S3URI); err != nil {
			return nil, err
		}
	}

	profile, err := e.provider.LoadProfile(ctx, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}
	e.logger.Debug("profile loaded",
		"profile", profile.ProfileName,
		"account", profile.AccountID,
		"region", profile.Region,
	)

	agg, err := e.collector.Collect(ctx, profile, opts.Collect)
	if err != nil {
		return nil, fmt.Errorf("collect for profile %q: %w", profile.ProfileName, err)
	}

	if err := report.WriteJSON(jsonPath, agg); err != nil {
		return nil, err
	}
	e.logger.Info("json report written", "path", jsonPath)

	tbl, err := e.buildSheet(jsonPath, opts.Flatten)
	if err != nil {
		return nil, err
	}
	if err := report.WriteSpreadsheet(xlsxPath, sheet, tbl); err != nil {
		return nil, err
	}
	e.logger.Info("spreadsheet written", "path", xlsxPath, "rows", tbl.Len(), "columns", tbl.Width())

	result := &models.ReportResult{
		AccountID:       profile.AccountID,
		Profile:         profile.ProfileName,
		Region:          profile.Region,
		JSONPath:        jsonPath,
		SpreadsheetPath: xlsxPath,
		SheetName:       sheet,
		Counts: models.ReportCounts{
			Users:    len(agg.UserDetailList),
			Groups:   len(agg.GroupDetailList),
			Roles:    len(agg.RoleDetailList),
			Policies: len(agg.Policies),
		},
		SheetRows:    tbl.Len(),
		SheetColumns: tbl.Width(),
		Flattened:    opts.Flatten,
	}

	if opts.S3URI != "" {
		uploaded, err := e.publish(ctx, profile, loc, jsonPath, xlsxPath)
		result.Uploaded = uploaded
		if err != nil {
			return result, err
		}
	}

	if opts.Open {
		if err := e.open(ctx, xlsxPath); err != nil {
			return result, err
		}
		result.Opened = true
	}

	return result, nil
}

// buildSheet reads the written JSON back and projects its UserDetailList,
// so the workbook always reflects exactly what is on disk.
func (e *DefaultEngine) buildSheet(jsonPath string, flattenNested bool) (*flatten.Table, error) {
	records, err := report.ReadRecords(jsonPath, report.UserDetailListKey)
	if err != nil {
		return nil, err
	}
	tbl, err := report.BuildUserTable(records, flattenNested, e.flattener)
	if err != nil {
		return nil, fmt.Errorf("build %s table: %w", report.UserDetailListKey, err)
	}
	return tbl, nil
}

func (e *DefaultEngine) publish(
	ctx context.Context,
	profile *common.ProfileConfig,
	loc publish.Location,
	jsonPath, xlsxPath string,
) ([]string, error) {
	if profile.Clients == nil || profile.Clients.S3 == nil {
		return nil, fmt.Errorf("publish to %s: profile has no S3 client", loc)
	}
	p := publish.NewPublisher(profile.Clients.S3, loc, e.logger)
	uploaded, err := p.Publish(ctx,
		publish.Artifact{Path: jsonPath, ContentType: publish.ContentTypeJSON},
		publish.Artifact{Path: xlsxPath, ContentType: publish.ContentTypeXLSX},
	)
	if err != nil {
		return uploaded, fmt.Errorf("publish to %s: %w", loc, err)
	}
	return uploaded, nil
}

func (e *DefaultEngine) open(ctx context.Context, xlsxPath string) error {
	if e.opener == nil {
		return fmt.Errorf("open %s: no opener configured", xlsxPath)
	}
	platform := e.opener.DetectPlatform()
	e.logger.Debug("opening spreadsheet", "path", xlsxPath, "platform", string(platform))
	if err := e.opener.Open(ctx, xlsxPath, platform); err != nil {
		return fmt.Errorf("open spreadsheet: %w", err)
	}
	return nil
}
