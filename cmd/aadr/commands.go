package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pankaj-dahiya-devops/aadr/internal/config"
	"github.com/pankaj-dahiya-devops/aadr/internal/engine"
	"github.com/pankaj-dahiya-devops/aadr/internal/logging"
	"github.com/pankaj-dahiya-devops/aadr/internal/opener"
	"github.com/pankaj-dahiya-devops/aadr/internal/output"
	"github.com/pankaj-dahiya-devops/aadr/internal/preflight"
	awsauthz "github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/authz"
	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/aadr/internal/version"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel   string
	logFormat  string
	configPath string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:           "aadr",
		Short:         "AWS IAM account authorization details report",
		Long:          "aadr collects GetAccountAuthorizationDetails for an AWS account, writes it as JSON\nand converts the user list into a spreadsheet.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.logLevel, "log-level", "l", defaults.Log.Level, "Log level: CRITICAL, ERROR, WARNING, INFO or DEBUG")
	pf.StringVar(&g.logFormat, "log-format", defaults.Log.Format, `Log format: "text" or "json"`)
	pf.StringVar(&g.configPath, "config", "", "Config file (default ~/.config/aadr/config.yaml)")

	root.AddCommand(newReportCmd(g))
	root.AddCommand(newDoctorCmd(g))
	root.AddCommand(newConfigCmd(g))
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig layers the config file and environment, then applies the
// persistent log flags when they were given explicitly.
func loadConfig(cmd *cobra.Command, g *globalOptions) (*config.Config, error) {
	cfg, err := config.NewFileLoader(g.configPath).Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	return cfg, nil
}

func validateConfig(cfg *config.Config) error {
	errs := config.Validate(cfg)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, cfg.Format)
}

func clientOptions(cfg *config.Config) common.ClientOptions {
	return common.ClientOptions{
		Region:         cfg.AWS.Region,
		MaxAttempts:    cfg.AWS.MaxAttempts,
		ConnectTimeout: cfg.AWS.ConnectTimeout,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ---------------------------------------------------------------------------
// report
// ---------------------------------------------------------------------------

// reportFlags receives the report command flags. Each one overrides the
// loaded configuration only when it was set on the command line.
type reportFlags struct {
	region            string
	profile           string
	output            string
	includeNonDefault bool
	includeUnattached bool
	openInExcel       bool
	flatten           bool
	skipRolePage      bool
	pageSize          int
	sheetName         string
	s3URI             string
	maxAttempts       int
	connectTimeout    time.Duration
	format            string
}

// reportDeps are the collaborators of a report run that tests replace.
type reportDeps struct {
	checker     *preflight.Checker
	newProvider func(common.ClientOptions) common.AWSClientProvider
	opener      opener.Opener
}

// newReportDeps builds the collaborators for a report run. Tests swap it.
var newReportDeps = defaultReportDeps

func defaultReportDeps() reportDeps {
	return reportDeps{
		checker: preflight.NewChecker(),
		newProvider: func(opts common.ClientOptions) common.AWSClientProvider {
			return common.NewDefaultAWSClientProvider(opts)
		},
		opener: opener.NewSystemOpener(),
	}
}

func newReportCmd(g *globalOptions) *cobra.Command {
	var f reportFlags
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Collect authorization details and write the JSON and spreadsheet reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			applyReportFlags(cmd, f, cfg)
			if err := validateConfig(cfg); err != nil {
				return err
			}
			if f.format != "table" && f.format != "json" {
				return fmt.Errorf("invalid --format %q: want table or json", f.format)
			}
			return runReport(cmd.Context(), cfg, newReportDeps(), f.format, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.region, "region", "r", d.AWS.Region, "AWS region for the IAM client")
	fl.StringVarP(&f.profile, "profile", "p", d.AWS.Profile, "AWS shared-config profile")
	fl.BoolVarP(&f.includeNonDefault, "include-non-default-policy-versions", "i", false, "Keep every version of AWS managed policies")
	fl.BoolVarP(&f.includeUnattached, "include-unattached", "u", false, "Keep managed policies with no attachments")
	fl.StringVarP(&f.output, "output", "o", d.Report.Output, "JSON report path; the spreadsheet is written alongside as .xlsx")
	fl.BoolVarP(&f.openInExcel, "open-in-excel", "x", false, "Open the spreadsheet when done")
	fl.BoolVarP(&f.flatten, "flatten", "f", false, "Recursively expand nested columns into rows and columns")
	fl.BoolVar(&f.skipRolePage, "skip-role-page-policies", false, "Do not append the Policies carried by role pages to RoleDetailList")
	fl.IntVar(&f.pageSize, "page-size", d.Report.PageSize, "MaxItems per API page (0 uses the service default)")
	fl.StringVar(&f.sheetName, "sheet-name", d.Report.SheetName, "Worksheet name")
	fl.StringVar(&f.s3URI, "s3-uri", "", "Upload both reports to this s3://bucket/prefix")
	fl.IntVar(&f.maxAttempts, "max-attempts", d.AWS.MaxAttempts, "Attempts per API call, first attempt included")
	fl.DurationVar(&f.connectTimeout, "connect-timeout", d.AWS.ConnectTimeout, "TCP connect timeout per attempt")
	fl.StringVar(&f.format, "format", "table", `Summary format on stdout: "table" or "json"`)

	return cmd
}

func applyReportFlags(cmd *cobra.Command, f reportFlags, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("region") {
		cfg.AWS.Region = f.region
	}
	if fl.Changed("profile") {
		cfg.AWS.Profile = f.profile
	}
	if fl.Changed("max-attempts") {
		cfg.AWS.MaxAttempts = f.maxAttempts
	}
	if fl.Changed("connect-timeout") {
		cfg.AWS.ConnectTimeout = f.connectTimeout
	}
	if fl.Changed("output") {
		cfg.Report.Output = f.output
	}
	if fl.Changed("include-non-default-policy-versions") {
		cfg.Report.IncludeNonDefaultVersions = f.includeNonDefault
	}
	if fl.Changed("include-unattached") {
		cfg.Report.IncludeUnattached = f.includeUnattached
	}
	if fl.Changed("open-in-excel") {
		cfg.Report.OpenInSpreadsheet = f.openInExcel
	}
	if fl.Changed("flatten") {
		cfg.Report.Flatten = f.flatten
	}
	if fl.Changed("skip-role-page-policies") {
		cfg.Report.SkipRolePagePolicies = f.skipRolePage
	}
	if fl.Changed("page-size") {
		cfg.Report.PageSize = f.pageSize
	}
	if fl.Changed("sheet-name") {
		cfg.Report.SheetName = f.sheetName
	}
	if fl.Changed("s3-uri") {
		cfg.Report.S3URI = f.s3URI
	}
}

// runReport prints the environment banner, applies the preflight gate and
// runs one report. The summary goes to stdout in format; banner and logs go
// to stderr.
func runReport(ctx context.Context, cfg *config.Config, deps reportDeps, format string, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	pre, preErr := deps.checker.Check(ctx)
	renderBanner(stderr, newBannerInfo(pre, cfg), terminalWidth(stderr))
	if preErr != nil {
		logger.Log(ctx, logging.LevelCritical, "preflight failed", "error", preErr)
		return fmt.Errorf("preflight: %w", preErr)
	}

	eng := engine.NewDefaultEngine(
		deps.newProvider(clientOptions(cfg)),
		awsauthz.NewDefaultCollector(logger),
		deps.opener,
		logger,
	)

	result, err := eng.RunReport(ctx, engine.ReportOptions{
		Profile:   cfg.AWS.Profile,
		Output:    cfg.Report.Output,
		SheetName: cfg.Report.SheetName,
		Flatten:   cfg.Report.Flatten,
		Open:      cfg.Report.OpenInSpreadsheet,
		S3URI:     cfg.Report.S3URI,
		Collect: awsauthz.CollectOptions{
			IncludeNonDefaultVersions: cfg.Report.IncludeNonDefaultVersions,
			IncludeUnattached:         cfg.Report.IncludeUnattached,
			SkipRolePagePolicies:      cfg.Report.SkipRolePagePolicies,
			PageSize:                  int32(cfg.Report.PageSize),
		},
	})
	if result != nil {
		switch format {
		case "json":
			if rerr := output.RenderJSON(stdout, result); rerr != nil {
				return errors.Join(err, rerr)
			}
		default:
			output.RenderSummary(stdout, result, output.SummaryOptions{Colored: isTerminal(stdout)})
		}
	}
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func newConfigCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			return validateConfig(cfg)
		},
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}
