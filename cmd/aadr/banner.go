package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/pankaj-dahiya-devops/aadr/internal/config"
	"github.com/pankaj-dahiya-devops/aadr/internal/preflight"
	"github.com/pankaj-dahiya-devops/aadr/internal/report"
	"github.com/pankaj-dahiya-devops/aadr/internal/version"
)

const (
	defaultBannerWidth = 80
	maxBannerWidth     = 100
)

var (
	colorHeader = lipgloss.Color("#874BFD")
	colorSub    = lipgloss.Color("#64748B")

	bannerTitle   = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	bannerSection = lipgloss.NewStyle().Bold(true)
	bannerKey     = lipgloss.NewStyle().Foreground(colorSub)
)

// bannerLibraries are the modules whose resolved versions are reported.
var bannerLibraries = []string{
	"github.com/aws/aws-sdk-go-v2",
	"github.com/aws/aws-sdk-go-v2/service/iam",
	"github.com/xuri/excelize/v2",
	"github.com/spf13/cobra",
}

type bannerField struct {
	Key   string
	Value string
}

// bannerInfo is everything printed before a report run.
type bannerInfo struct {
	Platform  string
	GoVersion string
	AWSCLI    string
	Libraries []bannerField
	Arguments []bannerField
}

func newBannerInfo(pre preflight.Result, cfg *config.Config) bannerInfo {
	goVersion := pre.GoVersion
	if goVersion == "" {
		goVersion = runtime.Version()
	}
	awsCLI := pre.AWSCLIVersion
	if awsCLI == "" {
		awsCLI = "unknown"
	}
	return bannerInfo{
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: goVersion,
		AWSCLI:    awsCLI,
		Libraries: libraryVersions(),
		Arguments: effectiveArguments(cfg),
	}
}

// libraryVersions reads module versions from the embedded build info.
// Test binaries and builds without module info report "unknown".
func libraryVersions() []bannerField {
	found := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			found[dep.Path] = dep.Version
		}
	}
	out := make([]bannerField, 0, len(bannerLibraries))
	for _, path := range bannerLibraries {
		v := found[path]
		if v == "" {
			v = "unknown"
		}
		out = append(out, bannerField{Key: path, Value: v})
	}
	return out
}

// effectiveArguments lists the settings a run uses. Output paths are shown
// after .json normalization, with the configured value when it was rewritten.
func effectiveArguments(cfg *config.Config) []bannerField {
	output := cfg.Report.Output
	if output == "" {
		output = report.DefaultOutputPath
	}
	jsonPath, changed := report.NormalizeOutputPath(output)
	outputValue := jsonPath
	if changed {
		outputValue = fmt.Sprintf("%s (rewritten from %s)", jsonPath, output)
	}

	args := []bannerField{
		{"region", cfg.AWS.Region},
		{"profile", cfg.AWS.Profile},
		{"output", outputValue},
		{"spreadsheet", report.SpreadsheetPath(jsonPath)},
		{"include-non-default-policy-versions", strconv.FormatBool(cfg.Report.IncludeNonDefaultVersions)},
		{"include-unattached", strconv.FormatBool(cfg.Report.IncludeUnattached)},
		{"flatten", strconv.FormatBool(cfg.Report.Flatten)},
		{"open-in-excel", strconv.FormatBool(cfg.Report.OpenInSpreadsheet)},
		{"skip-role-page-policies", strconv.FormatBool(cfg.Report.SkipRolePagePolicies)},
		{"sheet-name", cfg.Report.SheetName},
		{"page-size", strconv.Itoa(cfg.Report.PageSize)},
		{"max-attempts", strconv.Itoa(cfg.AWS.MaxAttempts)},
		{"connect-timeout", cfg.AWS.ConnectTimeout.String()},
		{"log-level", cfg.Log.Level},
	}
	if cfg.Report.S3URI != "" {
		args = append(args, bannerField{"s3-uri", cfg.Report.S3URI})
	}
	return args
}

// terminalWidth returns the column count of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultBannerWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultBannerWidth
	}
	return width
}

func renderBanner(w io.Writer, info bannerInfo, width int) {
	if width > maxBannerWidth {
		width = maxBannerWidth
	}
	rule := strings.Repeat("=", width)

	keyWidth := 0
	for _, group := range [][]bannerField{info.Libraries, info.Arguments} {
		for _, f := range group {
			if len(f.Key) > keyWidth {
				keyWidth = len(f.Key)
			}
		}
	}
	line := func(key, value string) {
		fmt.Fprintf(w, "  %s  %s\n", bannerKey.Render(fmt.Sprintf("%-*s", keyWidth, key)), value)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, bannerTitle.Render("aadr "+version.Version))
	fmt.Fprintln(w, bannerSection.Render("Environment"))
	line("platform", info.Platform)
	line("go", info.GoVersion)
	line("aws-cli", info.AWSCLI)
	fmt.Fprintln(w, bannerSection.Render("Libraries"))
	for _, f := range info.Libraries {
		line(f.Key, f.Value)
	}
	fmt.Fprintln(w, bannerSection.Render("Arguments"))
	for _, f := range info.Arguments {
		line(f.Key, f.Value)
	}
	fmt.Fprintln(w, rule)
}
