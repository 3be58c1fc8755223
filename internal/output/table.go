package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/aadr/internal/models"
)

// ANSI color codes used when Colored=true.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiGreen  = "\033[0;32m"
	ansiYellow = "\033[0;33m"
)

// SummaryOptions controls how RenderSummary decorates its output.
type SummaryOptions struct {
	// Colored wraps section labels with ANSI codes. Default false (CI-safe).
	Colored bool
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

func paint(s, code string, colored bool) string {
	if !colored {
		return s
	}
	return code + s + ansiReset
}

// RenderSummary writes a two-column summary of a report run to w.
//
// Layout:
//
//	FIELD          VALUE
//	-----------------------
//	Account        123456789012
//	...
//	ENTITY         COUNT
//	-----------------------
//	Users          2
//	...
func RenderSummary(w io.Writer, r *models.ReportResult, opts SummaryOptions) {
	if r == nil {
		fmt.Fprintln(w, "No report.")
		return
	}

	const (
		wKey   = 14
		wValue = 60
	)

	section := func(left, right string) {
		header := fmt.Sprintf("%-*s  %s", wKey, left, right)
		fmt.Fprintln(w, paint(header, ansiBold, opts.Colored))
		fmt.Fprintln(w, strings.Repeat("-", wKey+2+wValue))
	}
	line := func(key, value string) {
		fmt.Fprintf(w, "%-*s  %s\n", wKey, key, ShortenMessage(value, wValue))
	}

	section("FIELD", "VALUE")
	line("Account", r.AccountID)
	line("Profile", r.Profile)
	line("Region", r.Region)
	line("JSON", r.JSONPath)
	line("Spreadsheet", r.SpreadsheetPath)
	line("Sheet", r.SheetName)
	line("Sheet size", fmt.Sprintf("%d rows x %d columns", r.SheetRows, r.SheetColumns))
	line("Flattened", yesNo(r.Flattened))
	if r.Opened {
		line("Opened", paint("yes", ansiGreen, opts.Colored))
	}
	for i, uri := range r.Uploaded {
		key := ""
		if i == 0 {
			key = "Uploaded"
		}
		line(key, uri)
	}

	fmt.Fprintln(w)
	section("ENTITY", "COUNT")
	count := func(key string, n int) {
		v := fmt.Sprintf("%d", n)
		if n == 0 {
			v = paint(v, ansiYellow, opts.Colored)
		}
		line(key, v)
	}
	count("Users", r.Counts.Users)
	count("Groups", r.Counts.Groups)
	count("Roles", r.Counts.Roles)
	count("Policies", r.Counts.Policies)
}

// RenderJSON writes r as indented JSON.
func RenderJSON(w io.Writer, r *models.ReportResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report summary: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
