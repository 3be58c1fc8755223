package report

import (
	"path/filepath"
	"strings"
)

// DefaultOutputPath is used when no output path is configured.
const DefaultOutputPath = "./accountAuthorizationDetailsReport.json"

// NormalizeOutputPath forces a .json extension onto p. An existing extension
// on the final path element is replaced; the boolean reports whether p
// changed.
func NormalizeOutputPath(p string) (string, bool) {
	if strings.HasSuffix(p, ".json") {
		return p, false
	}
	base := filepath.Base(p)
	ext := filepath.Ext(base)
	if ext == base {
		// dotfile such as ".report": keep the name, append the extension.
		ext = ""
	}
	return strings.TrimSuffix(p, ext) + ".json", true
}

// SpreadsheetPath derives the workbook path from a normalized JSON path.
func SpreadsheetPath(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, ".json") + ".xlsx"
}
