package models

// ---------------------------------------------------------------------------
// Run summary
// ---------------------------------------------------------------------------

// ReportCounts holds the number of entries in each aggregate list.
type ReportCounts struct {
	Users    int `json:"users"`
	Groups   int `json:"groups"`
	Roles    int `json:"roles"`
	Policies int `json:"policies"`
}

// ReportResult describes one completed report run.
type ReportResult struct {
	AccountID string `json:"account_id"`
	Profile   string `json:"profile"`
	Region    string `json:"region"`

	JSONPath        string `json:"json_path"`
	SpreadsheetPath string `json:"spreadsheet_path"`
	SheetName       string `json:"sheet_name"`

	Counts ReportCounts `json:"counts"`

	// SheetRows excludes the header row.
	SheetRows    int  `json:"sheet_rows"`
	SheetColumns int  `json:"sheet_columns"`
	Flattened    bool `json:"flattened"`

	// Uploaded lists the s3:// URIs written when publishing was requested.
	Uploaded []string `json:"uploaded,omitempty"`

	// Opened is true when the workbook was handed to a spreadsheet application.
	Opened bool `json:"opened"`
}
