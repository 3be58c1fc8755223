package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/aadr/internal/config"
	"github.com/pankaj-dahiya-devops/aadr/internal/preflight"
	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
)

// DoctorResult is the structured output of aadr doctor. It can be serialised
// to JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	Tools struct {
		AWSCLI        bool   `json:"aws_cli_ok"`
		AWSCLIVersion string `json:"aws_cli_version,omitempty"`
		AWSCLIError   string `json:"aws_cli_error,omitempty"`
		Runtime       bool   `json:"runtime_ok"`
		GoVersion     string `json:"go_version,omitempty"`
		RuntimeError  string `json:"runtime_error,omitempty"`
	} `json:"tools"`

	AWS struct {
		Profile       string `json:"profile"`
		ProfileListed bool   `json:"profile_listed"`
		Credentials   bool   `json:"credentials_ok"`
		AccountID     string `json:"account_id,omitempty"`
		Region        string `json:"region"`
		RegionEnabled bool   `json:"region_enabled"`
		Error         string `json:"error,omitempty"`
	} `json:"aws"`

	Config struct {
		Path    string   `json:"path,omitempty"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"config"`

	OverallHealthy bool `json:"overall_healthy"`
}

// doctorInput is the configuration state the checks run against.
type doctorInput struct {
	Profile       string
	Region        string
	ConfigPath    string
	ConfigPresent bool
	ConfigErrors  []string
}

func newDoctorCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			in, cfg := doctorConfig(cmd, g)
			if p, _ := cmd.Flags().GetString("profile"); cmd.Flags().Changed("profile") {
				in.Profile = p
			}
			if r, _ := cmd.Flags().GetString("region"); cmd.Flags().Changed("region") {
				in.Region = r
			}
			opts := clientOptions(cfg)
			opts.Region = in.Region

			result, err := runDoctor(
				cmd.Context(),
				preflight.NewChecker(),
				common.NewDefaultAWSClientProvider(opts),
				cmd.OutOrStdout(),
				format,
				in,
			)
			if err != nil {
				// Rendering failure; let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringP("profile", "p", "", "AWS profile to check (default: from config)")
	cmd.Flags().StringP("region", "r", "", "Region to check (default: from config)")
	return cmd
}

// doctorConfig loads the configuration for diagnostics. A config that fails to
// load or validate is reported, and the checks fall back to defaults.
func doctorConfig(cmd *cobra.Command, g *globalOptions) (doctorInput, *config.Config) {
	loader := config.NewFileLoader(g.configPath)
	in := doctorInput{
		ConfigPath:    loader.ConfigPath(),
		ConfigPresent: loader.Present(),
	}

	cfg, err := loadConfig(cmd, g)
	if err != nil {
		in.ConfigErrors = []string{err.Error()}
		cfg = config.Default()
	} else {
		for _, e := range config.Validate(cfg) {
			in.ConfigErrors = append(in.ConfigErrors, e.Error())
		}
	}
	in.Profile = cfg.AWS.Profile
	in.Region = cfg.AWS.Region
	return in, cfg
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy.
func runDoctor(ctx context.Context, checker *preflight.Checker, provider common.AWSClientProvider, w io.Writer, format string, in doctorInput) (DoctorResult, error) {
	result := collectDoctorResult(ctx, checker, provider, in)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, checker *preflight.Checker, provider common.AWSClientProvider, in doctorInput) DoctorResult {
	var result DoctorResult

	// Tools: runtime gate, then aws CLI.
	goVersion, err := checker.Runtime()
	result.Tools.GoVersion = goVersion
	if err != nil {
		result.Tools.RuntimeError = err.Error()
	} else {
		result.Tools.Runtime = true
	}
	_, cliVersion, err := checker.AWSCLI(ctx)
	result.Tools.AWSCLIVersion = cliVersion
	if err != nil {
		result.Tools.AWSCLIError = err.Error()
	} else {
		result.Tools.AWSCLI = true
	}

	// AWS: profile listed → credentials → STS account ID → region enabled.
	result.AWS.Profile = in.Profile
	result.AWS.Region = in.Region
	if profiles, err := provider.ListProfiles(); err == nil {
		for _, p := range profiles {
			if p == in.Profile {
				result.AWS.ProfileListed = true
				break
			}
		}
	}
	profileCfg, err := provider.LoadProfile(ctx, in.Profile)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		regions, err := provider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			for _, r := range regions {
				if r == in.Region {
					result.AWS.RegionEnabled = true
					break
				}
			}
			if !result.AWS.RegionEnabled {
				result.AWS.Error = fmt.Sprintf("region %s is not enabled for account %s", in.Region, profileCfg.AccountID)
			}
		}
	}

	// Config: the file is optional; load and validation errors both count.
	result.Config.Path = in.ConfigPath
	result.Config.Present = in.ConfigPresent
	result.Config.Errors = in.ConfigErrors
	result.Config.Valid = len(in.ConfigErrors) == 0

	result.OverallHealthy = result.Tools.Runtime &&
		result.Tools.AWSCLI &&
		result.AWS.Credentials &&
		result.AWS.RegionEnabled &&
		result.Config.Valid

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nTools:")
	if result.Tools.Runtime {
		doctorPrint(w, "Go runtime", "OK", result.Tools.GoVersion)
	} else {
		doctorPrint(w, "Go runtime", "FAIL", result.Tools.RuntimeError)
	}
	if result.Tools.AWSCLI {
		doctorPrint(w, "AWS CLI", "OK", result.Tools.AWSCLIVersion)
	} else {
		doctorPrint(w, "AWS CLI", "FAIL", result.Tools.AWSCLIError)
	}

	fmt.Fprintf(w, "\nAWS (profile: %s, region: %s):\n", result.AWS.Profile, result.AWS.Region)
	if result.AWS.ProfileListed {
		doctorPrint(w, "Profile listed", "OK", "")
	} else {
		doctorPrint(w, "Profile listed", "WARN", "not in shared config files")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Region enabled", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionEnabled {
			doctorPrint(w, "Region enabled", "OK", "")
		} else {
			doctorPrint(w, "Region enabled", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nConfig:")
	if !result.Config.Present {
		doctorPrint(w, "config.yaml present", "Not found (optional)", result.Config.Path)
	} else {
		doctorPrint(w, "config.yaml present", "YES", result.Config.Path)
	}
	if result.Config.Valid {
		doctorPrint(w, "Config valid", "OK", "")
	} else {
		for _, e := range result.Config.Errors {
			doctorPrint(w, "Config valid", "FAIL", e)
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
