package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/aadr/internal/preflight"
	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
)

// ── AWS mock ──────────────────────────────────────────────────────────────────

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	regionsResult []string
	regionsErr    error
	profiles      []string
	lastProfile   string // records the profile name passed to LoadProfile
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile string) (*common.ProfileConfig, error) {
	m.lastProfile = profile
	return m.profileResult, m.profileErr
}

func (m *mockAWSProvider) GetActiveRegions(_ context.Context, _ *common.ProfileConfig) ([]string, error) {
	return m.regionsResult, m.regionsErr
}

func (m *mockAWSProvider) ListProfiles() ([]string, error) {
	return m.profiles, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{
			ProfileName: "default",
			AccountID:   "123456789012",
			Region:      "us-east-1",
		},
		regionsResult: []string{"us-east-1", "eu-west-1"},
		profiles:      []string{"default", "audit"},
	}
}

func goodChecker() *preflight.Checker {
	return preflight.NewCheckerWith(
		func(string) (string, error) { return "/usr/local/bin/aws", nil },
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte("aws-cli/2.15.0 Python/3.11.6 Linux/6.5.0 exe/x86_64"), nil
		},
		"go1.22.4",
	)
}

func missingCLIChecker() *preflight.Checker {
	return preflight.NewCheckerWith(
		func(string) (string, error) { return "", errors.New("executable file not found in $PATH") },
		nil,
		"go1.22.4",
	)
}

func defaultInput() doctorInput {
	return doctorInput{
		Profile:    "default",
		Region:     "us-east-1",
		ConfigPath: "/home/me/.config/aadr/config.yaml",
	}
}

func runDoctorToString(t *testing.T, checker *preflight.Checker, awsP common.AWSClientProvider, format string, in doctorInput) (string, DoctorResult) {
	t.Helper()
	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), checker, awsP, &buf, format, in)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	return buf.String(), result
}

// ── table format tests ────────────────────────────────────────────────────────

func TestDoctorAllOK(t *testing.T) {
	out, result := runDoctorToString(t, goodChecker(), goodMockAWS(), "table", defaultInput())
	if !result.OverallHealthy {
		t.Error("expected OverallHealthy=true")
	}
	for _, want := range []string{
		"Go runtime: OK (go1.22.4)",
		"AWS CLI: OK (2.15.0)",
		"Profile listed: OK",
		"Credentials: OK",
		"STS Identity: OK (Account: 123456789012)",
		"Region enabled: OK",
		"config.yaml present: Not found (optional)",
		"Config valid: OK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestDoctorAWSCLIMissing(t *testing.T) {
	out, result := runDoctorToString(t, missingCLIChecker(), goodMockAWS(), "table", defaultInput())
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false when aws CLI is missing")
	}
	if !strings.Contains(out, "AWS CLI: FAIL") {
		t.Errorf("expected AWS CLI failure line;\ngot:\n%s", out)
	}
}

func TestDoctorOldRuntime(t *testing.T) {
	checker := preflight.NewCheckerWith(
		func(string) (string, error) { return "/usr/bin/aws", nil },
		func(context.Context, string, ...string) ([]byte, error) { return []byte("aws-cli/2.1.0 Python/3.9"), nil },
		"go1.19.2",
	)
	out, result := runDoctorToString(t, checker, goodMockAWS(), "table", defaultInput())
	if result.OverallHealthy || result.Tools.Runtime {
		t.Error("expected runtime failure")
	}
	if !strings.Contains(out, "Go runtime: FAIL") {
		t.Errorf("expected runtime failure line;\ngot:\n%s", out)
	}
}

func TestDoctorCredentialsFail(t *testing.T) {
	awsP := &mockAWSProvider{profileErr: errors.New("no valid credential sources")}
	out, result := runDoctorToString(t, goodChecker(), awsP, "table", defaultInput())
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	for _, want := range []string{
		"Credentials: FAIL (no valid credential sources)",
		"STS Identity: FAIL (skipped)",
		"Region enabled: FAIL (skipped)",
		"Profile listed: WARN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestDoctorRegionNotEnabled(t *testing.T) {
	in := defaultInput()
	in.Region = "af-south-1"
	out, result := runDoctorToString(t, goodChecker(), goodMockAWS(), "table", in)
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false for a disabled region")
	}
	if !strings.Contains(out, "Region enabled: FAIL (region af-south-1 is not enabled for account 123456789012)") {
		t.Errorf("expected region failure line;\ngot:\n%s", out)
	}
}

func TestDoctorRegionsAPIError(t *testing.T) {
	awsP := goodMockAWS()
	awsP.regionsErr = errors.New("UnauthorizedOperation")
	_, result := runDoctorToString(t, goodChecker(), awsP, "json", defaultInput())
	if result.AWS.RegionEnabled || result.AWS.Error != "UnauthorizedOperation" {
		t.Errorf("unexpected AWS result: %+v", result.AWS)
	}
}

func TestDoctorProfileForwarded(t *testing.T) {
	awsP := goodMockAWS()
	in := defaultInput()
	in.Profile = "audit"
	_, result := runDoctorToString(t, goodChecker(), awsP, "table", in)
	if awsP.lastProfile != "audit" {
		t.Errorf("LoadProfile called with %q, want audit", awsP.lastProfile)
	}
	if !result.AWS.ProfileListed {
		t.Error("expected audit to be listed")
	}
}

func TestDoctorInvalidConfig(t *testing.T) {
	in := defaultInput()
	in.ConfigPresent = true
	in.ConfigErrors = []string{"aws.region: invalid value \"mars-1\""}
	out, result := runDoctorToString(t, goodChecker(), goodMockAWS(), "table", in)
	if result.OverallHealthy || result.Config.Valid {
		t.Error("expected invalid config to make the result unhealthy")
	}
	if !strings.Contains(out, "config.yaml present: YES") || !strings.Contains(out, "Config valid: FAIL") {
		t.Errorf("expected config failure lines;\ngot:\n%s", out)
	}
}

// ── JSON format tests ─────────────────────────────────────────────────────────

func TestDoctorJSONFormat(t *testing.T) {
	out, _ := runDoctorToString(t, goodChecker(), goodMockAWS(), "json", defaultInput())

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	for _, key := range []string{"tools", "aws", "config", "overall_healthy"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON missing key %q: %s", key, out)
		}
	}
	if decoded["overall_healthy"] != true {
		t.Errorf("overall_healthy = %v, want true", decoded["overall_healthy"])
	}
	aws := decoded["aws"].(map[string]any)
	if aws["account_id"] != "123456789012" {
		t.Errorf("account_id = %v", aws["account_id"])
	}
}

// ── config wiring ─────────────────────────────────────────────────────────────

func TestDoctorConfig_ReadsFileAndValidates(t *testing.T) {
	path := writeFile(t, "config.yaml", "aws:\n  region: mars-north-1\n  profile: audit\n")

	root := newRootCmd()
	doctor, _, err := root.Find([]string{"doctor"})
	if err != nil {
		t.Fatal(err)
	}

	in, cfg := doctorConfig(doctor, &globalOptions{configPath: path})
	if !in.ConfigPresent || in.ConfigPath != path {
		t.Errorf("config presence not detected: %+v", in)
	}
	if in.Profile != "audit" || cfg.AWS.Profile != "audit" {
		t.Errorf("profile = %q, want audit", in.Profile)
	}
	if len(in.ConfigErrors) != 1 || !strings.Contains(in.ConfigErrors[0], "aws.region") {
		t.Errorf("expected a single region error, got %v", in.ConfigErrors)
	}
}

func TestDoctorConfig_LoadErrorFallsBackToDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "aws: [broken\n")
	root := newRootCmd()
	doctor, _, _ := root.Find([]string{"doctor"})

	in, cfg := doctorConfig(doctor, &globalOptions{configPath: path})
	if len(in.ConfigErrors) != 1 {
		t.Fatalf("expected load error, got %v", in.ConfigErrors)
	}
	if cfg.AWS.Region != "us-east-1" || in.Profile != "default" {
		t.Errorf("expected defaults after load failure, got region=%q profile=%q", cfg.AWS.Region, in.Profile)
	}
}
