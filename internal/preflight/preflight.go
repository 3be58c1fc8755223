// Package preflight verifies the local environment before a report run makes
// any network call.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

const (
	// MinAWSCLIMajor is the lowest supported major version of the aws CLI.
	MinAWSCLIMajor = 2

	// MinGoMinor is the lowest supported go1.x runtime.
	MinGoMinor = 21
)

var (
	ErrAWSCLIMissing  = errors.New("aws CLI not found on PATH")
	ErrAWSCLIVersion  = fmt.Errorf("aws CLI major version %d or higher is required", MinAWSCLIMajor)
	ErrRuntimeVersion = fmt.Errorf("go1.%d or newer runtime is required", MinGoMinor)
)

// Result describes a passing environment.
type Result struct {
	AWSCLIPath    string `json:"aws_cli_path"`
	AWSCLIVersion string `json:"aws_cli_version"`
	GoVersion     string `json:"go_version"`
}

// CommandRunner runs name with args and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Checker runs the environment gate. The zero value is not usable; build one
// with NewChecker or NewCheckerWith.
type Checker struct {
	lookPath  func(string) (string, error)
	run       CommandRunner
	goVersion string
}

// NewChecker returns a Checker for the real host.
func NewChecker() *Checker {
	return &Checker{
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			// aws CLI v1 prints its version on stderr.
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		goVersion: runtime.Version(),
	}
}

// NewCheckerWith returns a Checker with injected lookups, for tests.
func NewCheckerWith(lookPath func(string) (string, error), run CommandRunner, goVersion string) *Checker {
	return &Checker{lookPath: lookPath, run: run, goVersion: goVersion}
}

// Check runs the runtime check and then the aws CLI check. The first failure
// is returned; the Result carries whatever was learned before it.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	var res Result

	goVersion, err := c.Runtime()
	res.GoVersion = goVersion
	if err != nil {
		return res, err
	}

	path, version, err := c.AWSCLI(ctx)
	res.AWSCLIPath = path
	res.AWSCLIVersion = version
	if err != nil {
		return res, err
	}
	return res, nil
}

// Runtime returns the Go runtime version and fails when it is older than
// go1.MinGoMinor. Development builds always pass.
func (c *Checker) Runtime() (string, error) {
	v := c.goVersion
	if strings.HasPrefix(v, "devel") {
		return v, nil
	}
	major, minor, err := ParseGoVersion(v)
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrRuntimeVersion, err)
	}
	if major < 1 || (major == 1 && minor < MinGoMinor) {
		return v, fmt.Errorf("%w: running %s", ErrRuntimeVersion, v)
	}
	return v, nil
}

// AWSCLI locates the aws binary and checks its major version.
func (c *Checker) AWSCLI(ctx context.Context) (string, string, error) {
	path, err := c.lookPath("aws")
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrAWSCLIMissing, err)
	}

	out, err := c.run(ctx, path, "--version")
	if err != nil {
		return path, "", fmt.Errorf("run %s --version: %w", path, err)
	}

	version, major, err := ParseAWSCLIVersion(string(out))
	if err != nil {
		return path, "", err
	}
	if major < MinAWSCLIMajor {
		return path, version, fmt.Errorf("%w: found %s", ErrAWSCLIVersion, version)
	}
	return path, version, nil
}

// ParseAWSCLIVersion extracts the version from `aws --version` output such as
// "aws-cli/2.15.0 Python/3.11.6 Linux/6.5.0". It returns the version string
// and its major component.
func ParseAWSCLIVersion(out string) (string, int, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", 0, errors.New("parse aws --version: empty output")
	}
	_, version, ok := strings.Cut(fields[0], "/")
	if !ok || version == "" {
		return "", 0, fmt.Errorf("parse aws --version: unexpected output %q", fields[0])
	}
	majorStr, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return version, 0, fmt.Errorf("parse aws --version: major version %q: %w", majorStr, err)
	}
	return version, major, nil
}

// ParseGoVersion parses a runtime.Version string like "go1.22.3" or
// "go1.23rc1" into its major and minor numbers.
func ParseGoVersion(v string) (int, int, error) {
	rest, ok := strings.CutPrefix(v, "go")
	if !ok {
		return 0, 0, fmt.Errorf("parse go version %q: missing go prefix", v)
	}
	majorStr, rest, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, 0, fmt.Errorf("parse go version %q: missing minor version", v)
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parse go version %q: %w", v, err)
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	minor, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, 0, fmt.Errorf("parse go version %q: %w", v, err)
	}
	return major, minor, nil
}
