// Package opener launches a desktop spreadsheet application for a generated
// workbook.
package opener

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// Platform is the operating-system family that decides how a file is opened.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformUnknown Platform = "unknown"
)

// ErrUnsupportedPlatform is returned when no launch command is known for the
// detected platform.
var ErrUnsupportedPlatform = errors.New("no spreadsheet application known for this platform")

// Opener detects the platform and opens a file with its spreadsheet
// application.
type Opener interface {
	DetectPlatform() Platform
	Open(ctx context.Context, path string, platform Platform) error
}

// PlatformFromGOOS maps a runtime.GOOS value to a Platform.
func PlatformFromGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return PlatformWindows
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformDarwin
	default:
		return PlatformUnknown
	}
}

// Command returns the program and arguments that open path on platform:
// Excel through cmd start on Windows, LibreOffice on Linux and Microsoft Excel
// through open on macOS.
func Command(path string, platform Platform) (string, []string, error) {
	switch platform {
	case PlatformWindows:
		return "cmd", []string{"/c", "start", "excel.exe", path}, nil
	case PlatformLinux:
		return "libreoffice", []string{path}, nil
	case PlatformDarwin:
		return "open", []string{"-a", "Microsoft Excel", path}, nil
	default:
		return "", nil, fmt.Errorf("open %s on %q: %w", path, platform, ErrUnsupportedPlatform)
	}
}

// Runner executes a prepared command. Swap it in tests.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command and waits for it to exit.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// SystemOpener is the production Opener.
type SystemOpener struct {
	goos string
	run  Runner
}

// NewSystemOpener returns an Opener for the running operating system.
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{goos: runtime.GOOS, run: ExecRunner}
}

// NewSystemOpenerWith returns an Opener that reports goos as the platform and
// launches commands through run.
func NewSystemOpenerWith(goos string, run Runner) *SystemOpener {
	return &SystemOpener{goos: goos, run: run}
}

func (o *SystemOpener) DetectPlatform() Platform { return PlatformFromGOOS(o.goos) }

// Open launches the spreadsheet application for platform and waits for the
// launcher to return.
func (o *SystemOpener) Open(ctx context.Context, path string, platform Platform) error {
	name, args, err := Command(path, platform)
	if err != nil {
		return err
	}
	if err := o.run(ctx, name, args...); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}
