package common

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients. It is the unit passed between provider
// functions and into the engine.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the region every client in Clients is scoped to.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients for Region.
	Clients *ClientSet
}

// ClientOptions tunes how SDK configurations are loaded. Zero values fall
// back to the package defaults.
type ClientOptions struct {
	// Region overrides the profile's configured region.
	Region string

	// MaxAttempts is the total number of attempts the standard retryer makes
	// per API call, including the first one.
	MaxAttempts int

	// ConnectTimeout bounds TCP connection establishment per attempt.
	ConnectTimeout time.Duration
}

const (
	DefaultRegion         = "us-east-1"
	DefaultMaxAttempts    = 10
	DefaultConnectTimeout = 5 * time.Second
)

// AWSClientProvider loads AWS configurations and resolves active regions.
// It is the sole entry point for AWS credential and region management across
// the provider layer.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile.
	// Pass an empty string to load the default profile.
	LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error)

	// GetActiveRegions returns all regions that are enabled for the account
	// associated with cfg.
	GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error)

	// ListProfiles returns every profile name defined in the shared AWS
	// config and credentials files.
	ListProfiles() ([]string, error)
}
