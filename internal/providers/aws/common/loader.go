package common

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultAWSClientProvider is the production implementation of AWSClientProvider.
// It reads credentials from the standard AWS shared config and credentials files
// (~/.aws/config and ~/.aws/credentials) using the AWS SDK v2.
//
// Inject a custom ClientFactory via NewDefaultAWSClientProviderWithFactory to
// replace real SDK clients with mocks in unit tests.
type DefaultAWSClientProvider struct {
	factory ClientFactory
	opts    ClientOptions
}

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider(opts ClientOptions) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet, opts: opts.withDefaults()}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSet. Pass a mock factory in tests.
func NewDefaultAWSClientProviderWithFactory(opts ClientOptions, f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f, opts: opts.withDefaults()}
}

// Options returns the effective client options after defaults are applied.
func (p *DefaultAWSClientProvider) Options() ClientOptions { return p.opts }

func (o ClientOptions) withDefaults() ClientOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	return o
}

// ---------------------------------------------------------------------------
// AWSClientProvider implementation
// ---------------------------------------------------------------------------

// LoadProfile loads the AWS SDK config for the named profile and returns a
// fully populated ProfileConfig including the resolved account ID and
// initialised service clients.
//
// Pass an empty string to load the default profile.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, p.loadOptions(profile)...)
	if err != nil {
		return nil, fmt.Errorf("load AWS profile %q: %w", profileDisplayName(profile), err)
	}

	// Fall back to us-east-1 when neither the flag nor the profile names a
	// region so that all SDK clients can be constructed successfully.
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	clients := p.factory(cfg)

	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   accountID,
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// GetActiveRegions returns all AWS regions that are enabled (opted-in) for
// the account associated with cfg. It uses EC2 DescribeRegions, which is a
// global call and works correctly regardless of the client's home region.
func (p *DefaultAWSClientProvider) GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error) {
	out, err := cfg.Clients.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		// AllRegions false (default) returns only regions the account has
		// opted into; it excludes disabled / not-subscribed regions.
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions for profile %q: %w", cfg.ProfileName, err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	return regions, nil
}

// ListProfiles returns the deduplicated profile names found in the shared
// credentials and config files. AWS_SHARED_CREDENTIALS_FILE and
// AWS_CONFIG_FILE override the default locations, as they do for the SDK.
func (p *DefaultAWSClientProvider) ListProfiles() ([]string, error) {
	names, err := discoverProfileNames()
	if err != nil {
		return nil, fmt.Errorf("discover AWS profiles: %w", err)
	}
	return names, nil
}

// ---------------------------------------------------------------------------
// Package-private helpers
// ---------------------------------------------------------------------------

// loadOptions translates the provider options into SDK load options. The
// standard retryer carries the attempt budget and the buildable HTTP client
// carries the connect timeout.
func (p *DefaultAWSClientProvider) loadOptions(profile string) []func(*awsconfig.LoadOptions) error {
	maxAttempts := p.opts.MaxAttempts
	connectTimeout := p.opts.ConnectTimeout

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = maxAttempts
			})
		}),
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = connectTimeout
		})),
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if p.opts.Region != "" {
		opts = append(opts, awsconfig.WithRegion(p.opts.Region))
	}
	return opts
}

// profileDisplayName returns a human-readable profile identifier. An empty
// string (the default profile) is shown as "default".
func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// resolveAccountID calls STS GetCallerIdentity to retrieve the numeric AWS
// account ID for the credentials currently loaded in stsClient.
func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}

// sharedFilePath returns the value of env when set, otherwise ~/.aws/<name>.
func sharedFilePath(env, name string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".aws", name), nil
}

// discoverProfileNames reads the shared credentials and config files and
// returns the deduplicated list of all profile names found.
func discoverProfileNames() ([]string, error) {
	credPath, err := sharedFilePath("AWS_SHARED_CREDENTIALS_FILE", "credentials")
	if err != nil {
		return nil, err
	}
	cfgPath, err := sharedFilePath("AWS_CONFIG_FILE", "config")
	if err != nil {
		return nil, err
	}

	// credentials: section headers are the bare profile name.
	credProfiles, err := parseProfilesFromFile(credPath, false)
	if err != nil {
		return nil, err
	}

	// config: non-default profiles are prefixed with "profile ".
	cfgProfiles, err := parseProfilesFromFile(cfgPath, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all, nil
}

// parseProfilesFromFile scans path for INI section headers ([...]) and
// returns the profile name from each header.
//
// When stripProfilePrefix is true, the "profile " prefix used in
// ~/.aws/config is removed ("[profile staging]" becomes "staging").
// Other config sections such as [sso-session x] are skipped.
//
// If the file does not exist, nil is returned without an error.
func parseProfilesFromFile(path string, stripProfilePrefix bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var profiles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}

		name := strings.TrimSpace(line[1 : len(line)-1])

		if stripProfilePrefix && name != "default" {
			if !strings.HasPrefix(name, "profile ") {
				continue
			}
			name = strings.TrimPrefix(name, "profile ")
		}

		profiles = append(profiles, strings.TrimSpace(name))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return profiles, nil
}
