package awsauthz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/aadr/internal/models"
	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
)

// filterOrder is the order in which entity filters are drained. Each filter
// is paged to completion before the next one starts.
var filterOrder = []iamtypes.EntityType{
	iamtypes.EntityTypeUser,
	iamtypes.EntityTypeGroup,
	iamtypes.EntityTypeRole,
	iamtypes.EntityTypeLocalManagedPolicy,
	iamtypes.EntityTypeAWSManagedPolicy,
}

// DefaultCollector is the production Collector. It walks
// GetAccountAuthorizationDetails once per entity filter using the IAM client
// from the supplied profile.
type DefaultCollector struct {
	logger *slog.Logger
}

// NewDefaultCollector returns a collector that logs page progress to logger.
// A nil logger discards all records.
func NewDefaultCollector(logger *slog.Logger) *DefaultCollector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultCollector{logger: logger}
}

// Collect drains every filter in order and returns the assembled aggregate.
// The first API error aborts collection and no aggregate is returned.
func (c *DefaultCollector) Collect(
	ctx context.Context,
	profile *common.ProfileConfig,
	opts CollectOptions,
) (*models.AuthorizationAggregate, error) {
	if profile == nil || profile.Clients == nil || profile.Clients.IAM == nil {
		return nil, errors.New("collect authorization details: profile has no IAM client")
	}

	agg := models.NewAuthorizationAggregate()
	for _, filter := range filterOrder {
		if err := c.collectFilter(ctx, profile.Clients.IAM, filter, opts, agg); err != nil {
			return nil, err
		}
	}

	c.logger.Info("authorization details collected",
		"account", profile.AccountID,
		"users", len(agg.UserDetailList),
		"groups", len(agg.GroupDetailList),
		"roles", len(agg.RoleDetailList),
		"policies", len(agg.Policies),
	)
	return agg, nil
}

// collectFilter pages through a single entity filter and appends each page's
// records to agg.
func (c *DefaultCollector) collectFilter(
	ctx context.Context,
	client common.IAMClient,
	filter iamtypes.EntityType,
	opts CollectOptions,
	agg *models.AuthorizationAggregate,
) error {
	paginator := iamsvc.NewGetAccountAuthorizationDetailsPaginator(client,
		&iamsvc.GetAccountAuthorizationDetailsInput{
			Filter: []iamtypes.EntityType{filter},
		},
		func(o *iamsvc.GetAccountAuthorizationDetailsPaginatorOptions) {
			if opts.PageSize > 0 {
				o.Limit = opts.PageSize
			}
		},
	)

	for page := 1; paginator.HasMorePages(); page++ {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return wrapAPIError(filter, page, err)
		}

		switch filter {
		case iamtypes.EntityTypeUser:
			for _, u := range out.UserDetailList {
				agg.UserDetailList = append(agg.UserDetailList, convertUser(u))
			}
		case iamtypes.EntityTypeGroup:
			for _, g := range out.GroupDetailList {
				agg.GroupDetailList = append(agg.GroupDetailList, convertGroup(g))
			}
		case iamtypes.EntityTypeRole:
			for _, r := range out.RoleDetailList {
				agg.RoleDetailList = append(agg.RoleDetailList, models.RoleEntry(convertRole(r)))
			}
			// Role pages also carry policy metadata. It lands in the same
			// list unless the caller opted out.
			if !opts.SkipRolePagePolicies {
				for _, p := range out.Policies {
					agg.RoleDetailList = append(agg.RoleDetailList, models.PolicyEntry(convertPolicy(p)))
				}
			}
		case iamtypes.EntityTypeLocalManagedPolicy:
			c.appendPolicies(agg, out.Policies, ScopeLocal, opts)
		case iamtypes.EntityTypeAWSManagedPolicy:
			c.appendPolicies(agg, out.Policies, ScopeAWS, opts)
		}

		c.logger.Debug("authorization details page",
			"filter", string(filter),
			"page", page,
			"users", len(out.UserDetailList),
			"groups", len(out.GroupDetailList),
			"roles", len(out.RoleDetailList),
			"policies", len(out.Policies),
		)
	}
	return nil
}

func (c *DefaultCollector) appendPolicies(
	agg *models.AuthorizationAggregate,
	in []iamtypes.ManagedPolicyDetail,
	scope PolicyScope,
	opts CollectOptions,
) {
	for _, raw := range in {
		p, ok := Reduce(convertPolicy(raw), scope, opts)
		if !ok {
			c.logger.Debug("skipping unattached policy", "scope", scope.String(), "arn", aws.ToString(raw.Arn))
			continue
		}
		agg.Policies = append(agg.Policies, p)
	}
}

// wrapAPIError annotates err with the filter and page that failed. When err is
// a service error its code is included so throttling and access-denied
// failures are distinguishable in the CLI output.
func wrapAPIError(filter iamtypes.EntityType, page int, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("get account authorization details (filter %s, page %d): %s: %w",
			filter, page, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("get account authorization details (filter %s, page %d): %w", filter, page, err)
}
