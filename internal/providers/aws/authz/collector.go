package awsauthz

import (
	"context"

	"github.com/pankaj-dahiya-devops/aadr/internal/models"
	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
)

// Collector gathers the full authorization detail of an AWS account.
//
// Implementations must drain every page of every filter and must not return a
// partial aggregate: any API or transport failure aborts the whole collection.
type Collector interface {
	Collect(
		ctx context.Context,
		profile *common.ProfileConfig,
		opts CollectOptions,
	) (*models.AuthorizationAggregate, error)
}

// CollectOptions controls which policies and versions end up in the aggregate.
type CollectOptions struct {
	// IncludeNonDefaultVersions keeps the full version history of AWS managed
	// policies instead of only the default version.
	IncludeNonDefaultVersions bool

	// IncludeUnattached keeps managed policies with an attachment count of 0.
	IncludeUnattached bool

	// SkipRolePagePolicies drops the Policies array that role-filter pages
	// carry instead of appending it to RoleDetailList.
	SkipRolePagePolicies bool

	// PageSize maps to the API MaxItems parameter. 0 uses the service default.
	PageSize int32
}
