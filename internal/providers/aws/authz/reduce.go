package awsauthz

import "github.com/pankaj-dahiya-devops/aadr/internal/models"

// PolicyScope tells the reducer whether a policy is customer managed or AWS
// managed. Only AWS managed policies are ever version-reduced.
type PolicyScope int

const (
	ScopeLocal PolicyScope = iota
	ScopeAWS
)

func (s PolicyScope) String() string {
	if s == ScopeAWS {
		return "AWS"
	}
	return "Local"
}

// Include reports whether p passes the attachment filter.
func Include(p models.ManagedPolicy, opts CollectOptions) bool {
	return p.AttachmentCount > 0 || opts.IncludeUnattached
}

// DefaultVersionOnly returns a copy of p whose PolicyVersionList holds only
// the first version matching DefaultVersionId. When no version matches the
// list is empty. Every other field is copied unchanged and p is not modified.
func DefaultVersionOnly(p models.ManagedPolicy) models.ManagedPolicy {
	out := p
	out.PolicyVersionList = []models.PolicyVersion{}
	for _, v := range p.PolicyVersionList {
		if v.VersionId == p.DefaultVersionId {
			out.PolicyVersionList = append(out.PolicyVersionList, v)
			break
		}
	}
	return out
}

// Reduce applies the inclusion filter and, for AWS managed policies, the
// default-version reduction. The boolean is false when p is excluded.
func Reduce(p models.ManagedPolicy, scope PolicyScope, opts CollectOptions) (models.ManagedPolicy, bool) {
	if !Include(p, opts) {
		return models.ManagedPolicy{}, false
	}
	if scope == ScopeLocal || opts.IncludeNonDefaultVersions {
		return p, true
	}
	return DefaultVersionOnly(p), true
}
