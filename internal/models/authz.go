package models

import (
	"encoding/json"
	"time"
)

// ---------------------------------------------------------------------------
// GetAccountAuthorizationDetails models
//
// JSON field names mirror the IAM API response so the written report can be
// consumed by any tool that understands the raw API shape.
// ---------------------------------------------------------------------------

// AuthorizationAggregate is the full result of one report run. Each list keeps
// API page order; nothing is deduplicated.
type AuthorizationAggregate struct {
	UserDetailList  []UserDetail    `json:"UserDetailList"`
	GroupDetailList []GroupDetail   `json:"GroupDetailList"`
	RoleDetailList  []RoleListEntry `json:"RoleDetailList"`
	Policies        []ManagedPolicy `json:"Policies"`
}

// NewAuthorizationAggregate returns an aggregate whose lists are empty but
// non-nil, so they serialise as [] rather than null.
func NewAuthorizationAggregate() *AuthorizationAggregate {
	return &AuthorizationAggregate{
		UserDetailList:  []UserDetail{},
		GroupDetailList: []GroupDetail{},
		RoleDetailList:  []RoleListEntry{},
		Policies:        []ManagedPolicy{},
	}
}

// AttachedPolicy is a managed policy reference attached to a principal.
type AttachedPolicy struct {
	PolicyName string `json:"PolicyName"`
	PolicyArn  string `json:"PolicyArn"`
}

// InlinePolicy is a policy embedded directly in a user, group, or role.
// PolicyDocument holds the URL-decoded document as a JSON value.
type InlinePolicy struct {
	PolicyName     string          `json:"PolicyName"`
	PolicyDocument json.RawMessage `json:"PolicyDocument"`
}

// PermissionsBoundary describes the boundary policy set on a user or role.
type PermissionsBoundary struct {
	PermissionsBoundaryType string `json:"PermissionsBoundaryType"`
	PermissionsBoundaryArn  string `json:"PermissionsBoundaryArn"`
}

// Tag is an IAM resource tag.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// UserDetail is one entry of UserDetailList.
type UserDetail struct {
	Path                    string               `json:"Path"`
	UserName                string               `json:"UserName"`
	UserId                  string               `json:"UserId"`
	Arn                     string               `json:"Arn"`
	CreateDate              time.Time            `json:"CreateDate"`
	UserPolicyList          []InlinePolicy       `json:"UserPolicyList"`
	GroupList               []string             `json:"GroupList"`
	AttachedManagedPolicies []AttachedPolicy     `json:"AttachedManagedPolicies"`
	PermissionsBoundary     *PermissionsBoundary `json:"PermissionsBoundary,omitempty"`
	Tags                    []Tag                `json:"Tags"`
}

// GroupDetail is one entry of GroupDetailList.
type GroupDetail struct {
	Path                    string           `json:"Path"`
	GroupName               string           `json:"GroupName"`
	GroupId                 string           `json:"GroupId"`
	Arn                     string           `json:"Arn"`
	CreateDate              time.Time        `json:"CreateDate"`
	GroupPolicyList         []InlinePolicy   `json:"GroupPolicyList"`
	AttachedManagedPolicies []AttachedPolicy `json:"AttachedManagedPolicies"`
}

// RoleLastUsed records when and where a role was last assumed.
type RoleLastUsed struct {
	LastUsedDate *time.Time `json:"LastUsedDate,omitempty"`
	Region       string     `json:"Region,omitempty"`
}

// InstanceProfileRole is the role summary nested in an instance profile.
type InstanceProfileRole struct {
	Path                     string          `json:"Path"`
	RoleName                 string          `json:"RoleName"`
	RoleId                   string          `json:"RoleId"`
	Arn                      string          `json:"Arn"`
	CreateDate               time.Time       `json:"CreateDate"`
	AssumeRolePolicyDocument json.RawMessage `json:"AssumeRolePolicyDocument,omitempty"`
	Description              string          `json:"Description,omitempty"`
	MaxSessionDuration       *int32          `json:"MaxSessionDuration,omitempty"`
}

// InstanceProfile is an EC2 instance profile that contains a role.
type InstanceProfile struct {
	Path                string                `json:"Path"`
	InstanceProfileName string                `json:"InstanceProfileName"`
	InstanceProfileId   string                `json:"InstanceProfileId"`
	Arn                 string                `json:"Arn"`
	CreateDate          time.Time             `json:"CreateDate"`
	Roles               []InstanceProfileRole `json:"Roles"`
	Tags                []Tag                 `json:"Tags,omitempty"`
}

// RoleDetail is one role entry of RoleDetailList.
type RoleDetail struct {
	Path                     string               `json:"Path"`
	RoleName                 string               `json:"RoleName"`
	RoleId                   string               `json:"RoleId"`
	Arn                      string               `json:"Arn"`
	CreateDate               time.Time            `json:"CreateDate"`
	AssumeRolePolicyDocument json.RawMessage      `json:"AssumeRolePolicyDocument,omitempty"`
	InstanceProfileList      []InstanceProfile    `json:"InstanceProfileList"`
	RolePolicyList           []InlinePolicy       `json:"RolePolicyList"`
	AttachedManagedPolicies  []AttachedPolicy     `json:"AttachedManagedPolicies"`
	PermissionsBoundary      *PermissionsBoundary `json:"PermissionsBoundary,omitempty"`
	Tags                     []Tag                `json:"Tags"`
	RoleLastUsed             *RoleLastUsed        `json:"RoleLastUsed,omitempty"`
}

// PolicyVersion is one stored version of a managed policy.
type PolicyVersion struct {
	Document         json.RawMessage `json:"Document"`
	VersionId        string          `json:"VersionId"`
	IsDefaultVersion bool            `json:"IsDefaultVersion"`
	CreateDate       time.Time       `json:"CreateDate"`
}

// ManagedPolicy is one entry of Policies (customer or AWS managed).
type ManagedPolicy struct {
	PolicyName                    string          `json:"PolicyName"`
	PolicyId                      string          `json:"PolicyId"`
	Arn                           string          `json:"Arn"`
	Path                          string          `json:"Path"`
	DefaultVersionId              string          `json:"DefaultVersionId"`
	AttachmentCount               int32           `json:"AttachmentCount"`
	PermissionsBoundaryUsageCount int32           `json:"PermissionsBoundaryUsageCount"`
	IsAttachable                  bool            `json:"IsAttachable"`
	Description                   string          `json:"Description,omitempty"`
	CreateDate                    time.Time       `json:"CreateDate"`
	UpdateDate                    time.Time       `json:"UpdateDate"`
	PolicyVersionList             []PolicyVersion `json:"PolicyVersionList"`
}

// RoleListEntry is an element of RoleDetailList. Role-filter pages carry a
// Policies array next to their roles, and those policies are appended to the
// same list, so an entry holds exactly one of Role or Policy.
type RoleListEntry struct {
	Role   *RoleDetail
	Policy *ManagedPolicy
}

// RoleEntry wraps a role record.
func RoleEntry(r RoleDetail) RoleListEntry { return RoleListEntry{Role: &r} }

// PolicyEntry wraps a policy record found on a role-filter page.
func PolicyEntry(p ManagedPolicy) RoleListEntry { return RoleListEntry{Policy: &p} }

// IsPolicy reports whether the entry holds a policy rather than a role.
func (e RoleListEntry) IsPolicy() bool { return e.Policy != nil }

// MarshalJSON writes whichever record the entry holds.
func (e RoleListEntry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Role != nil:
		return json.Marshal(e.Role)
	case e.Policy != nil:
		return json.Marshal(e.Policy)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decides the variant by the presence of a RoleName or
// PolicyName key.
func (e *RoleListEntry) UnmarshalJSON(data []byte) error {
	var probe struct {
		RoleName   *string `json:"RoleName"`
		PolicyName *string `json:"PolicyName"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*e = RoleListEntry{}
	if probe.RoleName == nil && probe.PolicyName != nil {
		var p ManagedPolicy
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		e.Policy = &p
		return nil
	}
	var r RoleDetail
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	e.Role = &r
	return nil
}
