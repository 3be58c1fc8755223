package awsauthz

import (
	"encoding/json"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/pankaj-dahiya-devops/aadr/internal/models"
)

// ---------------------------------------------------------------------------
// SDK -> model conversion
//
// IAM returns policy documents URL-encoded. They are decoded here and embedded
// as JSON values so the written report is readable without a second pass.
// ---------------------------------------------------------------------------

// decodeDocument URL-decodes doc and returns it as a JSON value. A document
// that is not valid JSON after decoding is kept as a JSON string.
func decodeDocument(doc *string) json.RawMessage {
	if doc == nil {
		return nil
	}
	raw := *doc
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	b, _ := json.Marshal(raw)
	return json.RawMessage(b)
}

func convertInlinePolicies(in []iamtypes.PolicyDetail) []models.InlinePolicy {
	out := make([]models.InlinePolicy, 0, len(in))
	for _, p := range in {
		out = append(out, models.InlinePolicy{
			PolicyName:     aws.ToString(p.PolicyName),
			PolicyDocument: decodeDocument(p.PolicyDocument),
		})
	}
	return out
}

func convertAttached(in []iamtypes.AttachedPolicy) []models.AttachedPolicy {
	out := make([]models.AttachedPolicy, 0, len(in))
	for _, p := range in {
		out = append(out, models.AttachedPolicy{
			PolicyName: aws.ToString(p.PolicyName),
			PolicyArn:  aws.ToString(p.PolicyArn),
		})
	}
	return out
}

func convertBoundary(in *iamtypes.AttachedPermissionsBoundary) *models.PermissionsBoundary {
	if in == nil {
		return nil
	}
	return &models.PermissionsBoundary{
		PermissionsBoundaryType: string(in.PermissionsBoundaryType),
		PermissionsBoundaryArn:  aws.ToString(in.PermissionsBoundaryArn),
	}
}

func convertTags(in []iamtypes.Tag) []models.Tag {
	out := make([]models.Tag, 0, len(in))
	for _, t := range in {
		out = append(out, models.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return out
}

func convertUser(u iamtypes.UserDetail) models.UserDetail {
	groups := u.GroupList
	if groups == nil {
		groups = []string{}
	}
	return models.UserDetail{
		Path:                    aws.ToString(u.Path),
		UserName:                aws.ToString(u.UserName),
		UserId:                  aws.ToString(u.UserId),
		Arn:                     aws.ToString(u.Arn),
		CreateDate:              aws.ToTime(u.CreateDate),
		UserPolicyList:          convertInlinePolicies(u.UserPolicyList),
		GroupList:               groups,
		AttachedManagedPolicies: convertAttached(u.AttachedManagedPolicies),
		PermissionsBoundary:     convertBoundary(u.PermissionsBoundary),
		Tags:                    convertTags(u.Tags),
	}
}

func convertGroup(g iamtypes.GroupDetail) models.GroupDetail {
	return models.GroupDetail{
		Path:                    aws.ToString(g.Path),
		GroupName:               aws.ToString(g.GroupName),
		GroupId:                 aws.ToString(g.GroupId),
		Arn:                     aws.ToString(g.Arn),
		CreateDate:              aws.ToTime(g.CreateDate),
		GroupPolicyList:         convertInlinePolicies(g.GroupPolicyList),
		AttachedManagedPolicies: convertAttached(g.AttachedManagedPolicies),
	}
}

func convertInstanceProfiles(in []iamtypes.InstanceProfile) []models.InstanceProfile {
	out := make([]models.InstanceProfile, 0, len(in))
	for _, ip := range in {
		roles := make([]models.InstanceProfileRole, 0, len(ip.Roles))
		for _, r := range ip.Roles {
			roles = append(roles, models.InstanceProfileRole{
				Path:                     aws.ToString(r.Path),
				RoleName:                 aws.ToString(r.RoleName),
				RoleId:                   aws.ToString(r.RoleId),
				Arn:                      aws.ToString(r.Arn),
				CreateDate:               aws.ToTime(r.CreateDate),
				AssumeRolePolicyDocument: decodeDocument(r.AssumeRolePolicyDocument),
				Description:              aws.ToString(r.Description),
				MaxSessionDuration:       r.MaxSessionDuration,
			})
		}
		var tags []models.Tag
		if len(ip.Tags) > 0 {
			tags = convertTags(ip.Tags)
		}
		out = append(out, models.InstanceProfile{
			Path:                aws.ToString(ip.Path),
			InstanceProfileName: aws.ToString(ip.InstanceProfileName),
			InstanceProfileId:   aws.ToString(ip.InstanceProfileId),
			Arn:                 aws.ToString(ip.Arn),
			CreateDate:          aws.ToTime(ip.CreateDate),
			Roles:               roles,
			Tags:                tags,
		})
	}
	return out
}

func convertRole(r iamtypes.RoleDetail) models.RoleDetail {
	var lastUsed *models.RoleLastUsed
	if r.RoleLastUsed != nil {
		lastUsed = &models.RoleLastUsed{
			LastUsedDate: r.RoleLastUsed.LastUsedDate,
			Region:       aws.ToString(r.RoleLastUsed.Region),
		}
	}
	return models.RoleDetail{
		Path:                     aws.ToString(r.Path),
		RoleName:                 aws.ToString(r.RoleName),
		RoleId:                   aws.ToString(r.RoleId),
		Arn:                      aws.ToString(r.Arn),
		CreateDate:               aws.ToTime(r.CreateDate),
		AssumeRolePolicyDocument: decodeDocument(r.AssumeRolePolicyDocument),
		InstanceProfileList:      convertInstanceProfiles(r.InstanceProfileList),
		RolePolicyList:           convertInlinePolicies(r.RolePolicyList),
		AttachedManagedPolicies:  convertAttached(r.AttachedManagedPolicies),
		PermissionsBoundary:      convertBoundary(r.PermissionsBoundary),
		Tags:                     convertTags(r.Tags),
		RoleLastUsed:             lastUsed,
	}
}

func convertPolicy(p iamtypes.ManagedPolicyDetail) models.ManagedPolicy {
	versions := make([]models.PolicyVersion, 0, len(p.PolicyVersionList))
	for _, v := range p.PolicyVersionList {
		versions = append(versions, models.PolicyVersion{
			Document:         decodeDocument(v.Document),
			VersionId:        aws.ToString(v.VersionId),
			IsDefaultVersion: v.IsDefaultVersion,
			CreateDate:       aws.ToTime(v.CreateDate),
		})
	}
	return models.ManagedPolicy{
		PolicyName:                    aws.ToString(p.PolicyName),
		PolicyId:                      aws.ToString(p.PolicyId),
		Arn:                           aws.ToString(p.Arn),
		Path:                          aws.ToString(p.Path),
		DefaultVersionId:              aws.ToString(p.DefaultVersionId),
		AttachmentCount:               aws.ToInt32(p.AttachmentCount),
		PermissionsBoundaryUsageCount: aws.ToInt32(p.PermissionsBoundaryUsageCount),
		IsAttachable:                  p.IsAttachable,
		Description:                   aws.ToString(p.Description),
		CreateDate:                    aws.ToTime(p.CreateDate),
		UpdateDate:                    aws.ToTime(p.UpdateDate),
		PolicyVersionList:             versions,
	}
}
