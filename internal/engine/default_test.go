package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pankaj-dahiya-devops/aadr/internal/models"
	"github.com/pankaj-dahiya-devops/aadr/internal/opener"
	awsauthz "github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/authz"
	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

// fakeIAM returns a single page per filter.
type fakeIAM struct {
	pages map[iamtypes.EntityType]iamsvc.GetAccountAuthorizationDetailsOutput
	err   error
}

func (f *fakeIAM) GetAccountAuthorizationDetails(
	_ context.Context,
	in *iamsvc.GetAccountAuthorizationDetailsInput,
	_ ...func(*iamsvc.Options),
) (*iamsvc.GetAccountAuthorizationDetailsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.pages[in.Filter[0]]
	return &out, nil
}

type fakeS3 struct {
	keys []string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

type fakeProvider struct {
	clients *common.ClientSet
	err     error
	loads   []string
}

func (p *fakeProvider) LoadProfile(_ context.Context, profile string) (*common.ProfileConfig, error) {
	p.loads = append(p.loads, profile)
	if p.err != nil {
		return nil, p.err
	}
	name := profile
	if name == "" {
		name = "default"
	}
	return &common.ProfileConfig{
		ProfileName: name,
		AccountID:   "123456789012",
		Region:      "us-east-1",
		Clients:     p.clients,
	}, nil
}

func (p *fakeProvider) GetActiveRegions(context.Context, *common.ProfileConfig) ([]string, error) {
	return []string{"us-east-1"}, nil
}

func (p *fakeProvider) ListProfiles() ([]string, error) { return []string{"default"}, nil }

type fakeOpener struct {
	platform opener.Platform
	opened   []string
	err      error
}

func (o *fakeOpener) DetectPlatform() opener.Platform { return o.platform }

func (o *fakeOpener) Open(_ context.Context, path string, platform opener.Platform) error {
	if platform == opener.PlatformUnknown {
		return opener.ErrUnsupportedPlatform
	}
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, path)
	return nil
}

// ── fixtures ──────────────────────────────────────────────────────────────────

func fullUser(name string) iamtypes.UserDetail {
	return iamtypes.UserDetail{
		Path:     aws.String("/"),
		UserName: aws.String(name),
		UserId:   aws.String("AID" + name),
		Arn:      aws.String("arn:aws:iam::123456789012:user/" + name),
		UserPolicyList: []iamtypes.PolicyDetail{{
			PolicyName:     aws.String("inline"),
			PolicyDocument: aws.String(`{"Version":"2012-10-17"}`),
		}},
		GroupList: []string{"admins", "devs"},
		AttachedManagedPolicies: []iamtypes.AttachedPolicy{{
			PolicyName: aws.String("ReadOnlyAccess"),
			PolicyArn:  aws.String("arn:aws:iam::aws:policy/ReadOnlyAccess"),
		}},
		Tags: []iamtypes.Tag{{Key: aws.String("team"), Value: aws.String("sec")}},
	}
}

func accountPages() map[iamtypes.EntityType]iamsvc.GetAccountAuthorizationDetailsOutput {
	return map[iamtypes.EntityType]iamsvc.GetAccountAuthorizationDetailsOutput{
		iamtypes.EntityTypeUser: {
			UserDetailList: []iamtypes.UserDetail{fullUser("alice"), fullUser("bob")},
		},
		iamtypes.EntityTypeGroup: {
			GroupDetailList: []iamtypes.GroupDetail{{GroupName: aws.String("admins")}},
		},
		iamtypes.EntityTypeRole: {
			RoleDetailList: []iamtypes.RoleDetail{{RoleName: aws.String("deployer")}},
		},
		iamtypes.EntityTypeAWSManagedPolicy: {
			Policies: []iamtypes.ManagedPolicyDetail{{
				PolicyName:       aws.String("ReadOnlyAccess"),
				DefaultVersionId: aws.String("v2"),
				AttachmentCount:  aws.Int32(1),
				PolicyVersionList: []iamtypes.PolicyVersion{
					{VersionId: aws.String("v1")},
					{VersionId: aws.String("v2"), IsDefaultVersion: true},
				},
			}},
		},
	}
}

func newTestEngine(iam *fakeIAM, s3c *fakeS3, op *fakeOpener) (*DefaultEngine, *fakeProvider) {
	clients := &common.ClientSet{IAM: iam}
	if s3c != nil {
		clients.S3 = s3c
	}
	p := &fakeProvider{clients: clients}
	var o opener.Opener
	if op != nil {
		o = op
	}
	return NewDefaultEngine(p, awsauthz.NewDefaultCollector(nil), o, nil), p
}

// ── RunReport ─────────────────────────────────────────────────────────────────

func TestRunReport_WritesBothArtifacts(t *testing.T) {
	e, p := newTestEngine(&fakeIAM{pages: accountPages()}, nil, nil)
	out := filepath.Join(t.TempDir(), "nested", "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Profile: "audit", Output: out})
	require.NoError(t, err)

	assert.Equal(t, []string{"audit"}, p.loads)
	assert.Equal(t, "123456789012", res.AccountID)
	assert.Equal(t, "audit", res.Profile)
	assert.Equal(t, "us-east-1", res.Region)
	assert.Equal(t, out, res.JSONPath)
	assert.Equal(t, filepath.Join(filepath.Dir(out), "report.xlsx"), res.SpreadsheetPath)
	assert.Equal(t, "UserDetailList", res.SheetName)
	assert.Equal(t, models.ReportCounts{Users: 2, Groups: 1, Roles: 1, Policies: 1}, res.Counts)
	assert.False(t, res.Flattened)
	assert.False(t, res.Opened)
	assert.Empty(t, res.Uploaded)

	// One row per user, nine top-level keys.
	assert.Equal(t, 2, res.SheetRows)
	assert.Equal(t, 9, res.SheetColumns)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var agg models.AuthorizationAggregate
	require.NoError(t, json.Unmarshal(raw, &agg))
	require.Len(t, agg.Policies, 1)
	require.Len(t, agg.Policies[0].PolicyVersionList, 1, "AWS managed policy reduced to its default version")
	assert.Equal(t, "v2", agg.Policies[0].PolicyVersionList[0].VersionId)

	wb, err := excelize.OpenFile(res.SpreadsheetPath)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("UserDetailList")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Path", rows[0][0])
	assert.Equal(t, "UserName", rows[0][1])
	assert.Equal(t, "alice", rows[1][1])
	assert.Equal(t, "bob", rows[2][1])
}

func TestRunReport_FlattenExplodesNestedColumns(t *testing.T) {
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, nil, nil)
	out := filepath.Join(t.TempDir(), "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Output: out, Flatten: true, SheetName: "Users"})
	require.NoError(t, err)

	// Two users, each with two groups and one entry in every other list.
	assert.True(t, res.Flattened)
	assert.Equal(t, 4, res.SheetRows)
	assert.Equal(t, 12, res.SheetColumns)
	assert.Equal(t, "Users", res.SheetName)

	wb, err := excelize.OpenFile(res.SpreadsheetPath)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Users")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Contains(t, rows[0], "UserPolicyList.PolicyDocument.Version")
	assert.Contains(t, rows[0], "Tags.Key")
}

func TestRunReport_NormalizesOutputExtension(t *testing.T) {
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, nil, nil)
	dir := t.TempDir()

	res, err := e.RunReport(context.Background(), ReportOptions{Output: filepath.Join(dir, "report.txt")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.json"), res.JSONPath)
	assert.Equal(t, filepath.Join(dir, "report.xlsx"), res.SpreadsheetPath)
	assert.FileExists(t, res.JSONPath)
	assert.NoFileExists(t, filepath.Join(dir, "report.txt"))
}

func TestRunReport_PublishesBothArtifacts(t *testing.T) {
	s3c := &fakeS3{}
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, s3c, nil)
	out := filepath.Join(t.TempDir(), "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Output: out, S3URI: "s3://audit-bucket/iam/"})
	require.NoError(t, err)

	assert.Equal(t, []string{"iam/report.json", "iam/report.xlsx"}, s3c.keys)
	assert.Equal(t, []string{
		"s3://audit-bucket/iam/report.json",
		"s3://audit-bucket/iam/report.xlsx",
	}, res.Uploaded)
}

func TestRunReport_PublishFailureKeepsLocalArtifacts(t *testing.T) {
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, &fakeS3{err: errors.New("denied")}, nil)
	out := filepath.Join(t.TempDir(), "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Output: out, S3URI: "s3://audit-bucket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://audit-bucket")
	require.NotNil(t, res)
	assert.FileExists(t, res.JSONPath)
	assert.FileExists(t, res.SpreadsheetPath)
}

func TestRunReport_PublishWithoutS3Client(t *testing.T) {
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, nil, nil)
	out := filepath.Join(t.TempDir(), "report.json")

	_, err := e.RunReport(context.Background(), ReportOptions{Output: out, S3URI: "s3://audit-bucket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no S3 client")
}

func TestRunReport_InvalidS3URIFailsBeforeLoadingProfile(t *testing.T) {
	e, p := newTestEngine(&fakeIAM{pages: accountPages()}, &fakeS3{}, nil)

	_, err := e.RunReport(context.Background(), ReportOptions{
		Output: filepath.Join(t.TempDir(), "report.json"),
		S3URI:  "https://bucket",
	})
	require.Error(t, err)
	assert.Empty(t, p.loads)
}

func TestRunReport_OpensWorkbook(t *testing.T) {
	op := &fakeOpener{platform: opener.PlatformLinux}
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, nil, op)
	out := filepath.Join(t.TempDir(), "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Output: out, Open: true})
	require.NoError(t, err)
	assert.True(t, res.Opened)
	assert.Equal(t, []string{res.SpreadsheetPath}, op.opened)
}

func TestRunReport_OpenUnsupportedPlatform(t *testing.T) {
	op := &fakeOpener{platform: opener.PlatformUnknown}
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, nil, op)
	out := filepath.Join(t.TempDir(), "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Output: out, Open: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, opener.ErrUnsupportedPlatform))
	require.NotNil(t, res)
	assert.False(t, res.Opened)
	assert.FileExists(t, res.SpreadsheetPath)
}

func TestRunReport_OpenWithoutOpener(t *testing.T) {
	e, _ := newTestEngine(&fakeIAM{pages: accountPages()}, nil, nil)
	out := filepath.Join(t.TempDir(), "report.json")

	_, err := e.RunReport(context.Background(), ReportOptions{Output: out, Open: true})
	require.Error(t, err)
}

func TestRunReport_ProfileError(t *testing.T) {
	e, p := newTestEngine(&fakeIAM{}, nil, nil)
	p.err = errors.New("no credentials")

	_, err := e.RunReport(context.Background(), ReportOptions{Profile: "ghost", Output: filepath.Join(t.TempDir(), "r.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `load profile "ghost"`)
}

func TestRunReport_CollectErrorWritesNothing(t *testing.T) {
	e, _ := newTestEngine(&fakeIAM{err: errors.New("connection reset")}, nil, nil)
	out := filepath.Join(t.TempDir(), "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Output: out})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoFileExists(t, out)
}

func TestRunReport_EmptyAccount(t *testing.T) {
	e, _ := newTestEngine(&fakeIAM{pages: nil}, nil, nil)
	out := filepath.Join(t.TempDir(), "report.json")

	res, err := e.RunReport(context.Background(), ReportOptions{Output: out})
	require.NoError(t, err)
	assert.Equal(t, models.ReportCounts{}, res.Counts)
	assert.Equal(t, 0, res.SheetRows)
	assert.FileExists(t, res.SpreadsheetPath)
}
