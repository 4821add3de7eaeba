package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/foodcrm/internal/common"
	sc "github.com/dmitrijs2005/foodcrm/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttachmentService() *AttachmentService {
	s := NewAttachmentService(&sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "crm",
	})
	s.now = func() time.Time { return time.Date(2025, 4, 9, 12, 0, 0, 0, time.UTC) }
	return s
}

// stubS3 replaces the AWS seams for the duration of the test.
func stubS3(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func Test_getPresignClient_SuccessAndError(t *testing.T) {
	stubS3(t)
	svc := newAttachmentService()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	pc, err := svc.getPresignClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pc)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = svc.getPresignClient(context.Background())
	assert.EqualError(t, err, "load-fail")
}

func TestUploadURL(t *testing.T) {
	stubS3(t)
	svc := newAttachmentService()

	var gotIn *s3.PutObjectInput
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotIn = in
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, presignExpiry, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://s3/put?sig"}, nil
	}

	out, err := svc.UploadURL(context.Background(), "u-1", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/put?sig", out.URL)
	assert.True(t, strings.HasPrefix(out.Key, "attachments/u-1/2025/04/09/"), out.Key)
	require.NotNil(t, gotIn)
	assert.Equal(t, "crm", *gotIn.Bucket)
	assert.Equal(t, out.Key, *gotIn.Key)
	assert.Equal(t, "application/pdf", *gotIn.ContentType)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign-fail")
	}
	_, err = svc.UploadURL(context.Background(), "u-1", "")
	assert.ErrorContains(t, err, "sign-fail")
}

func TestDownloadURL(t *testing.T) {
	stubS3(t)
	svc := newAttachmentService()

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://s3/get/" + *in.Key}, nil
	}

	url, err := svc.DownloadURL(context.Background(), "attachments/u-1/2025/04/09/x")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/get/attachments/u-1/2025/04/09/x", url)

	for _, key := range []string{"", "secrets/x", "attachments/../secrets"} {
		_, err := svc.DownloadURL(context.Background(), key)
		assert.ErrorIs(t, err, common.ErrValidation, key)
	}
}
