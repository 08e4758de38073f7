package deploy

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	existing      map[string]bool
	headErr       error
	created       []string
	createRegions []string
	corsBuckets   []string
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.existing[aws.ToString(in.Bucket)] {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, &smithy.GenericAPIError{Code: "NotFound"}
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, aws.ToString(in.Bucket))
	if in.CreateBucketConfiguration != nil {
		f.createRegions = append(f.createRegions, string(in.CreateBucketConfiguration.LocationConstraint))
	}
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutBucketCors(_ context.Context, in *s3.PutBucketCorsInput, _ ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error) {
	f.corsBuckets = append(f.corsBuckets, aws.ToString(in.Bucket))
	return &s3.PutBucketCorsOutput{}, nil
}

func TestVerifyOutputBucket(t *testing.T) {
	fake := &fakeS3{existing: map[string]bool{"athena-results": true}}

	assert.NoError(t, VerifyOutputBucket(context.Background(), fake, "s3://athena-results/"))
	assert.Error(t, VerifyOutputBucket(context.Background(), fake, "s3://missing-bucket"))
}

func TestEnsureInterpreterBucketCreates(t *testing.T) {
	fake := &fakeS3{existing: map[string]bool{}}

	bucket, err := EnsureInterpreterBucket(context.Background(), fake, "123456789012", "eu-west-1")
	require.NoError(t, err)

	assert.Equal(t, "spa-code-interpreter-123456789012", bucket)
	assert.Equal(t, []string{bucket}, fake.created)
	assert.Equal(t, []string{"eu-west-1"}, fake.createRegions)
	assert.Equal(t, []string{bucket}, fake.corsBuckets)
}

func TestEnsureInterpreterBucketUsEast1OmitsLocation(t *testing.T) {
	fake := &fakeS3{existing: map[string]bool{}}

	_, err := EnsureInterpreterBucket(context.Background(), fake, "123456789012", "us-east-1")
	require.NoError(t, err)

	assert.Empty(t, fake.createRegions)
}

func TestEnsureInterpreterBucketAccessDenied(t *testing.T) {
	fake := &fakeS3{headErr: &smithy.GenericAPIError{Code: "AccessDenied"}}

	_, err := EnsureInterpreterBucket(context.Background(), fake, "123456789012", "us-east-1")
	require.Error(t, err)
	assert.Empty(t, fake.created)
}

func TestEnsureInterpreterBucketReusesExisting(t *testing.T) {
	fake := &fakeS3{existing: map[string]bool{"spa-code-interpreter-123456789012": true}}

	bucket, err := EnsureInterpreterBucket(context.Background(), fake, "123456789012", "us-east-1")
	require.NoError(t, err)

	assert.Equal(t, "spa-code-interpreter-123456789012", bucket)
	assert.Empty(t, fake.created)
	assert.Empty(t, fake.corsBuckets)
}
