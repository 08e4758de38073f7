package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

// S3API is the subset of the S3 client bucket provisioning uses.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketCors(ctx context.Context, params *s3.PutBucketCorsInput, optFns ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error)
}

// VerifyOutputBucket checks that the Athena output bucket exists and is
// reachable with the current credentials. bucketURI accepts s3:// form.
func VerifyOutputBucket(ctx context.Context, client S3API, bucketURI string) error {
	bucket := BucketFromURI(bucketURI)
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", bucket, err)
	}
	log.Info().Str("bucket", bucket).Msg("output bucket verified")
	return nil
}

// EnsureInterpreterBucket idempotently creates the code interpreter output
// bucket and opens it up for GET from the frontend. Returns the bucket name.
func EnsureInterpreterBucket(ctx context.Context, client S3API, accountID, region string) (string, error) {
	bucket := InterpreterBucketName(accountID)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		log.Info().Str("bucket", bucket).Msg("using existing code interpreter bucket")
		return bucket, nil
	} else if !isBucketNotFound(err) {
		return "", fmt.Errorf("checking code interpreter bucket: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint.
	if region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := client.CreateBucket(ctx, input); err != nil {
		return "", fmt.Errorf("creating code interpreter bucket: %w", err)
	}
	log.Info().Str("bucket", bucket).Msg("code interpreter bucket created")

	_, err := client.PutBucketCors(ctx, &s3.PutBucketCorsInput{
		Bucket: aws.String(bucket),
		CORSConfiguration: &types.CORSConfiguration{
			CORSRules: []types.CORSRule{{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET"},
				AllowedHeaders: []string{"*"},
				MaxAgeSeconds:  aws.Int32(3000),
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("configuring bucket CORS: %w", err)
	}
	log.Info().Str("bucket", bucket).Msg("bucket CORS configured")

	return bucket, nil
}

// isBucketNotFound reports whether a HeadBucket error means the bucket does
// not exist, as opposed to a permission or transport failure.
func isBucketNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "404"
	}
	return false
}
