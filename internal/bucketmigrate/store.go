package bucketmigrate

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/temirov/cloudchores/internal/awsauth"
)

// SourceStore is the read-only surface used against the source account.
type SourceStore interface {
	ListBuckets(ctx context.Context, input *s3.ListBucketsInput, optionFunctions ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, optionFunctions ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, optionFunctions ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObjectAcl(ctx context.Context, input *s3.GetObjectAclInput, optionFunctions ...func(*s3.Options)) (*s3.GetObjectAclOutput, error)
}

// TargetStore is the surface used against the target account. CopyObject runs with target
// credentials, which must be able to read the source object.
type TargetStore interface {
	HeadBucket(ctx context.Context, input *s3.HeadBucketInput, optionFunctions ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, input *s3.CreateBucketInput, optionFunctions ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	GetBucketAcl(ctx context.Context, input *s3.GetBucketAclInput, optionFunctions ...func(*s3.Options)) (*s3.GetBucketAclOutput, error)
	CopyObject(ctx context.Context, input *s3.CopyObjectInput, optionFunctions ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	PutObjectAcl(ctx context.Context, input *s3.PutObjectAclInput, optionFunctions ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
}

var (
	_ SourceStore = (*s3.Client)(nil)
	_ TargetStore = (*s3.Client)(nil)
)

// Stores pairs the clients of one migration run.
type Stores struct {
	Source       SourceStore
	Target       TargetStore
	TargetRegion string
}

// StoreFactory builds the clients for a request's credential strategies.
type StoreFactory func(ctx context.Context, request MigrationRequest) (Stores, error)

// NewAWSStoreFactory resolves both credential strategies through the loader and builds S3 clients.
func NewAWSStoreFactory(loader *awsauth.Loader, runIdentifier string) StoreFactory {
	return func(ctx context.Context, request MigrationRequest) (Stores, error) {
		sourceConfig, sourceError := loader.Load(ctx, sourceSideConstant, request.SourceCredentials, runIdentifier)
		if sourceError != nil {
			return Stores{}, sourceError
		}
		targetConfig, targetError := loader.Load(ctx, targetSideConstant, request.TargetCredentials, runIdentifier)
		if targetError != nil {
			return Stores{}, targetError
		}
		return Stores{
			Source:       awsauth.NewS3Client(sourceConfig, request.SourceCredentials),
			Target:       awsauth.NewS3Client(targetConfig, request.TargetCredentials),
			TargetRegion: targetConfig.Region,
		}, nil
	}
}
