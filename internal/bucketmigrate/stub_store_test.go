package bucketmigrate_test

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/temirov/cloudchores/internal/bucketmigrate"
	"github.com/temirov/cloudchores/internal/retry"
)

const (
	testSourceBucketConstant = "legacy-assets"
	testTargetBucketConstant = "assets-archive"
	testSourceOwnerConstant  = "source-owner-canonical-id"
	testTargetOwnerConstant  = "target-owner-canonical-id"
	allUsersGroupURIConstant = "http://acs.amazonaws.com/groups/global/AllUsers"
)

type stubStore struct {
	listBucketsFunc  func(input *s3.ListBucketsInput) (*s3.ListBucketsOutput, error)
	listObjectsFunc  func(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	headObjectFunc   func(input *s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	getObjectACLFunc func(input *s3.GetObjectAclInput) (*s3.GetObjectAclOutput, error)
	headBucketFunc   func(input *s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	createBucketFunc func(input *s3.CreateBucketInput) (*s3.CreateBucketOutput, error)
	getBucketACLFunc func(input *s3.GetBucketAclInput) (*s3.GetBucketAclOutput, error)
	copyObjectFunc   func(input *s3.CopyObjectInput) (*s3.CopyObjectOutput, error)
	putObjectACLFunc func(input *s3.PutObjectAclInput) (*s3.PutObjectAclOutput, error)

	listObjectsInputs  []*s3.ListObjectsV2Input
	headObjectInputs   []*s3.HeadObjectInput
	createBucketInputs []*s3.CreateBucketInput
	copyObjectInputs   []*s3.CopyObjectInput
	putObjectACLInputs []*s3.PutObjectAclInput
}

func (store *stubStore) ListBuckets(_ context.Context, input *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if store.listBucketsFunc == nil {
		return &s3.ListBucketsOutput{}, nil
	}
	return store.listBucketsFunc(input)
}

func (store *stubStore) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	store.listObjectsInputs = append(store.listObjectsInputs, input)
	if store.listObjectsFunc == nil {
		return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
	}
	return store.listObjectsFunc(input)
}

func (store *stubStore) HeadObject(_ context.Context, input *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	store.headObjectInputs = append(store.headObjectInputs, input)
	if store.headObjectFunc == nil {
		return &s3.HeadObjectOutput{}, nil
	}
	return store.headObjectFunc(input)
}

func (store *stubStore) GetObjectAcl(_ context.Context, input *s3.GetObjectAclInput, _ ...func(*s3.Options)) (*s3.GetObjectAclOutput, error) {
	if store.getObjectACLFunc == nil {
		return &s3.GetObjectAclOutput{
			Owner:  &types.Owner{ID: aws.String(testSourceOwnerConstant)},
			Grants: []types.Grant{canonicalGrant(testSourceOwnerConstant, types.PermissionFullControl)},
		}, nil
	}
	return store.getObjectACLFunc(input)
}

func (store *stubStore) HeadBucket(_ context.Context, input *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if store.headBucketFunc == nil {
		return &s3.HeadBucketOutput{}, nil
	}
	return store.headBucketFunc(input)
}

func (store *stubStore) CreateBucket(_ context.Context, input *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	store.createBucketInputs = append(store.createBucketInputs, input)
	if store.createBucketFunc == nil {
		return &s3.CreateBucketOutput{}, nil
	}
	return store.createBucketFunc(input)
}

func (store *stubStore) GetBucketAcl(_ context.Context, input *s3.GetBucketAclInput, _ ...func(*s3.Options)) (*s3.GetBucketAclOutput, error) {
	if store.getBucketACLFunc == nil {
		return &s3.GetBucketAclOutput{Owner: &types.Owner{ID: aws.String(testTargetOwnerConstant)}}, nil
	}
	return store.getBucketACLFunc(input)
}

func (store *stubStore) CopyObject(_ context.Context, input *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	store.copyObjectInputs = append(store.copyObjectInputs, input)
	if store.copyObjectFunc == nil {
		return &s3.CopyObjectOutput{}, nil
	}
	return store.copyObjectFunc(input)
}

func (store *stubStore) PutObjectAcl(_ context.Context, input *s3.PutObjectAclInput, _ ...func(*s3.Options)) (*s3.PutObjectAclOutput, error) {
	store.putObjectACLInputs = append(store.putObjectACLInputs, input)
	if store.putObjectACLFunc == nil {
		return &s3.PutObjectAclOutput{}, nil
	}
	return store.putObjectACLFunc(input)
}

// pagedListing serves the keys in pages of pageSize using the page offset as continuation token.
func pagedListing(pageSize int, keys ...string) func(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	return func(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		offset := 0
		if token := aws.ToString(input.ContinuationToken); len(token) > 0 {
			parsedOffset, parseError := strconv.Atoi(token)
			if parseError != nil {
				return nil, parseError
			}
			offset = parsedOffset
		}
		end := offset + pageSize
		if end > len(keys) {
			end = len(keys)
		}
		output := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
		for _, key := range keys[offset:end] {
			output.Contents = append(output.Contents, types.Object{Key: aws.String(key), Size: aws.Int64(int64(len(key)))})
		}
		if end < len(keys) {
			output.NextContinuationToken = aws.String(strconv.Itoa(end))
		}
		return output, nil
	}
}

func canonicalGrant(canonicalID string, permission types.Permission) types.Grant {
	return types.Grant{
		Grantee:    &types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String(canonicalID)},
		Permission: permission,
	}
}

func groupGrant(groupURI string, permission types.Permission) types.Grant {
	return types.Grant{
		Grantee:    &types.Grantee{Type: types.TypeGroup, URI: aws.String(groupURI)},
		Permission: permission,
	}
}

func apiError(code string, fault smithy.ErrorFault) error {
	return &smithy.GenericAPIError{Code: code, Message: code, Fault: fault}
}

func newTestRetrier(maxAttempts int) *retry.Retrier {
	return retry.NewRetrier(
		retry.Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
}

func newTestService(store *stubStore, targetRegion string) *bucketmigrate.Service {
	service, serviceError := bucketmigrate.NewService(bucketmigrate.ServiceDependencies{
		StoreFactory: func(context.Context, bucketmigrate.MigrationRequest) (bucketmigrate.Stores, error) {
			return bucketmigrate.Stores{Source: store, Target: store, TargetRegion: targetRegion}, nil
		},
		Retrier: newTestRetrier(3),
	})
	if serviceError != nil {
		panic(serviceError)
	}
	return service
}

func baseRequest() bucketmigrate.MigrationRequest {
	return bucketmigrate.MigrationRequest{
		SourceBucket:       testSourceBucketConstant,
		TargetBucket:       testTargetBucketConstant,
		TargetBucketSuffix: "-migrated",
		CreateTargetBucket: true,
	}
}
