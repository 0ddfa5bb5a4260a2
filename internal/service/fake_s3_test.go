package service

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"s3mirror/pkg/storage"
)

// fakeS3 is an in-memory stand-in for the S3 API, close enough to the real
// backend for facade tests: it models idempotent bucket creation, modeled
// not-found errors, listing pagination and batch deletes.
type fakeS3 struct {
	buckets map[string]map[string]fakeObject

	createBucketCalls  int
	deleteObjectsCalls int
	deleteBucketCalls  int
	maxDeleteBatch     int
}

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

var _ storage.Client = (*fakeS3)(nil)

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: make(map[string]map[string]fakeObject)}
}

// put seeds an object directly, bypassing the facade.
func (f *fakeS3) put(bucket, key string, data []byte) {
	if f.buckets[bucket] == nil {
		f.buckets[bucket] = make(map[string]fakeObject)
	}
	f.buckets[bucket][key] = fakeObject{data: data}
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {
	f.createBucketCalls++
	name := aws.ToString(params.Bucket)
	if _, exists := f.buckets[name]; exists {
		return nil, &types.BucketAlreadyOwnedByYou{}
	}
	f.buckets[name] = make(map[string]fakeObject)
	return &awss3.CreateBucketOutput{}, nil
}

func (f *fakeS3) DeleteBucket(ctx context.Context, params *awss3.DeleteBucketInput, optFns ...func(*awss3.Options)) (*awss3.DeleteBucketOutput, error) {
	f.deleteBucketCalls++
	name := aws.ToString(params.Bucket)
	objects, exists := f.buckets[name]
	if !exists {
		return nil, &types.NoSuchBucket{}
	}
	if len(objects) > 0 {
		return nil, &smithy.GenericAPIError{Code: "BucketNotEmpty", Message: "The bucket you tried to delete is not empty"}
	}
	delete(f.buckets, name)
	return &awss3.DeleteBucketOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	if _, exists := f.buckets[aws.ToString(params.Bucket)]; !exists {
		return nil, &types.NotFound{}
	}
	return &awss3.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListBuckets(ctx context.Context, params *awss3.ListBucketsInput, optFns ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error) {
	names := make([]string, 0, len(f.buckets))
	for name := range f.buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &awss3.ListBucketsOutput{}
	for _, name := range names {
		out.Buckets = append(out.Buckets, types.Bucket{Name: aws.String(name)})
	}
	return out, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	bucket := aws.ToString(params.Bucket)
	objects, exists := f.buckets[bucket]
	if !exists {
		return nil, &types.NoSuchBucket{}
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	objects[aws.ToString(params.Key)] = fakeObject{data: data, metadata: params.Metadata}
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	obj, err := f.lookup(params.Bucket, params.Key)
	if err != nil {
		return nil, err
	}
	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(obj.data))),
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	obj, err := f.lookup(params.Bucket, params.Key)
	if err != nil {
		return nil, err
	}
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	if objects, exists := f.buckets[aws.ToString(params.Bucket)]; exists {
		delete(objects, aws.ToString(params.Key))
	}
	return &awss3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, params *awss3.DeleteObjectsInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error) {
	f.deleteObjectsCalls++
	if n := len(params.Delete.Objects); n > f.maxDeleteBatch {
		f.maxDeleteBatch = n
	}
	if len(params.Delete.Objects) > 1000 {
		return nil, &smithy.GenericAPIError{Code: "MalformedXML", Message: "batch too large"}
	}

	objects, exists := f.buckets[aws.ToString(params.Bucket)]
	if !exists {
		return nil, &types.NoSuchBucket{}
	}
	for _, id := range params.Delete.Objects {
		delete(objects, aws.ToString(id.Key))
	}
	return &awss3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	objects, exists := f.buckets[aws.ToString(params.Bucket)]
	if !exists {
		return nil, &types.NoSuchBucket{}
	}

	// The continuation token is a key cursor, like the real backend's: it
	// stays valid even when earlier keys are deleted between pages.
	after := ""
	if params.ContinuationToken != nil {
		after = aws.ToString(params.ContinuationToken)
	}

	prefix := aws.ToString(params.Prefix)
	keys := make([]string, 0, len(objects))
	for key := range objects {
		if strings.HasPrefix(key, prefix) && key > after {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	limit := 1000
	if params.MaxKeys != nil && *params.MaxKeys > 0 {
		limit = int(*params.MaxKeys)
	}
	end := min(limit, len(keys))

	out := &awss3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, key := range keys[:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(objects[key].data))),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end-1])
	}
	return out, nil
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, params *awss3.CreateMultipartUploadInput, optFns ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	return nil, &smithy.GenericAPIError{Code: "NotImplemented"}
}

func (f *fakeS3) UploadPart(ctx context.Context, params *awss3.UploadPartInput, optFns ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	return nil, &smithy.GenericAPIError{Code: "NotImplemented"}
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, params *awss3.CompleteMultipartUploadInput, optFns ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	return nil, &smithy.GenericAPIError{Code: "NotImplemented"}
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, params *awss3.AbortMultipartUploadInput, optFns ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	return nil, &smithy.GenericAPIError{Code: "NotImplemented"}
}

func (f *fakeS3) lookup(bucket, key *string) (fakeObject, error) {
	objects, exists := f.buckets[aws.ToString(bucket)]
	if !exists {
		return fakeObject{}, &types.NoSuchBucket{}
	}
	obj, exists := objects[aws.ToString(key)]
	if !exists {
		return fakeObject{}, &types.NoSuchKey{}
	}
	return obj, nil
}
