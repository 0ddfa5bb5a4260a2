package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"s3mirror/internal/mode"
	"s3mirror/pkg/access"
	"s3mirror/pkg/mirror"
	"s3mirror/pkg/storage"
)

// Backend batch deletes reject more than 1000 keys per call.
const deleteBatchSize = 1000

// StorageService is the facade over one backend client. Every operation is a
// bounded sequence of backend calls followed by at most one local filesystem
// step; nothing retries and nothing runs concurrently. The service keeps the
// local mirror in sync with each successful remote write.
type StorageService struct {
	client  storage.Client
	mode    mode.Mode
	region  string
	mirror  *mirror.Mirror
	mirrors mirror.Set
	auth    *access.Authorizer
	logger  *slog.Logger
}

func NewStorageService(client storage.Client, m mode.Mode, region string, active *mirror.Mirror, all mirror.Set, auth *access.Authorizer, logger *slog.Logger) *StorageService {
	return &StorageService{
		client:  client,
		mode:    m,
		region:  region,
		mirror:  active,
		mirrors: all,
		auth:    auth,
		logger:  logger.With("service", "StorageService", "mode", m.String()),
	}
}

// Mode returns the backend mode this service is bound to.
func (s *StorageService) Mode() mode.Mode {
	return s.mode
}

// Authorizer exposes the permission store so embedders can grant entries.
func (s *StorageService) Authorizer() *access.Authorizer {
	return s.auth
}

// --- Bucket operations ---

type CreateBucketResult struct {
	AlreadyExisted bool
}

// CreateBucket is idempotent: a bucket that already exists and is owned by
// the caller is reported as success.
func (s *StorageService) CreateBucket(ctx context.Context, bucket, userID string) (CreateBucketResult, error) {
	s.logger.Debug("Starting CreateBucket operation", "bucket", bucket)

	input := &awss3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	var result CreateBucketResult
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		terr := storage.Translate(err)
		if !errors.Is(terr, storage.ErrAlreadyExists) {
			s.logger.Error("Failed to create bucket", "bucket", bucket, "error", err)
			return result, terr
		}
		result.AlreadyExisted = true
	}

	if userID != "" {
		s.auth.Grant(bucket, "", userID, access.Owner)
	}
	return result, nil
}

func (s *StorageService) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	s.logger.Debug("Starting ListBuckets operation")

	output, err := s.client.ListBuckets(ctx, &awss3.ListBucketsInput{})
	if err != nil {
		s.logger.Error("Failed to list buckets", "error", err)
		return nil, storage.Translate(err)
	}

	buckets := make([]storage.Bucket, 0, len(output.Buckets))
	for _, b := range output.Buckets {
		buckets = append(buckets, storage.Bucket{
			Name:      aws.ToString(b.Name),
			CreatedAt: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

// --- Object operations ---

type UploadResult struct {
	Bucket string
	Key    string
	Size   int64
	// MirrorPath is set when the local mirror copy succeeded. A failed mirror
	// write does not fail the upload: the remote state is authoritative and
	// MirrorErr carries the warning.
	MirrorPath string
	MirrorErr  error
}

// UploadFile sends a local file to the backend and mirrors it locally. The
// two writes are not atomic; callers must not infer remote state from mirror
// presence or vice versa.
func (s *StorageService) UploadFile(ctx context.Context, bucket, key, sourcePath string, metadata map[string]string, userID string) (UploadResult, error) {
	s.logger.Debug("Starting UploadFile operation", "bucket", bucket, "key", key, "source", sourcePath)
	result := UploadResult{Bucket: bucket, Key: key}

	if err := s.authorizeWrite(bucket, key, userID); err != nil {
		return result, err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return result, fmt.Errorf("%w: source file %s", storage.ErrNotFound, sourcePath)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return result, fmt.Errorf("%w: opening %s: %v", storage.ErrLocalIO, sourcePath, err)
	}
	defer f.Close()

	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("Failed to upload object", "bucket", bucket, "key", key, "error", err)
		return result, storage.Translate(err)
	}
	result.Size = info.Size()
	s.recordOwnership(bucket, key, userID)

	s.mirrorIn(sourcePath, bucket, key, &result)
	return result, nil
}

// UploadText uploads inline text content instead of a source file.
func (s *StorageService) UploadText(ctx context.Context, bucket, key, content string, metadata map[string]string, userID string) (UploadResult, error) {
	s.logger.Debug("Starting UploadText operation", "bucket", bucket, "key", key)
	result := UploadResult{Bucket: bucket, Key: key}

	if err := s.authorizeWrite(bucket, key, userID); err != nil {
		return result, err
	}

	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(content),
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("Failed to upload object", "bucket", bucket, "key", key, "error", err)
		return result, storage.Translate(err)
	}
	result.Size = int64(len(content))
	s.recordOwnership(bucket, key, userID)

	if err := s.mirror.Write(bucket, key, []byte(content)); err != nil {
		s.logger.Warn("Object stored remotely but mirroring failed", "bucket", bucket, "key", key, "error", err)
		result.MirrorErr = err
	} else {
		result.MirrorPath = s.mirror.ObjectPath(bucket, key)
	}
	return result, nil
}

// UploadLargeFile uploads via multipart with the given part size (floored at
// the backend minimum), then mirrors the file locally.
func (s *StorageService) UploadLargeFile(ctx context.Context, bucket, key, sourcePath string, partSize int64, metadata map[string]string, userID string) (UploadResult, error) {
	s.logger.Debug("Starting UploadLargeFile operation", "bucket", bucket, "key", key, "partSize", partSize)
	result := UploadResult{Bucket: bucket, Key: key}

	if err := s.authorizeWrite(bucket, key, userID); err != nil {
		return result, err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return result, fmt.Errorf("%w: source file %s", storage.ErrNotFound, sourcePath)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return result, fmt.Errorf("%w: opening %s: %v", storage.ErrLocalIO, sourcePath, err)
	}
	defer f.Close()

	if partSize < manager.MinUploadPartSize {
		partSize = manager.MinUploadPartSize
	}
	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	if _, err := uploader.Upload(ctx, input); err != nil {
		s.logger.Error("Failed multipart upload", "bucket", bucket, "key", key, "error", err)
		return result, storage.Translate(err)
	}
	result.Size = info.Size()
	s.recordOwnership(bucket, key, userID)

	s.mirrorIn(sourcePath, bucket, key, &result)
	return result, nil
}

type DownloadResult struct {
	Path      string
	Size      int64
	MirrorErr error
}

// DownloadFile writes the object to destPath and mirrors the same bytes.
func (s *StorageService) DownloadFile(ctx context.Context, bucket, key, destPath, userID string) (DownloadResult, error) {
	s.logger.Debug("Starting DownloadFile operation", "bucket", bucket, "key", key, "dest", destPath)
	result := DownloadResult{Path: destPath}

	if err := s.authorizeRead(bucket, key, userID); err != nil {
		return result, err
	}

	output, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("Failed to fetch object", "bucket", bucket, "key", key, "error", err)
		return result, storage.Translate(err)
	}
	defer output.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return result, fmt.Errorf("%w: creating destination directory for %s: %v", storage.ErrLocalIO, destPath, err)
	}
	dest, err := os.Create(destPath)
	if err != nil {
		return result, fmt.Errorf("%w: creating %s: %v", storage.ErrLocalIO, destPath, err)
	}
	n, err := io.Copy(dest, output.Body)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return result, fmt.Errorf("%w: writing %s: %v", storage.ErrLocalIO, destPath, err)
	}
	result.Size = n

	if err := s.mirror.CopyIn(destPath, bucket, key); err != nil {
		s.logger.Warn("Object downloaded but mirroring failed", "bucket", bucket, "key", key, "error", err)
		result.MirrorErr = err
	}
	return result, nil
}

// ReadFile returns the object content as text.
func (s *StorageService) ReadFile(ctx context.Context, bucket, key, userID string) (string, error) {
	s.logger.Debug("Starting ReadFile operation", "bucket", bucket, "key", key)

	if err := s.authorizeRead(bucket, key, userID); err != nil {
		return "", err
	}

	output, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("Failed to fetch object", "bucket", bucket, "key", key, "error", err)
		return "", storage.Translate(err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return "", storage.Translate(err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s/%s", storage.ErrDecode, bucket, key)
	}
	return string(data), nil
}

// ObjectMetadata returns the user metadata attached to an object at upload.
func (s *StorageService) ObjectMetadata(ctx context.Context, bucket, key, userID string) (map[string]string, error) {
	s.logger.Debug("Starting ObjectMetadata operation", "bucket", bucket, "key", key)

	if err := s.authorizeRead(bucket, key, userID); err != nil {
		return nil, err
	}

	output, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, storage.Translate(err)
	}
	return output.Metadata, nil
}

type DeleteResult struct {
	AlreadyAbsent bool
	MirrorErr     error
}

// DeleteFile is idempotent: a missing key is reported as already absent, not
// an error. Mirror copies are swept from every known root either way.
func (s *StorageService) DeleteFile(ctx context.Context, bucket, key, userID string) (DeleteResult, error) {
	s.logger.Debug("Starting DeleteFile operation", "bucket", bucket, "key", key)
	var result DeleteResult

	if err := s.authorizeWrite(bucket, key, userID); err != nil {
		return result, err
	}

	if _, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		terr := storage.Translate(err)
		if !errors.Is(terr, storage.ErrNotFound) {
			return result, terr
		}
		result.AlreadyAbsent = true
	} else {
		if _, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			s.logger.Error("Failed to delete object", "bucket", bucket, "key", key, "error", err)
			return result, storage.Translate(err)
		}
	}

	if err := s.mirrors.Remove(bucket, key); err != nil {
		s.logger.Warn("Failed to remove mirrored copies", "bucket", bucket, "key", key, "error", err)
		result.MirrorErr = err
	}
	return result, nil
}

// ListFiles returns a lazy sequence of object keys under prefix, in the
// backend's lexicographic key order. Each range restarts the listing from
// the beginning.
func (s *StorageService) ListFiles(ctx context.Context, bucket, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		input := &awss3.ListObjectsV2Input{Bucket: aws.String(bucket)}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}

		paginator := awss3.NewListObjectsV2Paginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield("", storage.Translate(err))
				return
			}
			for _, obj := range page.Contents {
				if !yield(aws.ToString(obj.Key), nil) {
					return
				}
			}
		}
	}
}

// --- Cleanup ---

type CleanupOptions struct {
	// RemoveLocal purges the mirror tree (the whole roots when no bucket is
	// given, otherwise just that bucket's subtree).
	RemoveLocal bool
	// RemoveBucket empties and deletes the remote bucket. Honored only
	// against the mock backend.
	RemoveBucket bool
}

type CleanupResult struct {
	LocalRemoved   bool
	ObjectsDeleted int
	BucketDeleted  bool
	// BucketSkipped is set when bucket removal was requested against the
	// real backend, where deletion is refused by policy.
	BucketSkipped bool
}

func (s *StorageService) Cleanup(ctx context.Context, bucket string, opts CleanupOptions) (CleanupResult, error) {
	s.logger.Debug("Starting Cleanup operation", "bucket", bucket, "removeLocal", opts.RemoveLocal, "removeBucket", opts.RemoveBucket)
	var result CleanupResult

	if opts.RemoveLocal {
		var err error
		if bucket == "" {
			err = s.mirrors.Purge()
		} else {
			err = s.mirrors.RemoveAll(bucket)
		}
		if err != nil {
			return result, err
		}
		result.LocalRemoved = true
	}

	if !opts.RemoveBucket || bucket == "" {
		return result, nil
	}

	if s.mode != mode.Mock {
		// Policy: bucket deletion never runs against the real backend,
		// regardless of the requesting flag.
		s.logger.Warn("Refusing to delete bucket outside mock mode", "bucket", bucket)
		result.BucketSkipped = true
		return result, nil
	}

	deleted, err := s.purgeObjects(ctx, bucket)
	result.ObjectsDeleted = deleted
	if err != nil {
		return result, err
	}

	if _, err := s.client.DeleteBucket(ctx, &awss3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		// A concurrent writer can repopulate the bucket between the listing
		// pass and this call; surface it rather than retrying.
		s.logger.Error("Failed to delete bucket", "bucket", bucket, "error", err)
		return result, storage.Translate(err)
	}
	result.BucketDeleted = true
	return result, nil
}

// purgeObjects deletes every object in the bucket in batches of at most
// deleteBatchSize keys per call.
func (s *StorageService) purgeObjects(ctx context.Context, bucket string) (int, error) {
	var (
		deleted int
		batch   []types.ObjectIdentifier
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := s.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return storage.Translate(err)
		}
		deleted += len(batch)
		batch = nil
		return nil
	}

	for key, err := range s.ListFiles(ctx, bucket, "") {
		if err != nil {
			return deleted, err
		}
		batch = append(batch, types.ObjectIdentifier{Key: aws.String(key)})
		if len(batch) == deleteBatchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	return deleted, flush()
}

// --- Authorization helpers ---

// Checks are applied only when a caller user-id is present; an empty user-id
// bypasses the authorizer entirely.
func (s *StorageService) authorizeRead(bucket, key, userID string) error {
	if userID == "" {
		return nil
	}
	if s.auth.Check(bucket, key, userID, access.Read) {
		return nil
	}
	return fmt.Errorf("%w: user %q cannot read %s/%s", storage.ErrAccessDenied, userID, bucket, key)
}

func (s *StorageService) authorizeWrite(bucket, key, userID string) error {
	if userID == "" {
		return nil
	}
	if s.auth.Check(bucket, key, userID, access.Write) {
		return nil
	}
	// An object nobody holds a grant on may be claimed by its first writer.
	if !s.auth.HasGrants(bucket, key) {
		return nil
	}
	return fmt.Errorf("%w: user %q cannot write %s/%s", storage.ErrAccessDenied, userID, bucket, key)
}

func (s *StorageService) recordOwnership(bucket, key, userID string) {
	if userID == "" {
		return
	}
	if !s.auth.HasGrants(bucket, key) {
		s.auth.Grant(bucket, key, userID, access.Owner)
	}
}

func (s *StorageService) mirrorIn(sourcePath, bucket, key string, result *UploadResult) {
	if err := s.mirror.CopyIn(sourcePath, bucket, key); err != nil {
		s.logger.Warn("Object stored remotely but mirroring failed", "bucket", bucket, "key", key, "error", err)
		result.MirrorErr = err
		return
	}
	result.MirrorPath = s.mirror.ObjectPath(bucket, key)
}
