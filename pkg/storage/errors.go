package storage

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Error taxonomy exposed to library callers. Backend failures are translated
// into one of these sentinels via Translate; everything unexpected collapses
// into ErrBackend. There are no automatic retries anywhere, so a transient
// network failure surfaces immediately as ErrBackend.
var (
	ErrConfiguration  = errors.New("invalid or missing configuration")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrBucketNotEmpty = errors.New("bucket not empty")
	ErrLocalIO        = errors.New("local i/o failure")
	ErrDecode         = errors.New("object content is not valid text")
	ErrBackend        = errors.New("backend request failed")
	ErrAccessDenied   = errors.New("access denied")
	ErrProbe          = errors.New("identity probe failed")
)

// Translate maps an error returned by the S3 SDK into the local taxonomy.
// Modeled error types are preferred; unmodeled responses fall back to the
// smithy error code.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var (
		noSuchKey    *types.NoSuchKey
		noSuchBucket *types.NoSuchBucket
		notFound     *types.NotFound
		ownedByYou   *types.BucketAlreadyOwnedByYou
		bucketExists *types.BucketAlreadyExists
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &noSuchBucket), errors.As(err, &notFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.As(err, &ownedByYou), errors.As(err, &bucketExists):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound", "404":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
		case "BucketNotEmpty":
			return fmt.Errorf("%w: %v", ErrBucketNotEmpty, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrBackend, err)
}

// IsAuthError reports whether an error from the real backend indicates bad or
// rejected credentials, as opposed to a transient transport failure. The mode
// auto-detector uses this to decide between falling back to the mock backend
// and surfacing ErrProbe.
func IsAuthError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "InvalidClientTokenId", "SignatureDoesNotMatch", "ExpiredToken",
		"AccessDenied", "UnrecognizedClientException", "AuthFailure":
		return true
	}
	return false
}
