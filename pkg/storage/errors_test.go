package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestTranslateNil(t *testing.T) {
	assert.NoError(t, Translate(nil))
}

func TestTranslateModeledErrors(t *testing.T) {
	assert := assert.New(t)

	assert.ErrorIs(Translate(&types.NoSuchKey{}), ErrNotFound)
	assert.ErrorIs(Translate(&types.NoSuchBucket{}), ErrNotFound)
	assert.ErrorIs(Translate(&types.NotFound{}), ErrNotFound)
	assert.ErrorIs(Translate(&types.BucketAlreadyOwnedByYou{}), ErrAlreadyExists)
	assert.ErrorIs(Translate(&types.BucketAlreadyExists{}), ErrAlreadyExists)
}

func TestTranslateWrappedModeledError(t *testing.T) {
	err := fmt.Errorf("operation failed: %w", &types.NoSuchKey{})
	assert.ErrorIs(t, Translate(err), ErrNotFound)
}

func TestTranslateByErrorCode(t *testing.T) {
	assert := assert.New(t)

	notEmpty := &smithy.GenericAPIError{Code: "BucketNotEmpty", Message: "The bucket you tried to delete is not empty"}
	assert.ErrorIs(Translate(notEmpty), ErrBucketNotEmpty)

	missing := &smithy.GenericAPIError{Code: "NoSuchKey"}
	assert.ErrorIs(Translate(missing), ErrNotFound)
}

func TestTranslateFallsBackToBackendError(t *testing.T) {
	assert := assert.New(t)

	err := Translate(errors.New("connection reset by peer"))
	assert.ErrorIs(err, ErrBackend)
	assert.NotErrorIs(err, ErrNotFound)
}

func TestIsAuthError(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsAuthError(&smithy.GenericAPIError{Code: "InvalidClientTokenId"}))
	assert.True(IsAuthError(&smithy.GenericAPIError{Code: "SignatureDoesNotMatch"}))
	assert.True(IsAuthError(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(IsAuthError(&smithy.GenericAPIError{Code: "SlowDown"}))
	assert.False(IsAuthError(errors.New("dial tcp: i/o timeout")))
}
