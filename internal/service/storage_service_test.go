package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3mirror/internal/mode"
	"s3mirror/pkg/access"
	"s3mirror/pkg/mirror"
	"s3mirror/pkg/storage"
)

type testEnv struct {
	svc        *StorageService
	fake       *fakeS3
	mockMirror *mirror.Mirror
	realMirror *mirror.Mirror
}

func newTestEnv(t *testing.T, m mode.Mode) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()

	mockMirror := mirror.New(filepath.Join(root, "mock"), logger)
	realMirror := mirror.New(filepath.Join(root, "real"), logger)
	active := mockMirror
	if m == mode.Real {
		active = realMirror
	}

	fake := newFakeS3()
	svc := NewStorageService(fake, m, "us-east-1", active, mirror.Set{mockMirror, realMirror}, access.NewAuthorizer(), logger)
	return &testEnv{svc: svc, fake: fake, mockMirror: mockMirror, realMirror: realMirror}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCreateBucketIdempotent(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	result, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	assert.False(result.AlreadyExisted)

	result, err = env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	assert.True(result.AlreadyExisted)

	assert.Len(env.fake.buckets, 1)
}

func TestUploadReadRoundTrip(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)

	const content = "héllo, s3mirror\n"
	_, err = env.svc.UploadText(ctx, "b1", "greeting.txt", content, nil, "")
	require.NoError(t, err)

	got, err := env.svc.ReadFile(ctx, "b1", "greeting.txt", "")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestUploadFileMirrorsBytes(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)

	src := writeTempFile(t, "mirrored bytes")
	result, err := env.svc.UploadFile(ctx, "b1", "folder/data.txt", src, nil, "")
	require.NoError(t, err)
	require.NoError(t, result.MirrorErr)

	mirrored, err := os.ReadFile(env.mockMirror.ObjectPath("b1", "folder/data.txt"))
	require.NoError(t, err)
	assert.Equal([]byte("mirrored bytes"), mirrored)
	assert.Equal([]byte("mirrored bytes"), env.fake.buckets["b1"]["folder/data.txt"].data)
	assert.Equal(env.mockMirror.ObjectPath("b1", "folder/data.txt"), result.MirrorPath)
}

func TestUploadFileMissingSource(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)

	_, err = env.svc.UploadFile(ctx, "b1", "k", filepath.Join(t.TempDir(), "absent.txt"), nil, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadMissingKey(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)

	_, err = env.svc.ReadFile(ctx, "b1", "missing.txt", "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadNonTextContent(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	env.fake.put("b1", "blob.bin", []byte{0xff, 0xfe, 0x00, 0x80})

	_, err := env.svc.ReadFile(ctx, "b1", "blob.bin", "")
	assert.ErrorIs(t, err, storage.ErrDecode)
}

func TestMetadataRoundTrip(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)

	meta := map[string]string{"author": "Test User", "version": "1.0"}
	_, err = env.svc.UploadText(ctx, "b1", "doc.txt", "content", meta, "")
	require.NoError(t, err)

	got, err := env.svc.ObjectMetadata(ctx, "b1", "doc.txt", "")
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestDownloadFile(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	_, err = env.svc.UploadText(ctx, "b1", "a.txt", "download me", nil, "")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "nested", "a.txt")
	result, err := env.svc.DownloadFile(ctx, "b1", "a.txt", dest, "")
	require.NoError(t, err)
	require.NoError(t, result.MirrorErr)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal([]byte("download me"), data)
	assert.Equal(int64(len("download me")), result.Size)

	_, err = env.svc.DownloadFile(ctx, "b1", "missing.txt", dest, "")
	assert.ErrorIs(err, storage.ErrNotFound)
}

func TestDeleteFileIdempotent(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)

	result, err := env.svc.DeleteFile(ctx, "b1", "never-there.txt", "")
	require.NoError(t, err)
	assert.True(t, result.AlreadyAbsent)
}

func TestDeleteFileSweepsAllMirrorRoots(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	_, err = env.svc.UploadText(ctx, "b1", "a.txt", "hi", nil, "")
	require.NoError(t, err)

	// A stale copy under the other mode's root is swept too.
	require.NoError(t, env.realMirror.Write("b1", "a.txt", []byte("stale")))

	result, err := env.svc.DeleteFile(ctx, "b1", "a.txt", "")
	require.NoError(t, err)
	assert.False(result.AlreadyAbsent)

	_, err = os.Stat(env.mockMirror.ObjectPath("b1", "a.txt"))
	assert.True(os.IsNotExist(err))
	_, err = os.Stat(env.realMirror.ObjectPath("b1", "a.txt"))
	assert.True(os.IsNotExist(err))
}

func TestListFilesOrderedAndRestartable(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	for _, key := range []string{"c.txt", "a.txt", "b.txt"} {
		_, err = env.svc.UploadText(ctx, "b1", key, "x", nil, "")
		require.NoError(t, err)
	}

	collect := func() []string {
		var keys []string
		for key, err := range env.svc.ListFiles(ctx, "b1", "") {
			require.NoError(t, err)
			keys = append(keys, key)
		}
		return keys
	}

	assert.Equal([]string{"a.txt", "b.txt", "c.txt"}, collect())
	// Ranging again restarts from the beginning.
	assert.Equal([]string{"a.txt", "b.txt", "c.txt"}, collect())
}

func TestListFilesPrefix(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	for _, key := range []string{"folder/nested.txt", "hello.txt", "folder/deep/more.txt"} {
		_, err = env.svc.UploadText(ctx, "b1", key, "x", nil, "")
		require.NoError(t, err)
	}

	var keys []string
	for key, err := range env.svc.ListFiles(ctx, "b1", "folder/") {
		require.NoError(t, err)
		keys = append(keys, key)
	}
	assert.Equal(t, []string{"folder/deep/more.txt", "folder/nested.txt"}, keys)
}

func TestCleanupPagination(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "big-bucket", "")
	require.NoError(t, err)
	for i := 0; i < 1500; i++ {
		env.fake.put("big-bucket", "obj-"+strconv.Itoa(i), []byte("x"))
	}

	result, err := env.svc.Cleanup(ctx, "big-bucket", CleanupOptions{RemoveBucket: true})
	require.NoError(t, err)

	assert.Equal(2, env.fake.deleteObjectsCalls)
	assert.LessOrEqual(env.fake.maxDeleteBatch, 1000)
	assert.Equal(1500, result.ObjectsDeleted)
	assert.True(result.BucketDeleted)
	assert.Equal(1, env.fake.deleteBucketCalls)
	assert.NotContains(env.fake.buckets, "big-bucket")
}

func TestCleanupRealModeNeverDeletesBucket(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Real)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	env.fake.put("b1", "a.txt", []byte("x"))

	result, err := env.svc.Cleanup(ctx, "b1", CleanupOptions{RemoveBucket: true})
	require.NoError(t, err)

	assert.True(result.BucketSkipped)
	assert.False(result.BucketDeleted)
	assert.Zero(env.fake.deleteBucketCalls)
	assert.Zero(env.fake.deleteObjectsCalls)
	assert.Contains(env.fake.buckets, "b1")
}

func TestCleanupRemoveLocal(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)
	_, err = env.svc.UploadText(ctx, "b1", "a.txt", "hi", nil, "")
	require.NoError(t, err)

	result, err := env.svc.Cleanup(ctx, "b1", CleanupOptions{RemoveLocal: true})
	require.NoError(t, err)
	assert.True(result.LocalRemoved)

	_, err = os.Stat(filepath.Join(env.mockMirror.Root(), "b1"))
	assert.True(os.IsNotExist(err))
	// The remote copy is untouched.
	assert.Contains(env.fake.buckets["b1"], "a.txt")

	// Without a bucket, the whole roots go.
	_, err = env.svc.Cleanup(ctx, "", CleanupOptions{RemoveLocal: true})
	require.NoError(t, err)
	_, err = os.Stat(env.mockMirror.Root())
	assert.True(os.IsNotExist(err))
}

func TestLifecycleScenario(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "")
	require.NoError(t, err)

	_, err = env.svc.UploadText(ctx, "b1", "a.txt", "hi", nil, "")
	require.NoError(t, err)

	content, err := env.svc.ReadFile(ctx, "b1", "a.txt", "")
	require.NoError(t, err)
	assert.Equal("hi", content)

	_, err = env.svc.DeleteFile(ctx, "b1", "a.txt", "")
	require.NoError(t, err)

	var keys []string
	for key, err := range env.svc.ListFiles(ctx, "b1", "") {
		require.NoError(t, err)
		keys = append(keys, key)
	}
	assert.Empty(keys)
}

func TestPermissionGating(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "user1")
	require.NoError(t, err)

	_, err = env.svc.UploadText(ctx, "b1", "secret.txt", "This is a secret", nil, "user1")
	require.NoError(t, err)

	_, err = env.svc.ReadFile(ctx, "b1", "secret.txt", "user2")
	assert.ErrorIs(err, storage.ErrAccessDenied)

	env.svc.Authorizer().Grant("b1", "secret.txt", "user2", access.Read)

	content, err := env.svc.ReadFile(ctx, "b1", "secret.txt", "user2")
	require.NoError(t, err)
	assert.Equal("This is a secret", content)

	_, err = env.svc.UploadText(ctx, "b1", "secret.txt", "Modified", nil, "user2")
	assert.ErrorIs(err, storage.ErrAccessDenied)

	// The bucket owner can still overwrite.
	_, err = env.svc.UploadText(ctx, "b1", "secret.txt", "Updated", nil, "user1")
	require.NoError(t, err)
}

func TestUploadWithoutUserSkipsChecks(t *testing.T) {
	env := newTestEnv(t, mode.Mock)
	ctx := context.Background()

	_, err := env.svc.CreateBucket(ctx, "b1", "user1")
	require.NoError(t, err)
	_, err = env.svc.UploadText(ctx, "b1", "open.txt", "anyone", nil, "user1")
	require.NoError(t, err)

	// No user-id means no authorization check is performed.
	_, err = env.svc.ReadFile(ctx, "b1", "open.txt", "")
	assert.NoError(t, err)
}
