package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := newFakeS3()
	s := &S3Store{client: fake, bucket: "files"}
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "users/1/a.txt", strings.NewReader("hello"), 5, "text/plain"))
	assert.Equal(t, "text/plain", fake.types["users/1/a.txt"])

	rc, err := s.Get(ctx, "users/1/a.txt")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	require.NoError(t, s.Delete(ctx, "users/1/a.txt"))
	_, err = s.Get(ctx, "users/1/a.txt")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	fake := newFakeS3()
	fake.err = errors.New("unreachable")
	s := &S3Store{client: fake, bucket: "files"}
	ctx := context.Background()

	err := s.Put(ctx, "k", strings.NewReader("x"), 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 put k")

	_, err = s.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	require.Error(t, s.Delete(ctx, "k"))
}

func TestNewS3Store_UsesConfig(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	var gotRegion string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		gotRegion = lo.Region
		return aws.Config{Region: lo.Region}, nil
	}

	var opts s3.Options
	fake := newFakeS3()
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fake
	}

	cfg := &config.Config{
		S3Region:       "eu-west-1",
		S3Bucket:       "bucket",
		S3BaseEndpoint: "http://minio:9000",
	}
	s, err := NewS3Store(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", gotRegion)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "bucket", s.bucket)
	assert.Same(t, fake, s.client)
}

func TestNewS3Store_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), &config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load aws config")
}
