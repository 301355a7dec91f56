package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/communitykeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.DeleteObjectInput
	err    error
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestKeyFromURL(t *testing.T) {
	s := NewImageStoreWithClient(&fakeS3{}, "profiles")

	tests := []struct {
		url    string
		key    string
		wantOK bool
	}{
		{"http://127.0.0.1:9000/profiles/u/1.png", "u/1.png", true},
		{"https://profiles.s3.amazonaws.com/u/1.png", "u/1.png", true},
		{"https://cdn.example.com/other/u/1.png", "", false},
		{"http://127.0.0.1:9000/profiles/", "", false},
		{"not a url", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		key, ok := s.KeyFromURL(tt.url)
		assert.Equal(t, tt.wantOK, ok, tt.url)
		assert.Equal(t, tt.key, key, tt.url)
	}
}

func TestRemoveImage(t *testing.T) {
	client := &fakeS3{}
	s := NewImageStoreWithClient(client, "profiles")

	require.NoError(t, s.RemoveImage(context.Background(), "http://127.0.0.1:9000/profiles/u/1.png"))
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "profiles", aws.ToString(client.inputs[0].Bucket))
	assert.Equal(t, "u/1.png", aws.ToString(client.inputs[0].Key))

	require.NoError(t, s.RemoveImage(context.Background(), "https://cdn.example.com/x.png"))
	assert.Len(t, client.inputs, 1, "foreign urls are not deleted")
}

func TestRemoveImage_Error(t *testing.T) {
	s := NewImageStoreWithClient(&fakeS3{err: errors.New("denied")}, "profiles")

	err := s.RemoveImage(context.Background(), "http://127.0.0.1:9000/profiles/u/1.png")
	assert.ErrorContains(t, err, "denied")
}

func TestNewImageStore(t *testing.T) {
	origLoad, origNew := loadAWSConfig, newS3ClientFromConfig
	defer func() { loadAWSConfig, newS3ClientFromConfig = origLoad, origNew }()

	var gotOpts s3.Options
	client := &fakeS3{}
	loadAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		var lo config.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		for _, fn := range optFns {
			fn(&gotOpts)
		}
		return client
	}

	c := &sc.Config{S3Region: "us-east-1", S3Bucket: "profiles", S3BaseEndpoint: "http://127.0.0.1:9000/",
		S3RootUser: "admin", S3RootPassword: "secret"}

	store, err := NewImageStore(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "profiles", store.bucket)
	assert.Equal(t, "http://127.0.0.1:9000/", aws.ToString(gotOpts.BaseEndpoint))
	assert.True(t, gotOpts.UsePathStyle)
}

func TestNewImageStore_ConfigError(t *testing.T) {
	orig := loadAWSConfig
	defer func() { loadAWSConfig = orig }()

	loadAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewImageStore(context.Background(), &sc.Config{})
	assert.ErrorContains(t, err, "no region")
}
