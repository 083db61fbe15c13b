package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	put     *s3.PutObjectInput
	body    []byte
	deleted []string
	err     error
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil
}

func (f *fakeObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestR2Uploader_Upload(t *testing.T) {
	api := &fakeObjectAPI{}
	u := newR2Uploader(api, "arena", "https://cdn.arena.gg/")

	res, err := u.Upload(context.Background(), "avatars/1/x.png", "image/png", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.ETag)
	assert.Equal(t, "https://cdn.arena.gg/avatars/1/x.png", res.Location)
	assert.Equal(t, "arena", aws.ToString(api.put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(api.put.ContentType))
	assert.Equal(t, []byte("data"), api.body)

	require.NoError(t, u.Delete(context.Background(), "avatars/1/x.png"))
	assert.Equal(t, []string{"avatars/1/x.png"}, api.deleted)
}

func TestR2Uploader_Errors(t *testing.T) {
	api := &fakeObjectAPI{err: errors.New("boom")}
	u := newR2Uploader(api, "arena", "https://cdn.arena.gg")

	_, err := u.Upload(context.Background(), "k", "image/png", strings.NewReader("x"))
	assert.ErrorContains(t, err, "key: k")
	assert.Error(t, u.Delete(context.Background(), "k"))
	assert.Empty(t, u.GetPublicURL(""))
}

func TestNewCloudflareR2Uploader_RequiresConfig(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "a"})
	assert.Error(t, err)
}

func TestDisabledUploader(t *testing.T) {
	u := NewDisabledUploader()
	_, err := u.Upload(context.Background(), "k", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.NoError(t, u.Delete(context.Background(), "k"))
	assert.Empty(t, u.GetPublicURL("k"))
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestReadImage(t *testing.T) {
	img, err := ReadImage(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Ext)

	_, err = ReadImage(strings.NewReader("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ReadImage(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxImageSize)...)
	_, err = ReadImage(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestObjectKeys(t *testing.T) {
	assert.Regexp(t, `^avatars/7/[0-9a-f-]{36}\.png$`, AvatarKey(7, ".png"))
	assert.Regexp(t, `^payments/12/[0-9a-f-]{36}\.jpg$`, PaymentScreenshotKey(12, ".jpg"))
	assert.Regexp(t, `^logos/tournaments/3/[0-9a-f-]{36}\.webp$`, TournamentLogoKey(3, ".webp"))
}
