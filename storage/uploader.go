package storage

import (
	"context"
	"errors"
	"io"
)

var ErrStorageDisabled = errors.New("object storage is not configured")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

type disabledUploader struct{}

// NewDisabledUploader rejects uploads and resolves no URLs. Used when R2 is not configured.
func NewDisabledUploader() FileUploader {
	return disabledUploader{}
}

func (disabledUploader) Upload(context.Context, string, string, io.Reader) (*UploadResult, error) {
	return nil, ErrStorageDisabled
}

func (disabledUploader) Delete(context.Context, string) error { return nil }

func (disabledUploader) GetPublicURL(string) string { return "" }
