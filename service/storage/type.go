package storage

import "context"

type IService interface {
	// DownloadFile copies bucket/key into destPath.
	DownloadFile(ctx context.Context, bucket, key, destPath string) error
	// UploadFile stores srcPath at bucket/key and returns its location.
	UploadFile(ctx context.Context, bucket, key, srcPath, contentType string) (string, error)
}
