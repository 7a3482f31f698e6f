package storage

import (
	"context"
	"fmt"

	"github.com/khaledhikmat/spec-operators/service/config"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/xerrors"
)

type minioService struct {
	CfgSvc config.IService
	client *miniogo.Client
}

// NewMinio talks to any S3 compatible endpoint.
func NewMinio(cfgsvc config.IService) (IService, error) {
	params := cfgsvc.GetMinioParameters()
	client, err := miniogo.New(params.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(params.AccessKey, params.SecretKey, ""),
		Secure: params.UseSSL,
	})
	if err != nil {
		return nil, xerrors.Errorf("create minio client: %w", err)
	}

	return &minioService{
		CfgSvc: cfgsvc,
		client: client,
	}, nil
}

func (svc *minioService) DownloadFile(ctx context.Context, bucket, key, destPath string) error {
	if err := svc.client.FGetObject(ctx, bucket, key, destPath, miniogo.GetObjectOptions{}); err != nil {
		return xerrors.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (svc *minioService) UploadFile(ctx context.Context, bucket, key, srcPath, contentType string) (string, error) {
	_, err := svc.client.FPutObject(ctx, bucket, key, srcPath, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", xerrors.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
