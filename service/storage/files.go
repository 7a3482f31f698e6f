package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/khaledhikmat/spec-operators/service/config"
	"golang.org/x/xerrors"
)

type filesService struct {
	CfgSvc config.IService
	root   string
}

// NewFiles stores objects as files under <storage folder>/<bucket>/<key>.
func NewFiles(cfgsvc config.IService) IService {
	return &filesService{
		CfgSvc: cfgsvc,
		root:   cfgsvc.GetStorageFolder(),
	}
}

func (svc *filesService) DownloadFile(_ context.Context, bucket, key, destPath string) error {
	src, err := svc.objectPath(bucket, key)
	if err != nil {
		return err
	}

	if err := copyFile(src, destPath); err != nil {
		return xerrors.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	return nil
}

func (svc *filesService) UploadFile(_ context.Context, bucket, key, srcPath, _ string) (string, error) {
	dest, err := svc.objectPath(bucket, key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", xerrors.Errorf("create bucket folder: %w", err)
	}

	if err := copyFile(srcPath, dest); err != nil {
		return "", xerrors.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func (svc *filesService) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", xerrors.New("bucket and key are required")
	}

	p := filepath.Join(svc.root, bucket, filepath.FromSlash(key))
	// Keys must not escape the bucket folder
	if !strings.HasPrefix(p, filepath.Join(svc.root, bucket)+string(filepath.Separator)) {
		return "", xerrors.Errorf("invalid object key %q", key)
	}

	return p, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
