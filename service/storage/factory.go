package storage

import (
	"github.com/khaledhikmat/spec-operators/service/config"
	"golang.org/x/xerrors"
)

// New returns the storage backend selected in configuration.
func New(cfgsvc config.IService) (IService, error) {
	switch cfgsvc.GetStorageBackend() {
	case config.StorageFiles:
		return NewFiles(cfgsvc), nil
	case config.StorageMinio:
		return NewMinio(cfgsvc)
	default:
		return nil, xerrors.Errorf("unsupported storage backend %q", cfgsvc.GetStorageBackend())
	}
}
