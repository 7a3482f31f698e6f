package data

import (
	"context"

	"github.com/khaledhikmat/spec-operators/service/config"
	"golang.org/x/xerrors"
)

// New returns the dataplane backend selected in configuration.
func New(ctx context.Context, cfgsvc config.IService) (IService, error) {
	switch cfgsvc.GetDataBackend() {
	case config.DataFiles:
		return NewFilesDB(cfgsvc), nil
	case config.DataPostgres:
		return NewPostgres(ctx, cfgsvc)
	default:
		return nil, xerrors.Errorf("unsupported data backend %q", cfgsvc.GetDataBackend())
	}
}
