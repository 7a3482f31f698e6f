package pipeline

import (
	"context"
	"io"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/khaledhikmat/spec-operators/service/data"
	"github.com/khaledhikmat/spec-operators/service/storage"
	"gocv.io/x/gocv"
)

// ServicesFactory holds the collaborators of one invocation.
type ServicesFactory struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	StorageSvc storage.IService
	// DetectionLog receives one JSON record per detection run. Optional.
	DetectionLog io.Writer
}

// Signature of operator function
type Operator func(ctx context.Context, svcs ServicesFactory, inv model.Invocation) (model.OperatorOutput, error)

// Signature of detector function. Both frames are 8-bit BGR.
type Detector func(first, second gocv.Mat, cfgSvc config.IService) ([]model.Point, error)
