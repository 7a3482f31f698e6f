package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/pipeline"
	"github.com/khaledhikmat/spec-operators/service/data"
	"github.com/khaledhikmat/spec-operators/service/lgr"
)

type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", lgr.WithStack(errTemp)),
		)
	}
}

// errorMisc extracts the ids of a failed invocation for the error record.
func errorMisc(name string, inv model.Invocation, out model.OperatorOutput) map[string]interface{} {
	return map[string]interface{}{
		"operator":            name,
		"assetId":             inv.AssetID,
		"workflowExecutionId": inv.WorkflowExecutionID,
		"status":              out.Status,
		"diagnostic":          out.Diagnostic(),
	}
}
