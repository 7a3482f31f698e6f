package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/lgr"
)

const GenericDataLookupName = "GenericDataLookup"

// GenericDataLookup copies a precomputed JSON document, named by the Bucket
// and Key operator parameters, into the dataplane for the asset.
func GenericDataLookup(ctx context.Context, svcs ServicesFactory, inv model.Invocation) (model.OperatorOutput, error) {
	op := NewOperationHelper(GenericDataLookupName, inv)

	if inv.WorkflowExecutionID == "" || inv.AssetID == "" {
		return op.Fail(nil, "No valid inputs")
	}

	if video := inv.Input.Media.Video; video != nil {
		lgr.Logger.Info(
			"looking up data for video",
			slog.String("bucket", video.S3Bucket),
			slog.String("key", video.S3Key),
		)
	}

	bucket := inv.ConfigString("Bucket")
	key := inv.ConfigString("Key")
	if bucket == "" || key == "" {
		return op.Fail(nil, "Missing Bucket or Key operator configuration")
	}

	workDir := filepath.Join(svcs.CfgSvc.GetScratchFolder(), uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return op.Fail(err, "Unable to create scratch area. %v", err)
	}
	defer os.RemoveAll(workDir)

	dataPath := filepath.Join(workDir, "lookup.json")
	if err := svcs.StorageSvc.DownloadFile(ctx, bucket, key, dataPath); err != nil {
		return op.Fail(err, "Error generating metadata. %v", err)
	}

	raw, err := os.ReadFile(dataPath)
	if err != nil {
		return op.Fail(err, "Error generating metadata. %v", err)
	}

	if !json.Valid(raw) {
		return op.Fail(nil, "Error generating metadata. s3://%s/%s is not valid JSON", bucket, key)
	}

	if out, err := storeResults(ctx, svcs, op, inv, json.RawMessage(raw)); err != nil {
		return out, err
	}

	op.UpdateWorkflowStatus(model.StatusComplete)
	return op.ReturnOutputObject(), nil
}
