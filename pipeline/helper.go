package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/lgr"
)

// OperationHelper accumulates the output object of one operator invocation.
type OperationHelper struct {
	output model.OperatorOutput
}

// NewOperationHelper names the output after the invocation, or name when the
// payload carries none.
func NewOperationHelper(name string, inv model.Invocation) *OperationHelper {
	if inv.Name != "" {
		name = inv.Name
	}

	return &OperationHelper{
		output: model.OperatorOutput{
			Name:                name,
			AssetID:             inv.AssetID,
			WorkflowExecutionID: inv.WorkflowExecutionID,
			Status:              "Started",
			MetaData:            map[string]interface{}{},
			Media:               map[string]interface{}{},
		},
	}
}

func (h *OperationHelper) Name() string {
	return h.output.Name
}

// ErrorKey is the metadata key holding the diagnostic message.
func (h *OperationHelper) ErrorKey() string {
	return h.output.Name + "Error"
}

func (h *OperationHelper) UpdateWorkflowStatus(status string) {
	h.output.Status = status
}

func (h *OperationHelper) AddWorkflowMetadata(key string, value interface{}) {
	h.output.MetaData[key] = value
}

func (h *OperationHelper) AddMediaObject(mediaType, bucket, key string) {
	h.output.Media[mediaType] = map[string]interface{}{
		"S3Bucket": bucket,
		"S3Key":    key,
	}
}

// ReturnOutputObject returns a copy of the accumulated output.
func (h *OperationHelper) ReturnOutputObject() model.OperatorOutput {
	out := h.output
	out.MetaData = make(map[string]interface{}, len(h.output.MetaData))
	for k, v := range h.output.MetaData {
		out.MetaData[k] = v
	}
	out.Media = make(map[string]interface{}, len(h.output.Media))
	for k, v := range h.output.Media {
		out.Media[k] = v
	}
	return out
}

// Fail marks the workflow errored, attaches the diagnostic and returns the
// output together with an *model.ExecutionError carrying it.
func (h *OperationHelper) Fail(cause error, messagef string, args ...interface{}) (model.OperatorOutput, error) {
	msg := fmt.Sprintf(messagef, args...)
	if cause == nil {
		cause = errors.New(msg)
	}
	cause = lgr.WithStack(cause)

	h.UpdateWorkflowStatus(model.StatusError)
	h.AddWorkflowMetadata(h.ErrorKey(), msg)

	lgr.Logger.Error(
		"operator failed",
		slog.String("operator", h.output.Name),
		slog.String("assetId", h.output.AssetID),
		slog.String("workflowExecutionId", h.output.WorkflowExecutionID),
		slog.String("message", msg),
		slog.Any("error", cause),
	)

	out := h.ReturnOutputObject()
	return out, &model.ExecutionError{
		Output: out,
		Cause:  cause,
	}
}
