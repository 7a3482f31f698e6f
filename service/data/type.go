package data

import (
	"context"

	"github.com/khaledhikmat/spec-operators/model"
)

// IService is the dataplane: per-asset operator results plus process records.
type IService interface {
	// RetrieveAssetMetadata returns the latest stored document of an operator
	// for an asset, shaped as {"results": {...}}.
	RetrieveAssetMetadata(ctx context.Context, assetID, operatorName string) (map[string]interface{}, error)
	// StoreAssetMetadata persists results and returns a response carrying "Status".
	StoreAssetMetadata(ctx context.Context, assetID, operatorName, workflowID string, results map[string]interface{}) (map[string]interface{}, error)

	NewError(err interface{}) error
	NewDetectionStats(stats model.DetectionStats) error
	Close()
}

// ErrNotFound is returned when an asset has no stored results for an operator.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "asset metadata not found" }
