package data

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRoundTrip(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	cfgSvc, err := config.NewEnv()
	require.NoError(t, err)

	ctx := context.Background()
	svc, err := NewPostgres(ctx, cfgSvc)
	require.NoError(t, err)
	defer svc.Close()

	assetID := uuid.NewString()

	_, err = svc.RetrieveAssetMetadata(ctx, assetID, "CosmicRaySpec")
	assert.True(t, errors.Is(err, ErrNotFound))

	resp, err := svc.StoreAssetMetadata(ctx, assetID, "CosmicRaySpec", "wf-1", map[string]interface{}{
		"num_specs": 1,
		"specs_xy":  []interface{}{[]interface{}{10, 12}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, resp["Status"])

	doc, err := svc.RetrieveAssetMetadata(ctx, assetID, "CosmicRaySpec")
	require.NoError(t, err)
	results, ok := doc["results"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), results["num_specs"])

	require.NoError(t, svc.NewError(model.GenError("test", errors.New("inner"), nil, "msg")))
	require.NoError(t, svc.NewDetectionStats(model.DetectionStats{Operator: "CosmicRaySpec", AssetID: assetID}))
}
