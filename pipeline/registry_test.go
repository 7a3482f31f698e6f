package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorsRegistered(t *testing.T) {
	assert.Equal(t, []string{CosmicRaySpecName, GenericDataLookupName}, Operators())
}

func TestInvokeUnknownOperator(t *testing.T) {
	te := newTestEnv(t, nil)

	_, err := Invoke(context.Background(), te.svcs, "Nope", model.Invocation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator Nope not found")

	var execErr *model.ExecutionError
	assert.False(t, errors.As(err, &execErr))
}

func TestRegisterOperatorKeepsFirst(t *testing.T) {
	called := false
	RegisterOperator(CosmicRaySpecName, func(context.Context, ServicesFactory, model.Invocation) (model.OperatorOutput, error) {
		called = true
		return model.OperatorOutput{}, nil
	})

	te := newTestEnv(t, nil)
	_, err := Invoke(context.Background(), te.svcs, CosmicRaySpecName, model.Invocation{})
	requireExecutionError(t, err)
	assert.False(t, called)
}

func TestInvokeUsesRoutedName(t *testing.T) {
	te := newTestEnv(t, nil)
	putLookup(t, te, `{"Labels": ["sky"]}`)

	inv := lookupInvocation()
	inv.Name = CosmicRaySpecName

	out, err := Invoke(context.Background(), te.svcs, GenericDataLookupName, inv)
	require.NoError(t, err)
	assert.Equal(t, GenericDataLookupName, out.Name)

	_, err = te.svcs.DataSvc.RetrieveAssetMetadata(context.Background(), testAsset, GenericDataLookupName)
	assert.NoError(t, err)

	_, err = te.svcs.DataSvc.RetrieveAssetMetadata(context.Background(), testAsset, CosmicRaySpecName)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestInvokeFailureKeyFollowsRoutedName(t *testing.T) {
	te := newTestEnv(t, nil)

	out, err := Invoke(context.Background(), te.svcs, CosmicRaySpecName, model.Invocation{Name: "Renamed"})
	requireExecutionError(t, err)
	assert.Equal(t, CosmicRaySpecName, out.Name)
	assert.Equal(t, "No valid inputs", out.MetaData["CosmicRaySpecError"])
	assert.NotContains(t, out.MetaData, "RenamedError")
}
