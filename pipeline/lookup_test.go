package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupInvocation() model.Invocation {
	return model.Invocation{
		WorkflowExecutionID: testWorkflow,
		AssetID:             testAsset,
		Configuration: map[string]interface{}{
			"Bucket": "lookups",
			"Key":    "asset-1.json",
		},
	}
}

func putLookup(t *testing.T, te testEnv, body string) {
	t.Helper()

	filename := filepath.Join(te.storageDir, "lookups", "asset-1.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0755))
	require.NoError(t, os.WriteFile(filename, []byte(body), 0644))
}

func TestGenericDataLookupStoresDocument(t *testing.T) {
	te := newTestEnv(t, nil)
	putLookup(t, te, `{"Labels": ["sky", "sea"], "Score": 0.5}`)

	out, err := Invoke(context.Background(), te.svcs, GenericDataLookupName, lookupInvocation())
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, out.Status)
	assert.Equal(t, GenericDataLookupName, out.Name)

	doc, err := te.svcs.DataSvc.RetrieveAssetMetadata(context.Background(), testAsset, GenericDataLookupName)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"Labels": []interface{}{"sky", "sea"},
		"Score":  0.5,
	}, doc["results"])
}

func TestGenericDataLookupRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		mutate func(*model.Invocation)
		want   string
	}{
		{
			name: "list document",
			body: `[1, 2, 3]`,
			want: "Metadata must be of type dict. Found list instead.",
		},
		{
			name: "invalid json",
			body: `{"Labels":`,
			want: "Error generating metadata. s3://lookups/asset-1.json is not valid JSON",
		},
		{
			name:   "missing key",
			body:   `{}`,
			mutate: func(inv *model.Invocation) { delete(inv.Configuration, "Key") },
			want:   "Missing Bucket or Key operator configuration",
		},
		{
			name:   "missing asset",
			body:   `{}`,
			mutate: func(inv *model.Invocation) { inv.AssetID = "" },
			want:   "No valid inputs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEnv(t, nil)
			putLookup(t, te, tt.body)

			inv := lookupInvocation()
			if tt.mutate != nil {
				tt.mutate(&inv)
			}

			out, err := GenericDataLookup(context.Background(), te.svcs, inv)
			requireExecutionError(t, err)
			assert.Equal(t, tt.want, out.Diagnostic())
			assert.Equal(t, tt.want, out.MetaData["GenericDataLookupError"])
		})
	}
}
