package mode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/spec-operators/pipeline"
	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/khaledhikmat/spec-operators/service/data"
	"github.com/khaledhikmat/spec-operators/service/storage"
	"github.com/stretchr/testify/require"
)

const lookupPayload = `{
  "WorkflowExecutionId": "wf-1",
  "AssetId": "asset-1",
  "Input": {"Media": {}},
  "Configuration": {"Bucket": "lookups", "Key": "asset-1.json"}
}`

// newTestServices wires file backends under temp folders and seeds one lookup document.
func newTestServices(t *testing.T) (pipeline.ServicesFactory, string) {
	t.Helper()

	storageDir := t.TempDir()
	dataDir := t.TempDir()
	t.Setenv("STORAGE_FOLDER", storageDir)
	t.Setenv("DATA_FOLDER", dataDir)
	t.Setenv("SCRATCH_FOLDER", t.TempDir())

	cfgSvc, err := config.NewEnv()
	require.NoError(t, err)

	lookup := filepath.Join(storageDir, "lookups", "asset-1.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(lookup), 0755))
	require.NoError(t, os.WriteFile(lookup, []byte(`{"Labels": ["sky"]}`), 0644))

	return pipeline.ServicesFactory{
		CfgSvc:     cfgSvc,
		DataSvc:    data.NewFilesDB(cfgSvc),
		StorageSvc: storage.NewFiles(cfgSvc),
	}, dataDir
}
