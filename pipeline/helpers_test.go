package pipeline

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/khaledhikmat/spec-operators/service/data"
	"github.com/khaledhikmat/spec-operators/service/storage"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type testEnv struct {
	svcs       ServicesFactory
	storage    *spyStorage
	storageDir string
	dataDir    string
}

// newTestEnv wires file backed storage and dataplane under temp folders.
func newTestEnv(t *testing.T, env map[string]string) testEnv {
	t.Helper()

	storageDir := t.TempDir()
	dataDir := t.TempDir()
	t.Setenv("STORAGE_FOLDER", storageDir)
	t.Setenv("DATA_FOLDER", dataDir)
	t.Setenv("SCRATCH_FOLDER", t.TempDir())
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfgSvc, err := config.NewEnv()
	require.NoError(t, err)

	spy := &spyStorage{inner: storage.NewFiles(cfgSvc)}
	return testEnv{
		svcs: ServicesFactory{
			CfgSvc:     cfgSvc,
			DataSvc:    data.NewFilesDB(cfgSvc),
			StorageSvc: spy,
		},
		storage:    spy,
		storageDir: storageDir,
		dataDir:    dataDir,
	}
}

type spyStorage struct {
	inner     storage.IService
	failOn    string
	mu        sync.Mutex
	downloads int
	uploads   []string
}

func (s *spyStorage) DownloadFile(ctx context.Context, bucket, key, destPath string) error {
	s.mu.Lock()
	s.downloads++
	s.mu.Unlock()
	return s.inner.DownloadFile(ctx, bucket, key, destPath)
}

func (s *spyStorage) UploadFile(ctx context.Context, bucket, key, srcPath, contentType string) (string, error) {
	if s.failOn != "" && filepath.Base(key) == s.failOn {
		return "", errUploadRefused
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, key)
	s.mu.Unlock()
	return s.inner.UploadFile(ctx, bucket, key, srcPath, contentType)
}

var errUploadRefused = errors.New("upload refused")

// squareFrame returns a black frame with a filled square of the given colour.
func squareFrame(width, height int, square image.Rectangle, c0, c1, c2 uint8) model.Frame {
	f := model.NewFrame(width, height)
	for y := square.Min.Y; y < square.Max.Y; y++ {
		for x := square.Min.X; x < square.Max.X; x++ {
			f.Set(x, y, c0, c1, c2)
		}
	}
	return f
}

func matFromFrame(t *testing.T, f model.Frame) gocv.Mat {
	t.Helper()
	m, err := MatFromFrame(f)
	require.NoError(t, err)
	return m
}

// writeVideo encodes the same frame count times as an MJPG avi.
func writeVideo(t *testing.T, filename string, frame model.Frame, count int, fps float64) {
	t.Helper()

	writer, err := gocv.VideoWriterFile(filename, "MJPG", fps, frame.Width, frame.Height, true)
	require.NoError(t, err)
	defer writer.Close()
	require.True(t, writer.IsOpened())

	m := matFromFrame(t, frame)
	defer m.Close()

	for i := 0; i < count; i++ {
		require.NoError(t, writer.Write(m))
	}
}

// countFrames decodes a video and returns its frame count and the sizes seen.
func countFrames(t *testing.T, filename string) (int, map[image.Point]int) {
	t.Helper()

	capture, err := gocv.VideoCaptureFile(filename)
	require.NoError(t, err)
	defer capture.Close()

	img := gocv.NewMat()
	defer img.Close()

	sizes := map[image.Point]int{}
	frames := 0
	for capture.Read(&img) && !img.Empty() {
		sizes[image.Pt(img.Cols(), img.Rows())]++
		frames++
	}
	return frames, sizes
}

func seedShots(t *testing.T, svcs ServicesFactory, assetID string, segments ...model.Segment) {
	t.Helper()

	list := make([]interface{}, 0, len(segments))
	for _, s := range segments {
		list = append(list, map[string]interface{}{
			"StartTimestampMillis": s.StartTimestampMillis,
			"EndTimestampMillis":   s.EndTimestampMillis,
		})
	}

	_, err := svcs.DataSvc.StoreAssetMetadata(context.Background(), assetID, svcs.CfgSvc.GetUpstreamOperator(), "wf-shots", map[string]interface{}{
		"Segments": list,
	})
	require.NoError(t, err)
}
