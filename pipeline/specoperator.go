package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/khaledhikmat/spec-operators/service/data"
	"github.com/khaledhikmat/spec-operators/service/lgr"
	"github.com/khaledhikmat/spec-operators/service/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

const (
	CosmicRaySpecName = "CosmicRaySpec"

	outputImageName = "output_image.jpg"
	outputVideoName = "output_canny_video.mp4"
)

var detectors = map[string]Detector{
	config.DetectorPixel:   PixelDetector,
	config.DetectorContour: ContourDetector,
}

// CosmicRaySpec samples two frames of the first shot, looks for stationary
// oversaturated clusters, uploads an annotated frame plus an edge video and
// stores {num_specs, specs_xy} for the asset.
func CosmicRaySpec(ctx context.Context, svcs ServicesFactory, inv model.Invocation) (model.OperatorOutput, error) {
	op := NewOperationHelper(CosmicRaySpecName, inv)
	span := trace.SpanFromContext(ctx)
	begin := time.Now()

	video := inv.Input.Media.Video
	if inv.WorkflowExecutionID == "" || inv.AssetID == "" || video == nil || video.S3Bucket == "" || video.S3Key == "" {
		return op.Fail(nil, "No valid inputs")
	}

	detectorName := svcs.CfgSvc.GetDetectorVersion()
	detector, ok := detectors[detectorName]
	if !ok {
		return op.Fail(nil, "Unknown detector version %s", detectorName)
	}

	stageStart := time.Now()
	segment, err := firstShot(ctx, svcs, inv.AssetID)
	if err != nil {
		return op.Fail(err, "Unable to read shot metadata for asset %s. %v", inv.AssetID, err)
	}

	offsets, err := SampleOffsets(segment)
	if err != nil {
		return op.Fail(err, "Invalid shot segment for asset %s. %v", inv.AssetID, err)
	}
	observeStage(op.Name(), "metadata", stageStart)

	workDir := filepath.Join(svcs.CfgSvc.GetScratchFolder(), uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return op.Fail(err, "Unable to create scratch area. %v", err)
	}
	defer os.RemoveAll(workDir)

	lgr.Logger.Info(
		"fetching source video",
		slog.String("bucket", video.S3Bucket),
		slog.String("key", video.S3Key),
		slog.Any("offsets", offsets),
	)

	stageStart = time.Now()
	videoPath := filepath.Join(workDir, "input"+path.Ext(video.S3Key))
	if err := svcs.StorageSvc.DownloadFile(ctx, video.S3Bucket, video.S3Key, videoPath); err != nil {
		return op.Fail(err, "Unable to download s3://%s/%s. %v", video.S3Bucket, video.S3Key, err)
	}
	observeStage(op.Name(), "download", stageStart)
	span.AddEvent("video downloaded")

	stageStart = time.Now()
	frames, err := SampleFrames(videoPath, offsets...)
	if err != nil {
		return op.Fail(err, "Unable to read frames from s3://%s/%s. %v", video.S3Bucket, video.S3Key, err)
	}
	defer CloseMats(frames)

	points, err := detector(frames[0], frames[1], svcs.CfgSvc)
	if err != nil {
		return op.Fail(err, "Error detecting specs. %v", err)
	}
	result := model.NewSpecResult(points)
	observeStage(op.Name(), "detect", stageStart)
	metrics.SpecsDetected.WithLabelValues(detectorName).Observe(float64(result.NumSpecs))
	span.AddEvent("specs detected", trace.WithAttributes(attribute.Int("num_specs", result.NumSpecs)))

	render := svcs.CfgSvc.GetRenderParameters()

	stageStart = time.Now()
	imagePath := filepath.Join(workDir, outputImageName)
	if err := Annotate(frames[1], points, render.CircleRadius, imagePath); err != nil {
		return op.Fail(err, "Unable to write annotated image. %v", err)
	}

	edgesPath := filepath.Join(workDir, outputVideoName)
	rendered, err := RenderEdges(videoPath, edgesPath, render)
	if err != nil {
		return op.Fail(err, "Unable to render edge video. %v", err)
	}
	metrics.FramesRendered.Add(float64(rendered))
	observeStage(op.Name(), "render", stageStart)

	stageStart = time.Now()
	bucket := svcs.CfgSvc.GetDataplaneBucket()
	imageKey := assetObjectKey(inv.AssetID, outputImageName)
	if _, err := svcs.StorageSvc.UploadFile(ctx, bucket, imageKey, imagePath, "image/jpeg"); err != nil {
		return op.Fail(err, "Unable to upload %s. %v", imageKey, err)
	}

	videoKey := assetObjectKey(inv.AssetID, outputVideoName)
	if _, err := svcs.StorageSvc.UploadFile(ctx, bucket, videoKey, edgesPath, "video/mp4"); err != nil {
		return op.Fail(err, "Unable to upload %s. %v", videoKey, err)
	}
	observeStage(op.Name(), "upload", stageStart)

	op.AddMediaObject("Image", bucket, imageKey)
	op.AddMediaObject("Video", bucket, videoKey)

	if out, err := storeResults(ctx, svcs, op, inv, result); err != nil {
		return out, err
	}

	stats := model.DetectionStats{
		Operator:    op.Name(),
		Detector:    detectorName,
		AssetID:     inv.AssetID,
		WorkflowID:  inv.WorkflowExecutionID,
		NumSpecs:    result.NumSpecs,
		SpecsXY:     result.SpecsXY,
		ProcSeconds: time.Since(begin).Seconds(),
		Timestamp:   time.Now().Unix(),
	}
	logDetections(svcs.DetectionLog, stats)
	if err := svcs.DataSvc.NewDetectionStats(stats); err != nil {
		lgr.Logger.Warn("failed to store detection stats", slog.Any("error", err))
	}

	op.AddWorkflowMetadata("NumSpecs", result.NumSpecs)
	op.UpdateWorkflowStatus(model.StatusComplete)
	return op.ReturnOutputObject(), nil
}

// firstShot reads the upstream shot detection results and returns segment 0.
func firstShot(ctx context.Context, svcs ServicesFactory, assetID string) (model.Segment, error) {
	upstream := svcs.CfgSvc.GetUpstreamOperator()
	doc, err := svcs.DataSvc.RetrieveAssetMetadata(ctx, assetID, upstream)
	if errors.Is(err, data.ErrNotFound) {
		return model.Segment{}, xerrors.Errorf("no %s results for asset %s", upstream, assetID)
	}
	if err != nil {
		return model.Segment{}, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return model.Segment{}, xerrors.Errorf("encode %s results: %w", upstream, err)
	}

	var shots model.ShotMetadata
	if err := json.Unmarshal(raw, &shots); err != nil {
		return model.Segment{}, xerrors.Errorf("malformed %s results: %w", upstream, err)
	}

	if shots.Results == nil || len(shots.Results.Segments) == 0 {
		return model.Segment{}, xerrors.Errorf("%s results for asset %s have no segments", upstream, assetID)
	}

	return shots.Results.Segments[0], nil
}

// storeResults validates the result shape and persists it to the dataplane.
func storeResults(ctx context.Context, svcs ServicesFactory, op *OperationHelper, inv model.Invocation, results interface{}) (model.OperatorOutput, error) {
	metadata, err := toMetadata(results)
	if err != nil {
		return op.Fail(err, "%v", err)
	}

	op.AddWorkflowMetadata("AssetId", inv.AssetID)
	op.AddWorkflowMetadata("WorkflowExecutionId", inv.WorkflowExecutionID)

	resp, err := svcs.DataSvc.StoreAssetMetadata(ctx, inv.AssetID, op.Name(), inv.WorkflowExecutionID, metadata)
	if err != nil {
		return op.Fail(err, "Unable to upload metadata for asset: %s", inv.AssetID)
	}

	lgr.Logger.Debug("dataplane response", slog.Any("response", resp))

	status, ok := resp["Status"]
	if !ok || status != model.StatusSuccess {
		return op.Fail(nil, "Unable to upload metadata for asset: %s", inv.AssetID)
	}

	lgr.Logger.Info("uploaded metadata", slog.String("assetId", inv.AssetID), slog.String("operator", op.Name()))
	return op.ReturnOutputObject(), nil
}

// toMetadata converts v to the plain key/value form the dataplane accepts.
func toMetadata(v interface{}) (map[string]interface{}, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return nil, xerrors.Errorf("encode metadata: %w", err)
		}
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, xerrors.Errorf("decode metadata: %w", err)
	}

	metadata, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, xerrors.Errorf("Metadata must be of type dict. Found %s instead.", jsonKind(decoded))
	}

	return metadata, nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "list"
	case string:
		return "str"
	case float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func assetObjectKey(assetID, name string) string {
	return path.Join("private", "assets", assetID, name)
}

func observeStage(operator, stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(operator, stage).Observe(time.Since(start).Seconds())
}
