package pipeline

import (
	"image"
	"log/slog"

	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/khaledhikmat/spec-operators/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// RenderEdges re-encodes every frame of src as its Canny edge map, resized to
// the configured output size. It returns the number of frames written.
// WARNING:
// GoCV writes uncompressed-quality frames through the container codec, so the
// output may be much larger than the source.
func RenderEdges(src, dst string, params config.RenderParameters) (int, error) {
	capture, err := gocv.VideoCaptureFile(src)
	if err != nil {
		return 0, &FrameDecodeError{Path: src, OffsetMillis: -1, Reason: err.Error()}
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return 0, &FrameDecodeError{Path: src, OffsetMillis: -1, Reason: "video cannot be opened"}
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = params.FallbackFPS
	}

	writer, err := gocv.VideoWriterFile(dst, params.Codec, fps, params.OutputWidth, params.OutputHeight, true)
	if err != nil {
		return 0, xerrors.Errorf("error creating video writer: %w", err)
	}
	defer writer.Close()

	if !writer.IsOpened() {
		return 0, xerrors.Errorf("video writer for %s (codec %s) is not opened", dst, params.Codec)
	}

	img := gocv.NewMat()
	defer img.Close()
	gray := gocv.NewMat()
	defer gray.Close()
	edges := gocv.NewMat()
	defer edges.Close()
	colored := gocv.NewMat()
	defer colored.Close()
	resized := gocv.NewMat()
	defer resized.Close()

	size := image.Pt(params.OutputWidth, params.OutputHeight)
	frames := 0
	for {
		if ok := capture.Read(&img); !ok || img.Empty() {
			break
		}

		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
		gocv.Canny(gray, &edges, params.CannyLow, params.CannyHigh)
		gocv.CvtColor(edges, &colored, gocv.ColorGrayToBGR)
		gocv.Resize(colored, &resized, size, 0, 0, gocv.InterpolationLinear)

		if err := writer.Write(resized); err != nil {
			lgr.Logger.Error(
				"error writing edge frame",
				slog.Int("frame", frames),
				slog.Any("error", err),
			)
			return frames, xerrors.Errorf("write frame %d: %w", frames, err)
		}
		frames++
	}

	if frames == 0 {
		return 0, &FrameDecodeError{Path: src, OffsetMillis: -1, Reason: "no frames decoded"}
	}

	lgr.Logger.Debug(
		"edge video rendered",
		slog.String("source", src),
		slog.String("output", dst),
		slog.Int("frames", frames),
		slog.Float64("fps", fps),
	)

	return frames, nil
}
