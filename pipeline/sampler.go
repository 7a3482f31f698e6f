package pipeline

import (
	"fmt"

	"github.com/khaledhikmat/spec-operators/model"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// FrameDecodeError reports a seek or read that did not yield a frame.
type FrameDecodeError struct {
	Path         string
	OffsetMillis int64
	Reason       string
}

func (e *FrameDecodeError) Error() string {
	if e.OffsetMillis < 0 {
		return fmt.Sprintf("decode %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("decode %s at %dms: %s", e.Path, e.OffsetMillis, e.Reason)
}

// SampleOffsets returns the shot midpoint and the point a quarter of the
// shot's duration before its end, in milliseconds.
func SampleOffsets(segment model.Segment) ([]int64, error) {
	if segment.StartTimestampMillis < 0 || segment.EndTimestampMillis <= segment.StartTimestampMillis {
		return nil, xerrors.Errorf("invalid segment [%d, %d]", segment.StartTimestampMillis, segment.EndTimestampMillis)
	}

	duration := segment.EndTimestampMillis - segment.StartTimestampMillis
	return []int64{
		segment.EndTimestampMillis - duration/2,
		segment.EndTimestampMillis - duration/4,
	}, nil
}

// SampleFrames seeks to each offset and decodes one frame there.
// The caller owns the returned mats.
func SampleFrames(path string, offsets ...int64) ([]gocv.Mat, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, &FrameDecodeError{Path: path, OffsetMillis: -1, Reason: err.Error()}
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return nil, &FrameDecodeError{Path: path, OffsetMillis: -1, Reason: "video cannot be opened"}
	}

	frames := make([]gocv.Mat, 0, len(offsets))
	for _, offset := range offsets {
		capture.Set(gocv.VideoCapturePosMsec, float64(offset))

		img := gocv.NewMat()
		if ok := capture.Read(&img); !ok || img.Empty() {
			img.Close() // Crucial to close the image to avoid memory leaks
			CloseMats(frames)
			return nil, &FrameDecodeError{Path: path, OffsetMillis: offset, Reason: "no frame returned"}
		}

		frames = append(frames, img)
	}

	return frames, nil
}

// FrameFromMat copies an 8-bit BGR mat into a Frame.
func FrameFromMat(mat gocv.Mat) (model.Frame, error) {
	if mat.Empty() {
		return model.Frame{}, xerrors.New("empty mat")
	}

	if mat.Type() != gocv.MatTypeCV8UC3 {
		return model.Frame{}, xerrors.Errorf("expected an 8-bit 3-channel mat, got type %v", mat.Type())
	}

	return model.Frame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    mat.ToBytes(),
	}, nil
}

// MatFromFrame builds a BGR mat that owns a copy of the frame samples.
func MatFromFrame(frame model.Frame) (gocv.Mat, error) {
	view, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return gocv.NewMat(), xerrors.Errorf("build mat: %w", err)
	}
	defer view.Close()

	return view.Clone(), nil
}

func CloseMats(mats []gocv.Mat) {
	for _, m := range mats {
		m.Close()
	}
}
