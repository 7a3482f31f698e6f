package pipeline

import (
	"math"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// PixelDetector is the neighbourhood heuristic: a spec is a pixel that stands
// out from all four of its neighbours at the margin distance, in both frames.
func PixelDetector(first, second gocv.Mat, cfgSvc config.IService) ([]model.Point, error) {
	f1, err := FrameFromMat(first)
	if err != nil {
		return nil, xerrors.Errorf("first frame: %w", err)
	}

	f2, err := FrameFromMat(second)
	if err != nil {
		return nil, xerrors.Errorf("second frame: %w", err)
	}

	return DetectPixelSpecs(f1, f2, cfgSvc.GetPixelParameters()), nil
}

// DetectPixelSpecs intersects the candidates of both frames by proximity.
// Every frame-1 candidate can be recorded at most once, so the result never
// holds more points than frame 1 produced.
func DetectPixelSpecs(first, second model.Frame, params config.PixelParameters) []model.Point {
	recorded := PixelCandidates(first, params.Margin, params.Threshold1, params.Window1)
	used := make([]bool, len(recorded))

	specs := []model.Point{}
	for _, c := range PixelCandidates(second, params.Margin, params.Threshold2, params.Window2) {
		for i, r := range recorded {
			if used[i] || !within(r, c, params.Window1) {
				continue
			}

			used[i] = true
			specs = append(specs, c)
			break
		}
	}

	return specs
}

// PixelCandidates scans interior pixels in row-major order and keeps those
// whose colour distance to the left, right, upper and lower neighbour at
// margin offset all exceed threshold. A candidate within window of one
// already found is dropped.
func PixelCandidates(frame model.Frame, margin int, threshold float64, window int) []model.Point {
	points := []model.Point{}

	for y := margin; y < frame.Height-margin; y++ {
		for x := margin; x < frame.Width-margin; x++ {
			if !isSpecPixel(frame, x, y, margin, threshold) {
				continue
			}

			p := model.Point{X: x, Y: y}
			if nearAny(points, p, window) {
				continue
			}

			points = append(points, p)
		}
	}

	return points
}

func isSpecPixel(frame model.Frame, x, y, margin int, threshold float64) bool {
	neighbours := [4][2]int{
		{x - margin, y},
		{x + margin, y},
		{x, y - margin},
		{x, y + margin},
	}

	for _, n := range neighbours {
		if colorDistance(frame, x, y, n[0], n[1]) <= threshold {
			return false
		}
	}

	return true
}

func colorDistance(frame model.Frame, x1, y1, x2, y2 int) float64 {
	a0, a1, a2 := frame.At(x1, y1)
	b0, b1, b2 := frame.At(x2, y2)

	d0 := float64(a0) - float64(b0)
	d1 := float64(a1) - float64(b1)
	d2 := float64(a2) - float64(b2)
	return math.Sqrt(d0*d0 + d1*d1 + d2*d2)
}

func nearAny(points []model.Point, p model.Point, window int) bool {
	for _, q := range points {
		if within(q, p, window) {
			return true
		}
	}
	return false
}

func within(a, b model.Point, window int) bool {
	return abs(a.X-b.X) <= window && abs(a.Y-b.Y) <= window
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
