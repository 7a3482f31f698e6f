package pipeline

import (
	"image"
	"testing"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultPixelParams = config.PixelParameters{
	Margin:     5,
	Threshold1: 200,
	Threshold2: 150,
	Window1:    10,
	Window2:    5,
}

func spots(width, height int, points ...model.Point) model.Frame {
	f := model.NewFrame(width, height)
	for _, p := range points {
		f.Set(p.X, p.Y, 255, 255, 255)
	}
	return f
}

func TestPixelSpecsUniformFrame(t *testing.T) {
	f := model.NewFrame(64, 64)
	for i := range f.Pix {
		f.Pix[i] = 90
	}

	specs := DetectPixelSpecs(f, f, defaultPixelParams)
	assert.Empty(t, specs)
	assert.Equal(t, 0, model.NewSpecResult(specs).NumSpecs)
}

func TestPixelSpecsStaticSpot(t *testing.T) {
	f := spots(64, 64, model.Point{X: 20, Y: 30})

	specs := DetectPixelSpecs(f, f, defaultPixelParams)
	assert.Equal(t, []model.Point{{X: 20, Y: 30}}, specs)
}

func TestPixelSpecsSquareReportsOnePoint(t *testing.T) {
	f := squareFrame(64, 64, image.Rect(30, 30, 36, 36), 255, 255, 255)

	candidates := PixelCandidates(f, 5, 200, 10)
	require.Len(t, candidates, 1)
	assert.Equal(t, model.Point{X: 31, Y: 31}, candidates[0])

	specs := DetectPixelSpecs(f, f, defaultPixelParams)
	require.Len(t, specs, 1)
	assert.InDelta(t, 32.5, float64(specs[0].X), 3)
	assert.InDelta(t, 32.5, float64(specs[0].Y), 3)
}

func TestPixelSpecsNeverExceedFirstFrame(t *testing.T) {
	first := spots(64, 64, model.Point{X: 20, Y: 20})
	// Both second-frame spots sit within the first-frame window of the same
	// candidate but are far enough apart to survive second-frame dedup.
	second := spots(64, 64, model.Point{X: 20, Y: 20}, model.Point{X: 27, Y: 20})

	require.Len(t, PixelCandidates(second, 5, 150, 5), 2)

	specs := DetectPixelSpecs(first, second, defaultPixelParams)
	assert.LessOrEqual(t, len(specs), len(PixelCandidates(first, 5, 200, 10)))
	assert.Equal(t, []model.Point{{X: 20, Y: 20}}, specs)
}

func TestPixelSpecsRequireBothFrames(t *testing.T) {
	first := spots(64, 64, model.Point{X: 15, Y: 15})
	second := spots(64, 64, model.Point{X: 45, Y: 45})

	assert.Empty(t, DetectPixelSpecs(first, second, defaultPixelParams))
}

func TestPixelSpecsToleratesSmallMovement(t *testing.T) {
	first := spots(64, 64, model.Point{X: 20, Y: 20})
	second := spots(64, 64, model.Point{X: 26, Y: 23})

	assert.Equal(t, []model.Point{{X: 26, Y: 23}}, DetectPixelSpecs(first, second, defaultPixelParams))
}

func TestPixelCandidatesThresholds(t *testing.T) {
	f := model.NewFrame(64, 64)
	f.Set(20, 20, 180, 0, 0)

	assert.Empty(t, PixelCandidates(f, 5, 200, 10))
	assert.Len(t, PixelCandidates(f, 5, 150, 5), 1)

	// Frame 1 misses the dimmer spot, so nothing is reported
	assert.Empty(t, DetectPixelSpecs(f, f, defaultPixelParams))
}

func TestPixelCandidatesSkipMargin(t *testing.T) {
	f := spots(64, 64, model.Point{X: 3, Y: 30}, model.Point{X: 30, Y: 60})

	assert.Empty(t, PixelCandidates(f, 5, 200, 10))
}

func TestPixelCandidatesDedupWindow(t *testing.T) {
	f := spots(64, 64, model.Point{X: 20, Y: 20}, model.Point{X: 28, Y: 20})

	assert.Len(t, PixelCandidates(f, 5, 200, 10), 1)
	assert.Len(t, PixelCandidates(f, 5, 200, 5), 2)
}

func TestPixelCandidatesScanOrder(t *testing.T) {
	f := spots(64, 64, model.Point{X: 40, Y: 10}, model.Point{X: 10, Y: 40})

	assert.Equal(t, []model.Point{{X: 40, Y: 10}, {X: 10, Y: 40}}, PixelCandidates(f, 5, 200, 10))
}
