package pipeline

import (
	"image"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// ContourDetector reports small blobs whose contour is identical in both frames.
func ContourDetector(first, second gocv.Mat, cfgSvc config.IService) ([]model.Point, error) {
	params := cfgSvc.GetContourParameters()

	c1, err := SmallContours(first, params)
	if err != nil {
		return nil, xerrors.Errorf("first frame: %w", err)
	}

	c2, err := SmallContours(second, params)
	if err != nil {
		return nil, xerrors.Errorf("second frame: %w", err)
	}

	return CommonContourPoints(c1, c2), nil
}

// SmallContours binarises the frame and returns every contour whose closed
// perimeter lies strictly between the configured bounds.
func SmallContours(frame gocv.Mat, params config.ContourParameters) ([][]image.Point, error) {
	if frame.Empty() {
		return nil, xerrors.New("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, params.BinaryThreshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(binary, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	small := [][]image.Point{}
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		perimeter := gocv.ArcLength(contour, true)
		if perimeter <= params.MinPerimeter || perimeter >= params.MaxPerimeter {
			continue
		}
		small = append(small, contour.ToPoints())
	}

	return small, nil
}

// CommonContourPoints keeps the contours of a that appear, point for point,
// in b and returns the first boundary point of each.
func CommonContourPoints(a, b [][]image.Point) []model.Point {
	specs := []model.Point{}

	for _, ca := range a {
		if len(ca) == 0 {
			continue
		}

		for _, cb := range b {
			if equalContours(ca, cb) {
				specs = append(specs, model.Point{X: ca[0].X, Y: ca[0].Y})
				break
			}
		}
	}

	return specs
}

func equalContours(a, b []image.Point) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
