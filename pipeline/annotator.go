package pipeline

import (
	"image"
	"image/color"

	"github.com/khaledhikmat/spec-operators/model"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

const annotationThickness = 2

var annotationColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}

// Annotate draws one circle centred on each point onto a copy of frame and
// writes it to filename. The image keeps the frame's dimensions.
func Annotate(frame gocv.Mat, points []model.Point, radius int, filename string) error {
	if frame.Empty() {
		return xerrors.New("cannot annotate an empty frame")
	}

	annotated := frame.Clone()
	defer annotated.Close()

	for _, p := range points {
		gocv.Circle(&annotated, image.Pt(p.X, p.Y), radius, annotationColor, annotationThickness)
	}

	if ok := gocv.IMWrite(filename, annotated); !ok {
		return xerrors.Errorf("error writing annotated image %s", filename)
	}

	return nil
}
