package model

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
)

const (
	StatusComplete = "Complete"
	StatusError    = "Error"
	StatusSuccess  = "Success"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// ExecutionError is returned by an operator that marked its workflow as errored.
// Output carries the full response payload (status, ids and the diagnostic entry).
type ExecutionError struct {
	Output OperatorOutput
	Cause  error
}

func (e *ExecutionError) Error() string {
	msg := e.Output.Diagnostic()
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	return fmt.Sprintf("operator %s failed for asset %s: %s", e.Output.Name, e.Output.AssetID, msg)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

type VideoLocation struct {
	S3Bucket string `json:"S3Bucket"`
	S3Key    string `json:"S3Key"`
}

type Media struct {
	Video *VideoLocation `json:"Video,omitempty"`
}

type Input struct {
	Media    Media                  `json:"Media"`
	MetaData map[string]interface{} `json:"MetaData,omitempty"`
}

// Invocation is the payload the workflow engine hands to an operator.
type Invocation struct {
	Name                string                 `json:"Name"`
	WorkflowExecutionID string                 `json:"WorkflowExecutionId"`
	AssetID             string                 `json:"AssetId"`
	Input               Input                  `json:"Input"`
	Configuration       map[string]interface{} `json:"Configuration,omitempty"`
}

// ConfigString returns a string operator parameter or "" if absent.
func (inv Invocation) ConfigString(key string) string {
	if inv.Configuration == nil {
		return ""
	}
	s, _ := inv.Configuration[key].(string)
	return s
}

type OperatorOutput struct {
	Name                string                 `json:"Name"`
	AssetID             string                 `json:"AssetId"`
	WorkflowExecutionID string                 `json:"WorkflowExecutionId"`
	Status              string                 `json:"Status"`
	MetaData            map[string]interface{} `json:"MetaData"`
	Media               map[string]interface{} `json:"Media"`
}

// Diagnostic returns the operator-specific error message, if any.
func (o OperatorOutput) Diagnostic() string {
	s, _ := o.MetaData[o.Name+"Error"].(string)
	return s
}

type Segment struct {
	StartTimestampMillis int64 `json:"StartTimestampMillis"`
	EndTimestampMillis   int64 `json:"EndTimestampMillis"`
}

type ShotResults struct {
	Segments []Segment `json:"Segments"`
}

// ShotMetadata is the stored result of the upstream shot detection stage.
type ShotMetadata struct {
	Results *ShotResults `json:"results"`
}

// Point is a pixel coordinate. It encodes as a two element JSON array.
type Point struct {
	X int
	Y int
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var xy [2]int
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

type SpecResult struct {
	NumSpecs int     `json:"num_specs"`
	SpecsXY  []Point `json:"specs_xy"`
}

func NewSpecResult(points []Point) SpecResult {
	if points == nil {
		points = []Point{}
	}
	return SpecResult{
		NumSpecs: len(points),
		SpecsXY:  points,
	}
}

// Frame is a decoded 8-bit, 3-channel (BGR) image copied out of a video.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// At returns the three channel samples at column x and row y.
func (f Frame) At(x, y int) (uint8, uint8, uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the samples at column x and row y.
func (f Frame) Set(x, y int, c0, c1, c2 uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c0, c1, c2
}

func NewFrame(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

type DetectionStats struct {
	Operator    string  `json:"operator"`
	Detector    string  `json:"detector"`
	AssetID     string  `json:"assetId"`
	WorkflowID  string  `json:"workflowId"`
	NumSpecs    int     `json:"numSpecs"`
	SpecsXY     []Point `json:"specsXY"`
	ProcSeconds float64 `json:"procSeconds"`
	Timestamp   int64   `json:"timestamp"`
}
