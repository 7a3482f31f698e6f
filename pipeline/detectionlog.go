package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/lgr"
)

func logDetections(w io.Writer, stats model.DetectionStats) {
	if w == nil {
		return
	}

	jsonData, err := json.MarshalIndent(stats, "", "  ") // pretty-print
	if err != nil {
		lgr.Logger.Warn("error marshaling detections", slog.Any("error", err))
		return
	}

	if _, err := w.Write(append(jsonData, '\n')); err != nil {
		lgr.Logger.Warn("error writing to detection log file", slog.Any("error", err))
	}
}
