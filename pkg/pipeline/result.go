package pipeline

import (
	"time"

	"github.com/teslashibe/go-affect/pkg/model"
)

// Status describes what a Process call did with its sample.
type Status string

const (
	// StatusSkipped means no face was detected; the model was not touched.
	StatusSkipped Status = "skipped"

	// StatusCalibrating means the sample went into reference capture.
	StatusCalibrating Status = "calibrating"

	// StatusScored means a full tick ran and the maps are fresh.
	StatusScored Status = "scored"

	// StatusFailed means the tick ran but a module failed.
	StatusFailed Status = "failed"
)

// Result is a snapshot of one processed sample. Maps are copies and safe to
// hand to renderers.
type Result struct {
	SessionID string    `json:"session_id,omitempty"`
	Subject   string    `json:"subject"`
	Status    Status    `json:"status"`
	Tick      uint64    `json:"tick"`
	Frame     int       `json:"frame"`
	Time      time.Time `json:"time"`

	Calibrated    bool    `json:"calibrated"`
	Progress      float64 `json:"progress"`
	PoseDeviation float64 `json:"pose_deviation"`
	PoseTrusted   bool    `json:"pose_trusted"`

	ActionUnits map[string]float64        `json:"action_units,omitempty"`
	Emotions    map[model.Emotion]float64 `json:"emotions,omitempty"`
	Diagnostics map[string]string         `json:"diagnostics,omitempty"`

	Error string `json:"error,omitempty"`
}

// Fresh reports whether the result carries this tick's scores.
func (r Result) Fresh() bool { return r.Status == StatusScored }

// Top returns the highest-scoring emotion. ok is false when there are no scores.
func (r Result) Top() (e model.Emotion, score float64, ok bool) {
	for _, cand := range model.Emotions() {
		v, has := r.Emotions[cand]
		if !has {
			continue
		}
		if !ok || v > score {
			e, score, ok = cand, v, true
		}
	}
	return e, score, ok
}
