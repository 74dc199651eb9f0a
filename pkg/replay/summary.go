package replay

import (
	"context"

	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
)

// TrackSummary aggregates one recording over all of its scored frames.
type TrackSummary struct {
	RecordingID string                    `json:"recording_id"`
	Subject     string                    `json:"subject"`
	Frames      int                       `json:"frames"`
	Scored      int                       `json:"scored"`
	Peak        map[model.Emotion]float64 `json:"peak"`
	Mean        map[model.Emotion]float64 `json:"mean"`

	// Hits counts scored frames whose top emotion is the recording's label.
	Hits    int     `json:"hits"`
	HitRate float64 `json:"hit_rate"`
}

// Summary aggregates a full pass over every track of a label.
type Summary struct {
	Label   model.Emotion  `json:"label"`
	Tracks  []TrackSummary `json:"tracks"`
	Scored  int            `json:"scored"`
	Hits    int            `json:"hits"`
	HitRate float64        `json:"hit_rate"`
}

// Summarize evaluates every frame of every track and aggregates the scores.
// Results already cached by Seek are reused.
func (a *Analyzer) Summarize(ctx context.Context) (Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.evaluate(ctx, a.length-1); err != nil {
		return Summary{}, err
	}

	sum := Summary{Label: a.label, Tracks: make([]TrackSummary, len(a.tracks))}
	for i, t := range a.tracks {
		ts := summarizeTrack(a.label, t.results)
		ts.RecordingID = t.rec.ID
		ts.Subject = t.rec.Subject
		ts.Frames = t.rec.Len()
		sum.Tracks[i] = ts
		sum.Scored += ts.Scored
		sum.Hits += ts.Hits
	}
	if sum.Scored > 0 {
		sum.HitRate = float64(sum.Hits) / float64(sum.Scored)
	}
	return sum, nil
}

func summarizeTrack(label model.Emotion, results []pipeline.Result) TrackSummary {
	ts := TrackSummary{
		Peak: make(map[model.Emotion]float64, model.NumEmotions),
		Mean: make(map[model.Emotion]float64, model.NumEmotions),
	}
	for _, r := range results {
		if !r.Fresh() {
			continue
		}
		ts.Scored++
		for e, v := range r.Emotions {
			ts.Mean[e] += v
			if v > ts.Peak[e] {
				ts.Peak[e] = v
			}
		}
		// A frame where nothing scored has no winner.
		if top, score, ok := r.Top(); ok && score > 0 && top == label {
			ts.Hits++
		}
	}
	if ts.Scored > 0 {
		for e := range ts.Mean {
			ts.Mean[e] /= float64(ts.Scored)
		}
		ts.HitRate = float64(ts.Hits) / float64(ts.Scored)
	}
	return ts
}
