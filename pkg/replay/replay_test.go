package replay

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/landmark/landmarktest"
	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/recording"
)

func registry(t *testing.T) *emotions.Registry {
	t.Helper()
	reg, err := emotions.DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	return reg
}

// smileRecording ramps the lip corners up and back down over n frames.
func smileRecording(subject string, n int) *recording.Recording {
	r := recording.New(subject, model.Joy, 30)
	r.Reference = landmarktest.NeutralFace()
	for i := 0; i < n; i++ {
		px := float64(i % 8)
		f := landmarktest.Move(landmarktest.NeutralFace(), landmark.MouthLeftCorner, 0, -px)
		f = landmarktest.Move(f, landmark.MouthRightCorner, 0, -px)
		r.Samples = append(r.Samples, landmark.Sample{
			Index:    i,
			Detected: i%7 != 6,
			Frame:    f,
		})
	}
	return r
}

func newAnalyzer(t *testing.T, recs ...*recording.Recording) *Analyzer {
	t.Helper()
	a, err := New(model.Joy, recs, registry(t), DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestSeekIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newAnalyzer(t, smileRecording("a", 30), smileRecording("b", 20))

	first, err := a.Seek(ctx, 12)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := a.Seek(ctx, 25); err != nil {
		t.Fatalf("Seek forward: %v", err)
	}
	again, err := a.Seek(ctx, 12)
	if err != nil {
		t.Fatalf("Seek back: %v", err)
	}
	if !reflect.DeepEqual(first, again) {
		t.Errorf("seek to the same frame changed output:\n%+v\n%+v", first, again)
	}
}

func TestSeekMatchesSequentialPlayback(t *testing.T) {
	ctx := context.Background()
	rec := smileRecording("a", 24)
	a := newAnalyzer(t, rec)

	p, err := pipeline.New(rec.Subject, registry(t), pipeline.DefaultConfig())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	p.SetReference(rec.Reference, rec.ReferencePose)
	var want []pipeline.Result
	for _, s := range rec.Samples {
		res, _ := p.Process(s)
		want = append(want, res)
	}

	// Jump around; every answer must match straight playback.
	for _, frame := range []int{17, 3, 23, 0, 17, 9} {
		got, err := a.Seek(ctx, frame)
		if err != nil {
			t.Fatalf("Seek(%d): %v", frame, err)
		}
		if !reflect.DeepEqual(got[0].Result, want[frame]) {
			t.Errorf("frame %d: got %+v, want %+v", frame, got[0].Result, want[frame])
		}
	}
}

func TestSeekPastShortTrack(t *testing.T) {
	a := newAnalyzer(t, smileRecording("long", 20), smileRecording("short", 5))
	if a.Len() != 20 {
		t.Fatalf("Len = %d, want 20", a.Len())
	}

	got, err := a.Seek(context.Background(), 10)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got[0].Ended || !got[1].Ended {
		t.Errorf("ended flags = %v/%v, want false/true", got[0].Ended, got[1].Ended)
	}
	if got[1].Result.Frame != 4 {
		t.Errorf("short track reports frame %d, want its last (4)", got[1].Result.Frame)
	}

	if _, err := a.Seek(context.Background(), 20); !errors.Is(err, recording.ErrFrameOutOfRange) {
		t.Errorf("Seek(20) err = %v, want ErrFrameOutOfRange", err)
	}
	if _, err := a.Seek(context.Background(), -1); !errors.Is(err, recording.ErrFrameOutOfRange) {
		t.Errorf("Seek(-1) err = %v, want ErrFrameOutOfRange", err)
	}
}

func TestSeekCancelled(t *testing.T) {
	a := newAnalyzer(t, smileRecording("a", 50))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Seek(ctx, 40); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestResetReproduces(t *testing.T) {
	ctx := context.Background()
	a := newAnalyzer(t, smileRecording("a", 16))

	before, _ := a.Seek(ctx, 15)
	if err := a.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	after, _ := a.Seek(ctx, 15)
	if !reflect.DeepEqual(before, after) {
		t.Error("fresh evaluation after Reset differs")
	}
}

func TestSummarize(t *testing.T) {
	a := newAnalyzer(t, smileRecording("a", 21), smileRecording("b", 14))

	sum, err := a.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Label != model.Joy || len(sum.Tracks) != 2 {
		t.Fatalf("summary = %+v", sum)
	}

	ta := sum.Tracks[0]
	// Every 7th frame is undetected.
	if ta.Frames != 21 || ta.Scored != 18 {
		t.Errorf("track a frames=%d scored=%d, want 21/18", ta.Frames, ta.Scored)
	}
	if ta.Peak[model.Joy] <= 0 {
		t.Errorf("joy peak = %v, want positive", ta.Peak[model.Joy])
	}
	if ta.Mean[model.Joy] > ta.Peak[model.Joy] {
		t.Errorf("mean %v above peak %v", ta.Mean[model.Joy], ta.Peak[model.Joy])
	}
	if ta.Hits == 0 || ta.HitRate <= 0 || ta.HitRate > 1 {
		t.Errorf("hits=%d rate=%v", ta.Hits, ta.HitRate)
	}
	if sum.Scored != ta.Scored+sum.Tracks[1].Scored {
		t.Errorf("total scored %d does not add up", sum.Scored)
	}
}

func TestLoadFromStore(t *testing.T) {
	ctx := context.Background()
	store, err := recording.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	for _, r := range []*recording.Recording{smileRecording("a", 10), smileRecording("b", 12)} {
		if _, err := store.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	a, err := Load(ctx, store, model.Joy, registry(t), DefaultConfig())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Recordings() != 2 || a.Len() != 12 {
		t.Errorf("recordings=%d len=%d", a.Recordings(), a.Len())
	}

	if _, err := Load(ctx, store, model.Fear, registry(t), DefaultConfig()); !errors.Is(err, ErrNoRecordings) {
		t.Errorf("empty label err = %v, want ErrNoRecordings", err)
	}
}
