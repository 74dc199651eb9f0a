package httpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teslashibe/go-affect/pkg/model"
)

func TestClient(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/sessions":
			w.Write([]byte(`[{"id":"s1","subject":"alice","state":"running"}]`))
		case "/api/sessions/s1/recalibrate", "/api/sessions/s1/reset":
			w.WriteHeader(http.StatusAccepted)
		case "/api/analysis/joy":
			w.WriteHeader(http.StatusCreated)
		case "/api/analysis/summary":
			w.Write([]byte(`{"label":"joy","tracks":[],"scored":4,"hits":3,"hit_rate":0.75}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"pipeline: session not found"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 0)
	ctx := context.Background()

	sessions, err := c.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" || sessions[0].Subject != "alice" {
		t.Errorf("sessions = %+v", sessions)
	}

	if err := c.Recalibrate(ctx, "s1"); err != nil {
		t.Errorf("Recalibrate: %v", err)
	}
	if err := c.Reset(ctx, "s1"); err != nil {
		t.Errorf("Reset: %v", err)
	}

	err = c.Reset(ctx, "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "pipeline: session not found" {
		t.Errorf("err = %v", err)
	}

	sum, err := c.Summary(ctx, model.Joy)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Label != model.Joy || sum.HitRate != 0.75 {
		t.Errorf("summary = %+v", sum)
	}

	want := []string{
		"GET /api/sessions",
		"POST /api/sessions/s1/recalibrate",
		"POST /api/sessions/s1/reset",
		"POST /api/sessions/nope/reset",
		"POST /api/analysis/joy",
		"GET /api/analysis/summary",
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, calls[i], want[i])
		}
	}
}
