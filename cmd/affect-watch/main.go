// affect-watch subscribes to a running affectd and prints results as they
// arrive. With -send it also plays a recording file into the daemon as a
// tracker would.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-affect/internal/httpc"
	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/protocol"
	"github.com/teslashibe/go-affect/pkg/recording"
)

func main() {
	addr := flag.String("addr", "localhost:8090", "affectd address")
	subject := flag.String("subject", "", "Only show this subject")
	send := flag.String("send", "", "Recording file to stream as a tracker")
	hz := flag.Float64("hz", 0, "Playback rate for -send (0 = the recording's own)")
	all := flag.Bool("all", false, "Also print skipped and calibrating results")
	list := flag.Bool("sessions", false, "List sessions and exit")
	recal := flag.String("recalibrate", "", "Recalibrate a session by id and exit")
	resetID := flag.String("reset", "", "Reset a session's calibration by id and exit")
	flag.Parse()

	log.Init("info")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *list || *recal != "" || *resetID != "" {
		if err := control(ctx, httpc.New("http://"+*addr, 0), *list, *recal, *resetID); err != nil {
			log.Error("api", "error", err)
			os.Exit(1)
		}
		return
	}

	q := url.Values{}
	if *subject != "" {
		q.Set("subject", *subject)
	}
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/results", RawQuery: q.Encode()}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Error("connect", "url", u.String(), "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	log.Info("watching results", "url", u.String())

	if *send != "" {
		go func() {
			if err := stream(ctx, *addr, *send, *hz); err != nil {
				log.Error("stream recording", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error("read", "error", err)
			}
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypeResult {
			continue
		}
		var r pipeline.Result
		if err := msg.ParseData(&r); err != nil {
			log.Warn("bad result", "error", err)
			continue
		}
		if r.Status == pipeline.StatusScored || *all {
			fmt.Println(format(r))
		}
	}
}

// control runs the one-shot operator commands.
func control(ctx context.Context, c *httpc.Client, list bool, recal, resetID string) error {
	if recal != "" {
		if err := c.Recalibrate(ctx, recal); err != nil {
			return err
		}
		fmt.Printf("recalibration requested for %s\n", recal)
	}
	if resetID != "" {
		if err := c.Reset(ctx, resetID); err != nil {
			return err
		}
		fmt.Printf("reset requested for %s\n", resetID)
	}
	if list {
		sessions, err := c.Sessions(ctx)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("%s  %-10s %-8s %-16s ticks=%d skipped=%d calibrated=%v\n",
				s.ID, s.Subject, s.State, s.Source, s.Ticks, s.Skipped, s.Calibrated)
		}
	}
	return nil
}

func format(r pipeline.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s #%-6d %-11s", r.Subject, r.Frame, r.Status)
	switch r.Status {
	case pipeline.StatusCalibrating:
		fmt.Fprintf(&b, " %3.0f%%", r.Progress)
	case pipeline.StatusScored, pipeline.StatusFailed:
		for _, e := range model.Emotions() {
			fmt.Fprintf(&b, " %s=%5.1f", e.String()[:3], r.Emotions[e])
		}
		if top, score, ok := r.Top(); ok && score > 0 {
			fmt.Fprintf(&b, "  -> %s", top)
		}
		if !r.PoseTrusted {
			b.WriteString("  (pose)")
		}
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "  error: %s", r.Error)
	}
	return b.String()
}

// stream plays a recording file into the daemon's capture endpoint.
func stream(ctx context.Context, addr, path string, hz float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	rec, err := recording.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws/capture/" + url.PathEscape(rec.Subject)}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", u.String(), err)
	}
	defer conn.Close()

	write := func(msg *protocol.Message, err error) error {
		if err != nil {
			return err
		}
		data, err := msg.Bytes()
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	if !rec.Reference.Empty() {
		if err := write(protocol.NewReferenceMessage(rec.Reference, rec.ReferencePose)); err != nil {
			return err
		}
	}

	src := recording.NewSource(rec, hz)
	defer src.Close()
	for {
		s, err := src.Next(ctx)
		if err != nil {
			break
		}
		if err := write(protocol.NewLandmarksMessage(s)); err != nil {
			return err
		}
	}
	log.Info("recording sent", "subject", rec.Subject, "frames", rec.Len())

	// Let the daemon drain the last samples before the session closes.
	time.Sleep(500 * time.Millisecond)
	return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
