package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// DefaultKeepalive is the idle period after which a ping frame is written.
const DefaultKeepalive = 15 * time.Second

var pingFrame = []byte("event: ping\ndata: {}\n\n")

// FormatEvent renders ev as a single SSE frame with compact JSON data.
func FormatEvent(ev Event) ([]byte, error) {
	var data bytes.Buffer
	enc := json.NewEncoder(&data)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev.Data); err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Name, err)
	}
	// Encode appends a newline; the frame terminator supplies its own.
	payload := bytes.TrimRight(data.Bytes(), "\n")

	out := make([]byte, 0, len(ev.Name)+len(payload)+16)
	out = append(out, "event: "...)
	out = append(out, ev.Name...)
	out = append(out, "\ndata: "...)
	out = append(out, payload...)
	out = append(out, "\n\n"...)
	return out, nil
}

// Encoder writes a subscription to W as an SSE stream.
type Encoder struct {
	W         io.Writer
	Flush     func()
	Keepalive time.Duration
	// Logger receives events that could not be encoded.
	Logger zerolog.Logger
}

// Stream writes replay first, then every event received on sub until ctx is
// done or a write fails. A ping frame is written after Keepalive of silence.
func (e *Encoder) Stream(ctx context.Context, sub *Subscriber, replay []Event) error {
	for _, ev := range replay {
		if err := e.writeEvent(ev); err != nil {
			return err
		}
	}

	keepalive := e.Keepalive
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	timer := time.NewTimer(keepalive)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sub.Events():
			if err := e.writeEvent(ev); err != nil {
				return err
			}
		case <-timer.C:
			if err := e.write(pingFrame); err != nil {
				return err
			}
		}
		resetTimer(timer, keepalive)
	}
}

func (e *Encoder) writeEvent(ev Event) error {
	frame, err := FormatEvent(ev)
	if err != nil {
		// skipped, the stream stays open
		encodeErrors.Inc()
		e.Logger.Warn().Err(err).Str("event", ev.Name).Msg("dropping unencodable event")
		return nil
	}
	return e.write(frame)
}

func (e *Encoder) write(frame []byte) error {
	if _, err := e.W.Write(frame); err != nil {
		return err
	}
	if e.Flush != nil {
		e.Flush()
	}
	return nil
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
