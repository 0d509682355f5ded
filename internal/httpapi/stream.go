package httpapi

import (
	"net/http"

	"airmetrics/internal/hub"
	"airmetrics/internal/pipeline"
)

// handleStream godoc
// @Summary      Live readings
// @Description  Server-Sent Events. Starts with the latest reading of every sensor, then one "reading" event per emitted reading; a "ping" event is sent after an idle keepalive period.
// @Tags         stream
// @Produce      text/event-stream
// @Success      200  {string}  string  "event stream"
// @Router       /api/stream [get]
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	// subscribe before taking the snapshot so nothing falls in between
	sub := s.svc.Subscribe()
	defer s.svc.Unsubscribe(sub)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	streamsOpened.Inc()

	snapshot := s.svc.Snapshot()
	replay := make([]hub.Event, 0, len(snapshot))
	for _, rd := range snapshot {
		replay = append(replay, hub.Event{Name: pipeline.EventReading, Data: rd})
	}

	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()

	log := s.opts.Logger.With().Str("subscriber", sub.ID()).Logger()
	log.Debug().Int("replay", len(replay)).Msg("stream opened")
	enc := hub.Encoder{W: w, Flush: flusher.Flush, Keepalive: s.opts.Keepalive, Logger: log}
	err := enc.Stream(ctx, sub, replay)
	log.Debug().Err(err).Uint64("dropped", sub.Dropped()).Msg("stream closed")
}
