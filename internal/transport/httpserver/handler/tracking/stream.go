package tracking

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	babydomain "babyhabits/internal/domain/baby"
	"babyhabits/internal/realtime"
	"babyhabits/internal/transport/httpserver/handler/common"
)

const streamBuffer = 32

// Events streams change notifications for one baby as server-sent events.
// Clients refetch on every event; a full buffer drops events since the
// next one triggers the same refetch.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.events", babydomain.ActionView)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.WriteError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}

	ctx := r.Context()
	changes := make(chan realtime.Change, streamBuffer)
	cancel, err := h.Subscriber.Subscribe(ctx, s.babyID, func(change realtime.Change) {
		select {
		case changes <- change:
		default:
		}
	})
	if err != nil {
		h.log.InternalError("tracking.events: subscribe failed", err, "user_id", s.user.ID, "baby_id", s.babyID)
		common.WriteError(w, http.StatusServiceUnavailable, "realtime_unavailable", "realtime feed unavailable")
		return
	}
	defer cancel()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.log.Debug("tracking.events: stream opened", "user_id", s.user.ID, "baby_id", s.babyID)
	defer h.log.Debug("tracking.events: stream closed", "user_id", s.user.ID, "baby_id", s.babyID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case change := <-changes:
			payload, err := json.Marshal(change)
			if err != nil {
				h.log.InternalError("tracking.events: encode change failed", err, "baby_id", s.babyID)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
