package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"overseer/internal/logging"
	"overseer/internal/progress"
)

const streamKeepalive = 30 * time.Second

// handleStreamTask emits server-sent snapshot events for one task. The
// current state is sent immediately; the stream closes after the task
// reaches a terminal state.
func (s *Server) handleStreamTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskFromPath(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := s.hub.Subscribe(task.ID)
	defer cancel()

	startEventStream(w)

	latest, err := s.store.LatestResolvedItem(r.Context(), task.ID)
	if err != nil {
		s.logger.Warn("load latest resolved item", logging.Error(err))
	}
	snap := progress.SnapshotTask(task, latest)
	if err := writeSnapshotEvent(w, flusher, snap); err != nil {
		return
	}
	if snap.Terminal() {
		return
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, open := <-ch:
			if !open {
				return
			}
			if err := writeSnapshotEvent(w, flusher, snap); err != nil {
				return
			}
			if snap.Terminal() {
				return
			}
		}
	}
}

// recentTasksLimit caps the initial payload of the all-tasks stream.
const recentTasksLimit = 50

// handleStreamAll emits snapshot events for every task. The stream opens
// with the most recent tasks and then follows live changes.
func (s *Server) handleStreamAll(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := s.hub.SubscribeAll()
	defer cancel()

	startEventStream(w)

	tasks, _, err := s.store.ListTasks(r.Context(), 1, recentTasksLimit, "")
	if err != nil {
		s.logger.Warn("load recent tasks for stream", logging.Error(err))
	}
	initial := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		initial = append(initial, fromTask(task))
	}
	if err := writeEvent(w, flusher, "tasks", initial); err != nil {
		return
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, open := <-ch:
			if !open {
				return
			}
			if err := writeSnapshotEvent(w, flusher, snap); err != nil {
				return
			}
		}
	}
}

func startEventStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeSnapshotEvent(w http.ResponseWriter, flusher http.Flusher, snap progress.TaskSnapshot) error {
	return writeEvent(w, flusher, "snapshot", snap)
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
