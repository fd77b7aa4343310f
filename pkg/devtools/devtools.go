// Package devtools exposes a read-only HTTP inspector for stateit
// stores: JSON snapshots over chi routes and a live change feed over
// WebSocket.
//
// The inspector observes stores through their public subscription
// surface and never writes to them. It is an observation aid for
// development, not a synchronization mechanism.
//
//	mux := devtools.Handler(
//	    devtools.StoreSource(appStore),
//	    devtools.StoreSource(cartStore),
//	)
//	http.ListenAndServe("localhost:6632", mux)
package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/helmuthdu/stateit/pkg/stateit"
)

// writeTimeout bounds each WebSocket frame write.
const writeTimeout = 10 * time.Second

// feedBuffer bounds the per-connection feed. When a client falls
// behind, newer snapshots overwrite the wait; intermediate states are
// droppable by the store's own contract.
const feedBuffer = 16

// Source is an inspectable store. StoreSource adapts a typed store;
// implement Source directly to expose a redacted or composed view.
type Source interface {
	// Name identifies the source in routes.
	Name() string

	// Snapshot returns the current state.
	Snapshot() any

	// Watch registers fn for state deliveries, including one for the
	// current state at registration, and returns a stop function.
	Watch(fn func(snapshot any)) (stop func())
}

type storeSource[T any] struct {
	st *stateit.Store[T]
}

// StoreSource adapts a store for the inspector under the store's name.
func StoreSource[T any](st *stateit.Store[T]) Source {
	return storeSource[T]{st: st}
}

func (s storeSource[T]) Name() string {
	return s.st.Name()
}

func (s storeSource[T]) Snapshot() any {
	return s.st.Get()
}

func (s storeSource[T]) Watch(fn func(snapshot any)) (stop func()) {
	return s.st.Subscribe(func(next, _ T) {
		fn(next)
	})
}

type inspector struct {
	sources  map[string]Source
	order    []string
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// Handler returns an http.Handler serving the inspector routes:
//
//	GET /stores            source names
//	GET /stores/{name}     JSON snapshot of one source
//	GET /stores/{name}/ws  WebSocket feed, one JSON frame per flush,
//	                       starting with the current snapshot
//
// Later sources win on duplicate names.
func Handler(sources ...Source) http.Handler {
	h := &inspector{
		sources: make(map[string]Source, len(sources)),
		log:     slog.Default(),
	}
	for _, src := range sources {
		if _, seen := h.sources[src.Name()]; !seen {
			h.order = append(h.order, src.Name())
		}
		h.sources[src.Name()] = src
	}

	r := chi.NewRouter()
	r.Get("/stores", h.list)
	r.Get("/stores/{name}", h.snapshot)
	r.Get("/stores/{name}/ws", h.watch)
	return r
}

func (h *inspector) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.order)
}

func (h *inspector) snapshot(w http.ResponseWriter, r *http.Request) {
	src, ok := h.sources[chi.URLParam(r, "name")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"name":  src.Name(),
		"state": src.Snapshot(),
	})
}

func (h *inspector) watch(w http.ResponseWriter, r *http.Request) {
	src, ok := h.sources[chi.URLParam(r, "name")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("devtools: upgrade failed", "store", src.Name(), "error", err)
		return
	}
	defer conn.Close()

	feed := make(chan any, feedBuffer)
	stop := src.Watch(func(snapshot any) {
		select {
		case feed <- snapshot:
		default:
			// Slow client; drop in favor of the next frame.
		}
	})
	defer stop()

	// Reads are only consumed to learn when the client goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot := <-feed:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					h.log.Error("devtools: write failed", "store", src.Name(), "error", err)
				}
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("devtools: encode failed", "error", err)
	}
}
