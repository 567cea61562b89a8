package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fleetopt/internal/store"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
	wsWriteWait  = 5 * time.Second
	// Events are dropped for slow readers, so the stored run is polled
	// as well; a missed "done" still ends the stream.
	wsPollPeriod = time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// RunStreamHandler handles /v1/runs/{id}/ws. Every message is a JSON
// model.ProgressEvent; the last one has type "done" and the socket is
// closed after it.
func (s *Server) RunStreamHandler(w http.ResponseWriter, r *http.Request, id string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// Subscribe before reading the run so no event between the two is lost.
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	closeWith := func(code int, text string) {
		msg := websocket.FormatCloseMessage(code, text)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	}

	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		closeWith(websocket.ClosePolicyViolation, "run not found")
		return
	}
	if err != nil {
		closeWith(websocket.CloseInternalServerErr, "store unavailable")
		return
	}
	if run.Done() {
		_ = write(doneEvent(run))
		closeWith(websocket.CloseNormalClosure, "")
		return
	}

	// The read loop only services control frames and notices the client
	// going away.
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	poll := time.NewTicker(wsPollPeriod)
	defer poll.Stop()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				return
			}
			if evt.Type == "done" {
				closeWith(websocket.CloseNormalClosure, "")
				return
			}
		case <-poll.C:
			run, err := s.Store.GetRun(r.Context(), id)
			if err == nil && run.Done() {
				_ = write(doneEvent(run))
				closeWith(websocket.CloseNormalClosure, "")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-gone:
			s.log.Debug("stream client left", zap.String("run", id))
			return
		case <-s.base.Done():
			closeWith(websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}
