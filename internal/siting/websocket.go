package siting

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sustainasite/sustainasite-backend/internal/middleware"
	"github.com/sustainasite/sustainasite-backend/internal/siting/ranking"
)

const (
	wsReadTimeout  = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || middleware.OriginAllowed(origin)
	},
}

// Event is one websocket message. Type is "state", "result" or "error".
type Event struct {
	Type   string  `json:"type"`
	State  string  `json:"state,omitempty"`
	Count  int     `json:"count,omitempty"`
	Reason string  `json:"reason,omitempty"`
	Result *Result `json:"result,omitempty"`
	Status int     `json:"status,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// RankStream handles GET /sites/rank/ws. The client sends one Request and
// receives a state event per ranking transition, then a result or an error.
func (h *Handler) RankStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[siting] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := func(ev Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(ev)
	}

	var req Request
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	if err := conn.ReadJSON(&req); err != nil {
		_ = send(Event{Type: "error", Status: http.StatusBadRequest, Error: "Invalid request body"})
		return
	}

	var sendErr error
	observer := func(t ranking.Transition) {
		if sendErr != nil {
			return
		}
		sendErr = send(Event{Type: "state", State: t.State.String(), Count: t.Count, Reason: t.Reason})
	}

	res, err := h.pipeline.Run(r.Context(), req, observer)
	if sendErr != nil {
		if !errors.Is(sendErr, websocket.ErrCloseSent) {
			log.Printf("[siting] websocket client went away: %v", sendErr)
		}
		return
	}
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[siting] websocket rank %q: %v", req.Address, err)
		}
		_ = send(Event{Type: "error", Status: status, Error: msg})
		return
	}

	if err := send(Event{Type: "result", Result: res}); err != nil {
		log.Printf("[siting] websocket write result: %v", err)
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteTimeout))
}
