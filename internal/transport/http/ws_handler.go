package http

import (
	"context"
	"net/http"

	"forum-quiz-bot/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// LeaderboardSource returns the current leaderboard.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context) (domain.Leaderboard, error)
}

// LeaderboardSubscriber hands out live leaderboard updates.
type LeaderboardSubscriber interface {
	Subscribe() (<-chan domain.Leaderboard, func())
}

// WSHandler streams leaderboard snapshots to websocket clients.
type WSHandler struct {
	board    LeaderboardSource
	feed     LeaderboardSubscriber
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewWSHandler(board LeaderboardSource, feed LeaderboardSubscriber, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		board: board,
		feed:  feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS sends the current leaderboard, then every change until the client
// goes away. Inbound messages are ignored.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe()
	defer cancel()

	// The subscription may already hold the latest snapshot; the store is
	// read only when it does not, so the client gets exactly one to start.
	var lb domain.Leaderboard
	select {
	case primed, ok := <-updates:
		if !ok {
			return
		}
		lb = primed
	default:
		lb, err = h.board.Leaderboard(r.Context())
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	}
	if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: lb}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: update}); err != nil {
				h.log.WithError(err).Debug("ws write failed")
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
