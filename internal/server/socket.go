package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gmdb/internal/constants"
	"gmdb/internal/search"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const socketWriteWait = 10 * time.Second

type socketMessage struct {
	Type    string          `json:"type"`
	Preview *search.Preview `json:"preview,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// handleSearchSocket treats every text frame as the current content of the
// search box. Previews are pushed once the client has been quiet for the
// debounce delay. A search already running when a newer query arrives still
// delivers its preview.
func (s *Server) handleSearchSocket(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	var writeMu sync.Mutex
	send := func(msg socketMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		data, err := json.Marshal(msg)
		if err != nil {
			logger.Error().Err(err).Msg("failed to encode websocket message")
			return
		}
		conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug().Err(err).Msg("websocket write failed")
		}
	}

	debouncer := search.NewDebouncer(s.debounce, func(query string) {
		preview, err := s.search.Instant(ctx, query)
		if err != nil {
			if ctx.Err() == nil {
				send(socketMessage{Type: "error", Error: constants.FetchFailedMessage})
			}
			return
		}
		send(socketMessage{Type: "preview", Preview: &preview})
	})
	defer debouncer.Stop()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		debouncer.Submit(string(data))
	}
}
