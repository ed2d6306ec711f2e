package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joegr/ReTurni/internal/dispatch"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/models"
	"go.uber.org/zap"
)

const (
	wsTypeHello = "hello"
	wsTypeEvent = "event"
)

type wsHelloMessage struct {
	Type      string `json:"type"`
	SubjectID string `json:"subject_id"`
	Message   string `json:"message"`
}

type wsEventMessage struct {
	Type  string         `json:"type"`
	Event dispatch.Event `json:"event"`
}

// WSHandler streams the gateway's own event feed (logins, logouts,
// throttle events) to connected clients. The route's auth middleware
// has already established a principal with audit permission before
// the upgrade happens.
type WSHandler struct {
	dispatcher *dispatch.Dispatcher
	upgrader   websocket.Upgrader
}

func NewWSHandler(dispatcher *dispatch.Dispatcher) *WSHandler {
	return &WSHandler{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream upgrades the connection, confirms the subscription with a
// hello frame, then relays events until either side goes away. The
// feed is best effort: frames a slow client cannot keep up with are
// dropped by the dispatcher, never buffered without bound.
func (h *WSHandler) Stream(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		middleware.AbortWithError(c, models.NewUnauthorized("authorization required"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsHelloMessage{
		Type:      wsTypeHello,
		SubjectID: principal.SubjectID,
		Message:   "subscribed to gateway events",
	}); err != nil {
		return
	}

	events := h.dispatcher.Subscribe()
	defer h.dispatcher.Unsubscribe(events)

	// Drain inbound frames so pings are answered and disconnects are
	// noticed; clients have nothing meaningful to send.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsEventMessage{Type: wsTypeEvent, Event: event}); err != nil {
				logger.Debug("websocket write failed, dropping subscriber", zap.Error(err))
				return
			}
		}
	}
}
