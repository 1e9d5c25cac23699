package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-attempt-service/internal/app"
)

// WSHandler streams a live attempt to its player: every state change
// (including timer ticks) is pushed, and player actions are read back.
type WSHandler struct {
	service  *app.AttemptService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades GET /v1/attempts/{attemptId}/ws and wires it into the attempt use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := mux.Vars(r)["attemptId"]
	updates, cancel, err := h.service.Subscribe(r.Context(), attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("attempt_id", attemptID), zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "attempt", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.dispatch(r.Context(), attemptID, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one player action. State changes reach the client through
// the subscription, so only errors and submission results are replied directly.
func (h *WSHandler) dispatch(ctx context.Context, attemptID string, inbound inboundMessage) (outboundMessage[any], bool) {
	var err error
	switch inbound.Type {
	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload"), true
		}
		_, err = h.service.Answer(ctx, attemptID, payload.Option, payload.Elapsed)
	case "next":
		_, err = h.service.Next(ctx, attemptID)
	case "previous":
		_, err = h.service.Previous(ctx, attemptID)
	case "goto":
		var payload goToRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid goto payload"), true
		}
		_, err = h.service.GoTo(ctx, attemptID, payload.Index)
	case "submit":
		result, err := h.service.Submit(ctx, attemptID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "result", Payload: result}, true
	default:
		return errorMessage("unsupported message type"), true
	}
	if err != nil {
		return errorMessage(err.Error()), true
	}
	return outboundMessage[any]{}, false
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
