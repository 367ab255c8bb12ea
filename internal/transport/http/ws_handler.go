package http

import (
	"encoding/json"
	"net/http"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(service *app.SessionService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
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

func errorMessage(err error) outboundMessage[any] {
	_, payload := classify(err)
	return outboundMessage[any]{Type: "error", Payload: payload}
}

// ServeWS streams the session document to the caller and accepts protocol commands
// (join, configure, start, answer, advance) as inbound frames.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	caller := IdentityFrom(r.Context())

	// fail before upgrading so unknown sessions get a plain 404
	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.String("sessionId", sessionID), zap.Error(err))
				// unblocks the read loop
				_ = conn.Close()
				for range send {
				}
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
				case send <- outboundMessage[any]{Type: "session", Payload: update}:
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
		send <- h.handle(r, sessionID, caller, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(r *http.Request, sessionID string, caller domain.Identity, in inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	switch in.Type {
	case "join":
		session, err := h.service.JoinSession(ctx, sessionID, caller)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "joined", Payload: session}
	case "configure":
		var settings app.SessionSettings
		if err := json.Unmarshal(in.Payload, &settings); err != nil {
			return errorMessage(domain.Validationf("invalid configure payload"))
		}
		session, err := h.service.ConfigureSession(ctx, sessionID, caller, settings)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "configured", Payload: session}
	case "start":
		session, err := h.service.StartSession(ctx, sessionID, caller)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "started", Payload: session}
	case "answer":
		var at domain.Coordinate
		if err := json.Unmarshal(in.Payload, &at); err != nil {
			return errorMessage(domain.Validationf("invalid answer payload"))
		}
		answer, err := h.service.SubmitAnswer(ctx, sessionID, caller, at)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "answerAccepted", Payload: answerReceipt{
			QuestionID: answer.QuestionID,
			Coordinate: answer.Coordinate,
		}}
	case "advance":
		result, err := h.service.Advance(ctx, sessionID, caller)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "advanced", Payload: result}
	default:
		return errorMessage(domain.Validationf("unsupported message type %q", in.Type))
	}
}
