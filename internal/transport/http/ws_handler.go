package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-bot/internal/app"
	"quiz-bot/internal/domain"
)

// WSHandler exposes the quiz flow to websocket clients as JSON messages.
type WSHandler struct {
	service  *app.QuizService
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
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

// answerPayload selects either by text or by position in the current question.
type answerPayload struct {
	Answer string `json:"answer"`
	Index  *int   `json:"index"`
}

type questionPayload struct {
	Index    int             `json:"index"`
	Number   int             `json:"number"`
	Question domain.Question `json:"question"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
// The user is identified by the userId query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "user", userID, "err", err)
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			q, err := h.service.StartQuiz(ctx, userID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: questionPayload{Index: 0, Number: 1, Question: q}}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "invalid answer payload"}}
				continue
			}
			var progress domain.AnswerProgress
			if payload.Index != nil {
				progress, err = h.service.SubmitAnswerIndex(ctx, userID, *payload.Index)
			} else {
				progress, err = h.service.SubmitAnswer(ctx, userID, payload.Answer)
			}
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "progress", Payload: progress}
		case "next":
			result, err := h.service.Advance(ctx, userID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			if result.Next != nil {
				send <- outboundMessage[any]{Type: "question", Payload: questionPayload{
					Index:    result.Index,
					Number:   result.Index + 1,
					Question: *result.Next,
				}}
				continue
			}
			send <- outboundMessage[any]{Type: "finished", Payload: result.Finished}
		case "cancel":
			cancelled := h.service.Cancel(ctx, userID)
			send <- outboundMessage[any]{Type: "cancelled", Payload: map[string]bool{"active": cancelled}}
		case "results":
			res, err := h.service.GetResults(ctx, userID)
			if errors.Is(err, domain.ErrResultsUnavailable) {
				res, err = domain.UserResults{}, nil
			}
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "results", Payload: res}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}

func errorMessage(err error) outboundMessage[any] {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		code = "no_active_quiz"
	case errors.Is(err, domain.ErrUnknownAnswer):
		code = "unknown_answer"
	case errors.Is(err, domain.ErrEmptyCatalog):
		code = "empty_catalog"
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
}
