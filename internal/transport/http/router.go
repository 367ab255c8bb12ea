package http

import (
	"encoding/json"
	"net/http"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionHandler exposes the session protocols as REST endpoints.
type SessionHandler struct {
	service *app.SessionService
	logger  *zap.Logger
}

func NewSessionHandler(service *app.SessionService, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{service: service, logger: logger}
}

// NewRouter wires the REST routes, the WebSocket feed and the health check.
func NewRouter(sessions *SessionHandler, ws *WSHandler, auth *Authenticator) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/sessions").Subrouter()
	api.Use(auth.Middleware)
	api.HandleFunc("", sessions.Create).Methods(http.MethodPost)
	api.HandleFunc("/{id}", sessions.Get).Methods(http.MethodGet)
	api.HandleFunc("/{id}/join", sessions.Join).Methods(http.MethodPost)
	api.HandleFunc("/{id}/settings", sessions.Configure).Methods(http.MethodPatch)
	api.HandleFunc("/{id}/start", sessions.Start).Methods(http.MethodPost)
	api.HandleFunc("/{id}/answers", sessions.SubmitAnswer).Methods(http.MethodPost)
	api.HandleFunc("/{id}/advance", sessions.Advance).Methods(http.MethodPost)
	api.HandleFunc("/{id}/ws", ws.ServeWS).Methods(http.MethodGet)
	return r
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
	app.SessionSettings
}

// answerReceipt acknowledges a submission without its distance, which would hint at the answer.
type answerReceipt struct {
	QuestionID string            `json:"questionId"`
	Coordinate domain.Coordinate `json:"coordinate"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.CreateSession(r.Context(), IdentityFrom(r.Context()), req.QuizID, req.SessionSettings)
	h.respond(w, r, http.StatusCreated, session, err)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), mux.Vars(r)["id"])
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.JoinSession(r.Context(), mux.Vars(r)["id"], IdentityFrom(r.Context()))
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *SessionHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req app.SessionSettings
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.ConfigureSession(r.Context(), mux.Vars(r)["id"], IdentityFrom(r.Context()), req)
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.StartSession(r.Context(), mux.Vars(r)["id"], IdentityFrom(r.Context()))
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req domain.Coordinate
	if !h.decode(w, r, &req) {
		return
	}
	answer, err := h.service.SubmitAnswer(r.Context(), mux.Vars(r)["id"], IdentityFrom(r.Context()), req)
	h.respond(w, r, http.StatusAccepted, answerReceipt{QuestionID: answer.QuestionID, Coordinate: answer.Coordinate}, err)
}

func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Advance(r.Context(), mux.Vars(r)["id"], IdentityFrom(r.Context()))
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respond(w, r, 0, nil, domain.Validationf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	if err == nil {
		writeJSON(w, status, body)
		return
	}
	code, _ := classify(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, err)
}
