package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"geoquiz-service/internal/domain"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorStatus = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrIllegalState, http.StatusConflict, "illegal_state"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrLateSubmission, http.StatusUnprocessableEntity, "late_submission"},
	{domain.ErrValidation, http.StatusBadRequest, "validation"},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
}

// classify maps an error to its HTTP status and stable code.
func classify(err error) (int, errorPayload) {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			return e.status, errorPayload{Code: e.code, Message: err.Error()}
		}
	}
	return http.StatusInternalServerError, errorPayload{Code: "internal", Message: "internal error"}
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := classify(err)
	writeJSON(w, status, errorBody{Error: payload})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
