package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dottraffic/backend/internal/classifier"
	"github.com/dottraffic/backend/internal/service"
)

// maxBodyBytes はリクエストボディの上限（メール本文を想定）
const maxBodyBytes = 1 << 20

// errorResponse は全エンドポイント共通の失敗エンベロープ
type errorResponse struct {
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
}

// jobNotFoundResponse は 404 のエンベロープ
type jobNotFoundResponse struct {
	Error     string `json:"error"`
	JobNumber string `json:"jobNumber"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// decodeJSON はボディを v に読み込む。失敗時は 400 を書き込み false を返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Details: fmt.Sprintf("invalid JSON body: %v", err)})
		return false
	}
	return true
}

func writeJobNotFound(w http.ResponseWriter, jobNumber string) {
	writeJSON(w, http.StatusNotFound, jobNotFoundResponse{
		Error:     "job_not_found",
		JobNumber: jobNumber,
		Message:   fmt.Sprintf("Job %s was not found. Check the job number or triage the email as a new job.", jobNumber),
	})
}

// writeServiceError はサービス層のエラーを HTTP ステータスとエンベロープに変換する
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var malformed *classifier.MalformedResponseError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Details: err.Error()})
	case errors.As(err, &malformed):
		details := malformed.Error()
		if malformed.Err != nil {
			details = malformed.Err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:       "Classifier returned invalid JSON",
			Details:     details,
			RawResponse: malformed.Raw,
		})
	case errors.Is(err, service.ErrDependencyUnavailable):
		slog.Warn("dependency unavailable", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "dependency_unavailable", Details: err.Error()})
	default:
		slog.Error("request failed", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
	}
}
