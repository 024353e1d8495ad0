package handler

import (
	"net/http"

	"github.com/dottraffic/backend/internal/service"
)

// TriageHandler は新規ジョブ受付の HTTP ハンドラ
type TriageHandler struct {
	svc service.TriageService
}

// NewTriageHandler は TriageHandler を生成する
func NewTriageHandler(svc service.TriageService) *TriageHandler {
	return &TriageHandler{svc: svc}
}

// Triage は POST /triage を処理する
func (h *TriageHandler) Triage(w http.ResponseWriter, r *http.Request) {
	var req service.TriageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EmailContent == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Details: "emailContent is required"})
		return
	}

	resp, err := h.svc.Triage(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
