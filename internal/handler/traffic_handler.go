package handler

import (
	"net/http"

	"github.com/dottraffic/backend/internal/service"
)

// TrafficHandler は受信メール振り分けの HTTP ハンドラ
type TrafficHandler struct {
	svc service.TrafficService
}

// NewTrafficHandler は TrafficHandler を生成する
func NewTrafficHandler(svc service.TrafficService) *TrafficHandler {
	return &TrafficHandler{svc: svc}
}

// Route は POST /traffic を処理する
func (h *TrafficHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req service.TrafficRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EmailContent == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Details: "emailContent is required"})
		return
	}

	result, err := h.svc.Route(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
