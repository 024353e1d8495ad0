package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/internal/repository"
	"github.com/dottraffic/backend/internal/service"
)

// UpdateHandler は既存ジョブの進捗メールと台帳参照の HTTP ハンドラ
type UpdateHandler struct {
	svc      service.UpdateService
	projects service.ProjectStoreService
	ledger   service.LedgerService
}

// NewUpdateHandler は UpdateHandler を生成する
func NewUpdateHandler(svc service.UpdateService, projects service.ProjectStoreService, ledger service.LedgerService) *UpdateHandler {
	return &UpdateHandler{svc: svc, projects: projects, ledger: ledger}
}

// Update は POST /update を処理する
func (h *UpdateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var missing []string
	if strings.TrimSpace(req.JobNumber) == "" {
		missing = append(missing, "jobNumber")
	}
	if req.EmailContent == "" {
		missing = append(missing, "emailContent")
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Details: strings.Join(missing, " and ") + " required"})
		return
	}

	resp, err := h.svc.Update(r.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJobNotFound(w, req.JobNumber)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateEntry struct {
	RecordID  string `json:"recordId"`
	Text      string `json:"text"`
	CreatedOn string `json:"createdOn"`
	DueOn     string `json:"dueOn"`
}

type updateListResponse struct {
	JobNumber string        `json:"jobNumber"`
	Updates   []updateEntry `json:"updates"`
}

// List は GET /jobs/{jobNumber}/updates を処理する。台帳を新しい順に返す。
func (h *UpdateHandler) List(w http.ResponseWriter, r *http.Request) {
	jobNumber := r.PathValue("jobNumber")

	project, err := h.projects.Find(r.Context(), jobNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJobNotFound(w, jobNumber)
			return
		}
		writeServiceError(w, r, unavailableErr(err))
		return
	}

	updates, err := h.ledger.List(r.Context(), project.RecordID)
	if err != nil {
		writeServiceError(w, r, unavailableErr(err))
		return
	}

	// nil スライスを空配列として返す
	entries := make([]updateEntry, 0, len(updates))
	for _, u := range updates {
		entries = append(entries, updateEntry{
			RecordID:  u.RecordID,
			Text:      u.Text,
			CreatedOn: u.CreatedOn.Format(model.DateLayout),
			DueOn:     u.DueOn.Format(model.DateLayout),
		})
	}
	writeJSON(w, http.StatusOK, updateListResponse{JobNumber: project.JobNumber, Updates: entries})
}

// unavailableErr は未設定のストアを 503 として扱う
func unavailableErr(err error) error {
	if errors.Is(err, repository.ErrNotConfigured) {
		return errors.Join(service.ErrDependencyUnavailable, err)
	}
	return err
}
