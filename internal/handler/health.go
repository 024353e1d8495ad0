package handler

import (
	"net/http"
)

// Endpoints は /health が返すエンドポイント一覧
var Endpoints = []string{"/traffic", "/triage", "/update", "/health", "/jobs/{jobNumber}/updates", "/metrics"}

// HealthInfo は /health に載せるサービス構成
type HealthInfo struct {
	Classifier string
	Store      string
	Stages     []string
}

type healthResponse struct {
	Status     string   `json:"status"`
	Service    string   `json:"service"`
	Endpoints  []string `json:"endpoints"`
	Classifier string   `json:"classifier"`
	Store      string   `json:"store"`
	Stages     []string `json:"stages"`
}

// HealthHandler は GET /health のハンドラ
type HealthHandler struct {
	info HealthInfo
}

// NewHealthHandler は HealthHandler を生成する
func NewHealthHandler(info HealthInfo) *HealthHandler {
	return &HealthHandler{info: info}
}

// Health は GET /health を処理する。外部依存には問い合わせない。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "healthy",
		Service:    "Dot Traffic Hub",
		Endpoints:  Endpoints,
		Classifier: h.info.Classifier,
		Store:      h.info.Store,
		Stages:     h.info.Stages,
	})
}
