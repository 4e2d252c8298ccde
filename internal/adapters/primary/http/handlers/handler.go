package handlers

import (
	"blendpredict/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	runSvc         *services.RunService
	engine         *services.InferenceEngine
	maxUploadBytes int64
}

func New(runSvc *services.RunService, engine *services.InferenceEngine, maxUploadBytes int64) *Handler {
	return &Handler{
		runSvc:         runSvc,
		engine:         engine,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Prediction runs
	r.POST("/runs", h.SubmitRun)
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.GET("/runs/:id/download", h.DownloadRun)
}

func (h *Handler) RegisterHealthRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
}
