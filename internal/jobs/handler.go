package jobs

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorial-backend/internal/render"
	"tutorial-backend/internal/shared/server/middleware"
	"tutorial-backend/internal/shared/server/respond"
	"tutorial-backend/internal/shared/util"
)

// Handler wires HTTP handlers to the jobs service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.submitJob)
	rg.GET("/jobs", h.listJobs)
	rg.GET("/jobs/:id", h.getJob)
	rg.POST("/jobs/:id/cancel", h.cancelJob)
	rg.GET("/jobs/:id/artifact", h.getArtifact)
	rg.GET("/jobs/:id/download/html", h.downloadHTML)
}

type generateRequest struct {
	RepoRef         string   `json:"repoRef"`
	ProjectName     string   `json:"projectName"`
	IncludePatterns []string `json:"includePatterns"`
	ExcludePatterns []string `json:"excludePatterns"`
	MaxFileSize     int64    `json:"maxFileSize"`
	Language        string   `json:"language"`
	UseCache        *bool    `json:"useCache"`
	MaxAbstractions int      `json:"maxAbstractions"`
}

func (h *Handler) submitJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}
	cfg := Config{
		RepoRef:         req.RepoRef,
		ProjectName:     req.ProjectName,
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
		MaxFileSize:     req.MaxFileSize,
		Language:        req.Language,
		UseCache:        useCache,
		MaxAbstractions: req.MaxAbstractions,
	}
	log.Printf("Submitting tutorial job for user %s repo %s", userID, cfg.RepoRef)

	job, err := h.Svc.Submit(c.Request.Context(), userID, cfg)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidConfig):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit job", nil)
		}
		return
	}

	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func (h *Handler) getJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}
	c.Set("jobId", jobID)

	job, err := h.Svc.Get(c.Request.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, jobView(job))
}

func (h *Handler) listJobs(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}

	resp := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, gin.H{
			"jobId":       job.ID,
			"repoRef":     job.Config.RepoRef,
			"status":      job.Status,
			"progress":    job.Progress,
			"currentStep": job.CurrentStep,
			"createdAt":   job.CreatedAt,
		})
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) cancelJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}
	c.Set("jobId", jobID)

	job, err := h.Svc.Cancel(c.Request.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel job", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func (h *Handler) getArtifact(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	c.Set("jobId", jobID)

	artifact, err := h.Svc.Artifact(c.Request.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "not_ready", "job has not completed yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load artifact", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, artifact)
}

func (h *Handler) downloadHTML(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	c.Set("jobId", jobID)

	artifact, err := h.Svc.Artifact(c.Request.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "not_ready", "job has not completed yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load artifact", nil)
		}
		return
	}

	fileName, err := util.SanitizeFileName(artifact.ProjectName + ".html")
	if err != nil {
		fileName = "tutorial.html"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(render.HTML(artifact)))
}

func jobView(job Job) gin.H {
	resp := gin.H{
		"id":          job.ID,
		"status":      job.Status,
		"progress":    job.Progress,
		"currentStep": job.CurrentStep,
		"logs":        job.Logs,
		"config":      job.Config,
		"createdAt":   job.CreatedAt,
		"updatedAt":   job.UpdatedAt,
	}
	if job.ErrorMessage != nil {
		resp["error"] = gin.H{
			"code":    job.ErrorCode,
			"message": *job.ErrorMessage,
		}
	}
	if job.Status == StatusCompleted && job.ArtifactKey != "" {
		resp["result"] = gin.H{"artifactKey": job.ArtifactKey}
	}
	return resp
}
