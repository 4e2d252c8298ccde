package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"blendpredict/internal/adapters/primary/http/dto"
	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const headerOwnerID = "X-Owner-ID"

func (h *Handler) SubmitRun(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
				Error:    fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes),
				Category: domain.CategoryBadInput,
			})
		case errors.Is(err, http.ErrMissingFile):
			mapDomainError(c, domain.ErrMissingFile)
		default:
			mapDomainError(c, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err))
		}
		return
	}
	filename := filepath.Base(header.Filename)
	if header.Filename == "" || filename == "." || filename == "/" {
		mapDomainError(c, domain.ErrMissingFile)
		return
	}

	f, err := header.Open()
	if err != nil {
		log.WithError(err).Error("open uploaded file failed")
		mapDomainError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		log.WithError(err).Error("read uploaded file failed")
		mapDomainError(c, err)
		return
	}

	outcome, err := h.runSvc.SubmitRun(c.Request.Context(), ownerID, filename, data)
	if err != nil {
		if outcome != nil && errors.Is(err, domain.ErrPartiallyCompleted) {
			resp := dto.ToSubmitRunResponse(outcome)
			resp.Partial = true
			resp.Warning = domain.ErrPartiallyCompleted.Error()
			c.JSON(http.StatusAccepted, resp)
			return
		}
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSubmitRunResponse(outcome))
}

func (h *Handler) ListRuns(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := h.runSvc.ListRuns(c.Request.Context(), ports.RunListFilter{
		OwnerID: ownerID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		log.WithError(err).Error("list runs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.RunSummaryResponse, 0, len(runs))
	for _, r := range runs {
		items = append(items, dto.ToRunSummaryResponse(r))
	}

	c.JSON(http.StatusOK, dto.ListRunsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid run id", Category: domain.CategoryBadInput})
		return
	}

	rec, res, err := h.runSvc.ViewRun(c.Request.Context(), id)
	if err != nil {
		if domain.CategoryOf(err) != domain.CategoryNotFound {
			log.WithError(err).WithField("run_id", id).Error("view run failed")
		}
		mapDomainError(c, err)
		return
	}
	// Runs of other owners are reported as missing.
	if rec.OwnerID != ownerID {
		mapDomainError(c, domain.ErrRunNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.ToRunDetailResponse(rec, res))
}

func (h *Handler) DownloadRun(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid run id", Category: domain.CategoryBadInput})
		return
	}

	rec, err := h.runSvc.GetRun(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	if rec.OwnerID != ownerID {
		mapDomainError(c, domain.ErrRunNotFound)
		return
	}

	data, contentType, err := h.runSvc.DownloadArtifact(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"run_id":   id,
			"location": rec.FilePath,
		}).Error("download artifact failed")
		mapDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "predictions_"+rec.Filename))
	c.Data(http.StatusOK, contentType, data)
}

func getOwnerID(c *gin.Context) (string, error) {
	ownerID := strings.TrimSpace(c.GetHeader(headerOwnerID))
	if ownerID == "" {
		return "", domain.ErrMissingOwnerID
	}
	return ownerID, nil
}
