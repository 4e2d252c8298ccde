package handlers

import (
	"errors"
	"net/http"

	"blendpredict/internal/adapters/primary/http/dto"
	"blendpredict/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	category := domain.CategoryOf(err)
	switch category {
	case domain.CategoryBadInput:
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrSchemaMismatch) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, dto.ErrorResponse{Error: err.Error(), Category: category})

	case domain.CategoryNotFound:
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error(), Category: category})

	// Transient; the client may retry.
	case domain.CategoryUnavailable:
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error(), Category: category})

	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error", Category: domain.CategoryInternal})
	}
}
