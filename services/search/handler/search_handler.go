package handler

import (
	"context"
	"fmt"
	"net/http"

	"auction-platform/internal/models"
	"auction-platform/utils"

	"github.com/gin-gonic/gin"
)

type SearchServiceInterface interface {
	Get(ctx context.Context, id string) (models.Item, error)
}

type SearchHandler struct {
	service SearchServiceInterface
}

func NewSearchHandler(service SearchServiceInterface) *SearchHandler {
	return &SearchHandler{service: service}
}

// GetItemHandler handles GET /api/search/items/:id
func (h *SearchHandler) GetItemHandler(c *gin.Context) {
	id := c.Param("id")
	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		status := utils.StatusFor(err)
		message := "internal server error"
		switch status {
		case http.StatusNotFound:
			message = "item not found"
		case http.StatusBadRequest:
			message = "invalid item id"
		case http.StatusServiceUnavailable:
			message = "search temporarily unavailable"
		default:
			status = http.StatusInternalServerError
		}
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetItemHandler: item lookup failed", map[string]any{"item_id": id, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, item, "item retrieved successfully")
}
