package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auction-platform/internal/models"
	"auction-platform/internal/registry"
	"auction-platform/services/registry/helpers"
	"auction-platform/utils"

	"github.com/gin-gonic/gin"
)

type RegistryServiceInterface interface {
	Create(ctx context.Context, seller string, in registry.CreateInput) (models.Auction, error)
	Update(ctx context.Context, caller, id string, in registry.UpdateInput) (models.Auction, error)
	Delete(ctx context.Context, caller, id string) error
	Get(ctx context.Context, id string) (models.Auction, error)
	List(ctx context.Context, since time.Time) ([]models.Auction, error)
}

type RegistryHandler struct {
	service RegistryServiceInterface
}

func NewRegistryHandler(service RegistryServiceInterface) *RegistryHandler {
	return &RegistryHandler{service: service}
}

// fail writes the mapped error response and logs it
func fail(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// ListAuctionsHandler handles GET /api/auctions?date=
func (h *RegistryHandler) ListAuctionsHandler(c *gin.Context) {
	since, err := helpers.ParseSince(c.Query("date"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "invalid date filter")
		utils.Warn("ListAuctionsHandler: bad date", map[string]any{"date": c.Query("date")})
		return
	}

	auctions, err := h.service.List(c.Request.Context(), since)
	if err != nil {
		fail(c, "ListAuctionsHandler", err, map[string]any{"date": c.Query("date")})
		return
	}
	if auctions == nil {
		auctions = []models.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	utils.Debug("ListAuctionsHandler: auctions retrieved", map[string]any{"count": len(auctions)})
}

// GetAuctionHandler handles GET /api/auctions/:id
func (h *RegistryHandler) GetAuctionHandler(c *gin.Context) {
	id := c.Param("id")
	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, "GetAuctionHandler", err, map[string]any{"auction_id": id})
		return
	}
	utils.JSONResponse(c, http.StatusOK, a, "auction retrieved successfully")
}

// CreateAuctionHandler handles POST /api/auctions
func (h *RegistryHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}
	seller := utils.CurrentUser(c)

	a, err := h.service.Create(c.Request.Context(), seller, req.Input())
	if err != nil {
		fail(c, "CreateAuctionHandler", err, map[string]any{"seller": seller})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, a, "auction created successfully")
	utils.Info("CreateAuctionHandler: auction created", map[string]any{
		"auction_id":  a.ID,
		"seller":      seller,
		"auction_end": a.AuctionEnd.Format(time.RFC3339),
	})
}

// UpdateAuctionHandler handles PUT /api/auctions/:id
func (h *RegistryHandler) UpdateAuctionHandler(c *gin.Context) {
	var req helpers.UpdateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateAuctionHandler", err)
		return
	}
	id, caller := c.Param("id"), utils.CurrentUser(c)

	a, err := h.service.Update(c.Request.Context(), caller, id, req.Input())
	if err != nil {
		fail(c, "UpdateAuctionHandler", err, map[string]any{"auction_id": id, "caller": caller})
		return
	}

	utils.JSONResponse(c, http.StatusOK, a, "auction updated successfully")
	utils.Info("UpdateAuctionHandler: auction updated", map[string]any{"auction_id": id, "caller": caller})
}

// DeleteAuctionHandler handles DELETE /api/auctions/:id
func (h *RegistryHandler) DeleteAuctionHandler(c *gin.Context) {
	id, caller := c.Param("id"), utils.CurrentUser(c)

	if err := h.service.Delete(c.Request.Context(), caller, id); err != nil {
		fail(c, "DeleteAuctionHandler", err, map[string]any{"auction_id": id, "caller": caller})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"id": id}, "auction deleted successfully")
	utils.Info("DeleteAuctionHandler: auction deleted", map[string]any{"auction_id": id, "caller": caller})
}
