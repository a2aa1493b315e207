package server

import (
	bidding "auction-platform/services/bidding/handler"
	registry "auction-platform/services/registry/handler"
	search "auction-platform/services/search/handler"

	"github.com/gin-gonic/gin"
)

// Services holds the handlers' backends; nil entries leave their routes out
type Services struct {
	Registry registry.RegistryServiceInterface
	Bidding  bidding.BiddingServiceInterface
	Search   search.SearchServiceInterface
}

// SetupRouter configures all Gin routes for the enabled services
func SetupRouter(svc Services) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	api := router.Group("/api")

	if svc.Registry != nil {
		h := registry.NewRegistryHandler(svc.Registry)
		auctions := api.Group("/auctions")
		{
			auctions.GET("", h.ListAuctionsHandler)
			auctions.GET("/:id", h.GetAuctionHandler)
			auctions.POST("", RequireIdentity, h.CreateAuctionHandler)
			auctions.PUT("/:id", RequireIdentity, h.UpdateAuctionHandler)
			auctions.DELETE("/:id", RequireIdentity, h.DeleteAuctionHandler)
		}
	}

	if svc.Bidding != nil {
		h := bidding.NewBiddingHandler(svc.Bidding)
		bids := api.Group("/bids")
		{
			bids.POST("", RequireIdentity, h.RecordBidHandler)
			bids.GET("/:auction_id", h.GetBidsByAuctionHandler)
			bids.GET("/:auction_id/highest", h.GetHighestBidHandler)
		}
	}

	if svc.Search != nil {
		h := search.NewSearchHandler(svc.Search)
		api.GET("/search/items/:id", h.GetItemHandler)
	}

	return router
}
