package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers 路由注册所需的全部 handler
type Handlers struct {
	Polymarket *PolymarketHandler
	Market     *MarketHandler
	Sync       *SyncHandler
}

// RegisterRoutes 注册全部业务路由
func RegisterRoutes(r *gin.Engine, h Handlers, logger *logrus.Logger) {
	r.Use(RequestLogger(logger))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("", func(c *gin.Context) {
			respondOK(c, http.StatusOK, gin.H{"status": "ok"}, nil)
		})

		pm := apiGroup.Group("/polymarkets")
		pm.GET("/markets", h.Polymarket.ListMarkets)
		pm.GET("/markets/:pmId", h.Polymarket.GetMarket)
		pm.GET("/categories/:slug/markets", h.Polymarket.GetMarketsByCategory)
		pm.GET("/tech-markets", h.Polymarket.GetTechMarkets)
		pm.DELETE("/cache", h.Polymarket.InvalidateCache)

		markets := apiGroup.Group("/markets")
		markets.POST("", h.Market.CreateMarket)
		markets.GET("", h.Market.ListMarkets)
		markets.DELETE("", h.Market.DeleteAllMarkets)
		markets.GET("/:id", h.Market.GetMarket)
		markets.PATCH("/:id", h.Market.UpdateMarket)
		markets.DELETE("/:id", h.Market.DeleteMarket)

		watch := apiGroup.Group("/users/:userId/watchlist")
		watch.GET("", h.Market.ListWatched)
		watch.POST("", h.Market.WatchMarket)
		watch.DELETE("/:marketId", h.Market.UnwatchMarket)
	}

	syncGroup := r.Group("/sync")
	{
		syncGroup.POST("/categories/:slug", h.Sync.SyncCategoryHandler)
	}
}
