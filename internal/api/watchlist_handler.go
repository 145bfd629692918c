package api

import (
	"net/http"

	"PolyWatch/internal/apperr"

	"github.com/gin-gonic/gin"
)

type watchRequest struct {
	PolymarketID string `json:"polymarketId"`
}

// ListWatched 用户关注的市场
// GET /api/users/:userId/watchlist
func (h *MarketHandler) ListWatched(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		respondError(c, h.logger, "list watchlist", err)
		return
	}
	markets, err := h.marketService.ListWatched(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "list watchlist", err)
		return
	}
	respondOK(c, http.StatusOK, markets, gin.H{"total": len(markets)})
}

// WatchMarket 关注市场，本地没有时先登记
// POST /api/users/:userId/watchlist {"polymarketId": "516950"}
func (h *MarketHandler) WatchMarket(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		respondError(c, h.logger, "watch market", err)
		return
	}
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, "watch market", apperr.InvalidInput("invalid request body: %v", err))
		return
	}

	res, err := h.marketService.WatchMarket(c.Request.Context(), userID, req.PolymarketID)
	if err != nil {
		respondError(c, h.logger, "watch market", err)
		return
	}
	status := http.StatusCreated
	if res.AlreadyWatched {
		status = http.StatusOK
	}
	respondOK(c, status, res, gin.H{"alreadyExists": res.AlreadyWatched})
}

// UnwatchMarket 取消关注
// DELETE /api/users/:userId/watchlist/:marketId
func (h *MarketHandler) UnwatchMarket(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		respondError(c, h.logger, "unwatch market", err)
		return
	}
	marketID, err := pathID(c, "marketId")
	if err != nil {
		respondError(c, h.logger, "unwatch market", err)
		return
	}
	if err := h.marketService.UnwatchMarket(c.Request.Context(), userID, marketID); err != nil {
		respondError(c, h.logger, "unwatch market", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"userId": userID, "marketId": marketID}, nil)
}
