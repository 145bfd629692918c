package api

import (
	"encoding/json"
	"net/http"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/config"
	"PolyWatch/internal/repository"
	"PolyWatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MarketHandler 本地市场镜像的管理接口
type MarketHandler struct {
	marketService *service.MarketService
	limits        config.MarketConfig
	logger        *logrus.Logger
}

// NewMarketHandler 创建 MarketHandler
func NewMarketHandler(marketService *service.MarketService, limits config.MarketConfig, logger *logrus.Logger) *MarketHandler {
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = 100
	}
	if limits.DefaultLimit <= 0 || limits.DefaultLimit > limits.MaxLimit {
		limits.DefaultLimit = 20
	}
	return &MarketHandler{
		marketService: marketService,
		limits:        limits,
		logger:        logger,
	}
}

// createMarketRequest POST /api/markets 请求体
type createMarketRequest struct {
	PolymarketID string  `json:"polymarketId"`
	CategoryID   *uint64 `json:"categoryId"`
	Idempotent   bool    `json:"idempotent"`
}

// CreateMarket 按上游 ID 登记市场
// POST /api/markets {"polymarketId": "516950", "categoryId": 1, "idempotent": false}
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, "create market", apperr.InvalidInput("invalid request body: %v", err))
		return
	}
	if req.PolymarketID == "" {
		respondError(c, h.logger, "create market", apperr.InvalidInput("polymarketId is required"))
		return
	}

	if req.Idempotent {
		market, existed, err := h.marketService.EnsureMarket(c.Request.Context(), req.PolymarketID, req.CategoryID)
		if err != nil {
			respondError(c, h.logger, "create market", err)
			return
		}
		status := http.StatusCreated
		if existed {
			status = http.StatusOK
		}
		respondOK(c, status, market, gin.H{"alreadyExists": existed})
		return
	}

	market, err := h.marketService.CreateMarket(c.Request.Context(), req.PolymarketID, req.CategoryID)
	if err != nil {
		respondError(c, h.logger, "create market", err)
		return
	}
	respondOK(c, http.StatusCreated, market, gin.H{"message": "Market created successfully"})
}

// ListMarkets 本地市场列表
// GET /api/markets?search=&sort=-createdAt&limit=20&offset=0
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	rawLimit, rawOffset, err := queryPage(c, 0)
	if err != nil {
		respondError(c, h.logger, "list markets", err)
		return
	}
	limit, offset := repository.ClampPage(rawLimit, rawOffset, h.limits.DefaultLimit, h.limits.MaxLimit)
	q := repository.MarketQuery{
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
		Limit:  limit,
		Offset: offset,
	}

	result, err := h.marketService.ListMarkets(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, "list markets", err)
		return
	}
	respondOK(c, http.StatusOK, result.Items, gin.H{
		"total":  result.Total,
		"limit":  result.Limit,
		"offset": result.Offset,
	})
}

// GetMarket 本地市场详情
// GET /api/markets/:id
func (h *MarketHandler) GetMarket(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, "get market", err)
		return
	}
	market, err := h.marketService.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get market", err)
		return
	}
	respondOK(c, http.StatusOK, market, nil)
}

// UpdateMarket 修改分类，body 中 categoryId 为 null 表示取消分类，缺省则不修改
// PATCH /api/markets/:id {"categoryId": 2}
func (h *MarketHandler) UpdateMarket(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, "update market", err)
		return
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, h.logger, "update market", apperr.InvalidInput("invalid request body: %v", err))
		return
	}

	var upd service.MarketUpdate
	if raw, ok := body["categoryId"]; ok {
		upd.CategorySet = true
		if err := json.Unmarshal(raw, &upd.CategoryID); err != nil || (upd.CategoryID != nil && *upd.CategoryID == 0) {
			respondError(c, h.logger, "update market", apperr.InvalidInput("categoryId must be a positive integer or null"))
			return
		}
	}

	market, err := h.marketService.UpdateMarket(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, h.logger, "update market", err)
		return
	}
	respondOK(c, http.StatusOK, market, nil)
}

// DeleteMarket 删除单个市场（级联删除关注记录）
// DELETE /api/markets/:id
func (h *MarketHandler) DeleteMarket(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, "delete market", err)
		return
	}
	if err := h.marketService.DeleteMarket(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "delete market", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id}, nil)
}

// DeleteAllMarkets 清空本地镜像
// DELETE /api/markets
func (h *MarketHandler) DeleteAllMarkets(c *gin.Context) {
	n, err := h.marketService.DeleteAllMarkets(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "delete all markets", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": n}, nil)
}
