package api

import (
	"net/http"
	"strings"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/interfaces"
	"PolyWatch/internal/model"
	"PolyWatch/internal/normalizer"
	"PolyWatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	searchDefaultLimit = 20
	searchMaxLimit     = 200
	tagDefaultLimit    = 20
	tagMaxLimit        = 100
	techDefaultLimit   = 36
	techMaxLimit       = 100
)

// PolymarketHandler 透传上游（带缓存）的查询接口
type PolymarketHandler struct {
	source      interfaces.MarketSource
	syncService *service.SyncService
	logger      *logrus.Logger
}

// NewPolymarketHandler 创建 PolymarketHandler
func NewPolymarketHandler(source interfaces.MarketSource, syncService *service.SyncService, logger *logrus.Logger) *PolymarketHandler {
	return &PolymarketHandler{
		source:      source,
		syncService: syncService,
		logger:      logger,
	}
}

// tagMarketsView 按标签查询的返回结构
type tagMarketsView struct {
	Tag     model.Tag   `json:"tag"`
	Markets interface{} `json:"markets"`
}

// ListMarkets 搜索上游市场
// GET /api/polymarkets/markets?search=&limit=20&offset=0&raw=false
func (h *PolymarketHandler) ListMarkets(c *gin.Context) {
	query := c.Query("search")
	limit, offset, err := queryPage(c, searchDefaultLimit)
	if err != nil {
		respondError(c, h.logger, "search markets", err)
		return
	}
	limit = clampLimit(limit, searchDefaultLimit, searchMaxLimit)
	if offset < 0 {
		offset = 0
	}

	markets, err := h.source.SearchMarkets(c.Request.Context(), query, limit, offset)
	if err != nil {
		respondError(c, h.logger, "search markets", err)
		return
	}
	respondOK(c, http.StatusOK, h.present(c, markets), gin.H{"limit": limit, "offset": offset})
}

// GetMarket 按上游 ID 查询单个市场
// GET /api/polymarkets/markets/:pmId
func (h *PolymarketHandler) GetMarket(c *gin.Context) {
	pmID := strings.TrimSpace(c.Param("pmId"))
	if pmID == "" {
		respondError(c, h.logger, "get market", apperr.InvalidInput("Market ID is required"))
		return
	}

	market, err := h.source.FetchMarketByID(c.Request.Context(), pmID)
	if err != nil {
		respondError(c, h.logger, "get market", err)
		return
	}
	if wantRaw(c) {
		respondOK(c, http.StatusOK, market, nil)
		return
	}
	respondOK(c, http.StatusOK, normalizer.NormalizeWithFallbackID(market, pmID), nil)
}

// GetMarketsByCategory 按标签 slug 查询市场
// GET /api/polymarkets/categories/:slug/markets?limit=20
func (h *PolymarketHandler) GetMarketsByCategory(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, h.logger, "get markets by category", apperr.InvalidInput("Category slug is required"))
		return
	}
	limit, err := queryInt(c, "limit", tagDefaultLimit)
	if err != nil {
		respondError(c, h.logger, "get markets by category", err)
		return
	}
	limit = clampLimit(limit, tagDefaultLimit, tagMaxLimit)

	result, err := h.source.GetMarketsByTag(c.Request.Context(), slug, limit)
	if err != nil {
		respondError(c, h.logger, "get markets by category", err)
		return
	}
	respondOK(c, http.StatusOK, tagMarketsView{Tag: result.Tag, Markets: h.present(c, result.Markets)}, nil)
}

// GetTechMarkets tech 分类快捷接口，拉取后同步到本地镜像（同步失败只记日志）
// GET /api/polymarkets/tech-markets?limit=36&search=
func (h *PolymarketHandler) GetTechMarkets(c *gin.Context) {
	limit, err := queryInt(c, "limit", techDefaultLimit)
	if err != nil {
		respondError(c, h.logger, "get tech markets", err)
		return
	}
	limit = clampLimit(limit, techDefaultLimit, techMaxLimit)
	search := c.Query("search")

	result, err := h.source.GetTechMarkets(c.Request.Context(), limit, 0, search)
	if err != nil {
		respondError(c, h.logger, "get tech markets", err)
		return
	}

	if len(result.Markets) > 0 {
		if res, err := h.syncService.SyncMarketsToLocal(c.Request.Context(), result.Markets); err != nil {
			h.logger.WithError(err).Warn("tech 市场同步到本地失败")
		} else {
			h.logger.WithField("upserted", res.Upserted).Debug("tech 市场已同步")
		}
	}
	respondOK(c, http.StatusOK, tagMarketsView{Tag: result.Tag, Markets: h.present(c, result.Markets)}, nil)
}

// InvalidateCache 清除上游缓存，key 为空时清空全部
// DELETE /api/polymarkets/cache?key=market:123
func (h *PolymarketHandler) InvalidateCache(c *gin.Context) {
	if key := c.Query("key"); key != "" {
		h.source.Invalidate(key)
		respondOK(c, http.StatusOK, gin.H{"cleared": []string{key}}, nil)
		return
	}
	h.source.Invalidate()
	respondOK(c, http.StatusOK, gin.H{"cleared": "all"}, nil)
}

// present 默认返回归一化结构，raw=true 时原样返回上游数据
func (h *PolymarketHandler) present(c *gin.Context, markets []model.RawMarket) interface{} {
	if wantRaw(c) {
		return markets
	}
	out := make([]model.NormalizedMarket, 0, len(markets))
	for _, m := range markets {
		out = append(out, normalizer.Normalize(m))
	}
	return out
}

func wantRaw(c *gin.Context) bool {
	return c.Query("raw") == "true"
}
