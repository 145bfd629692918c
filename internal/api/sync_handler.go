package api

import (
	"net/http"
	"strings"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const syncDefaultLimit = 100

type SyncHandler struct {
	syncService *service.SyncService
	logger      *logrus.Logger
}

func NewSyncHandler(syncService *service.SyncService, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// SyncCategoryHandler 拉取指定标签下的市场并同步到本地
// @Summary 同步标签市场到本地镜像
// @Param slug path string true "标签 slug（如 tech）"
// @Param limit query int false "最多同步条数（默认100）"
// @Router /sync/categories/{slug} [post]
func (h *SyncHandler) SyncCategoryHandler(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, h.logger, "sync category", apperr.InvalidInput("Category slug is required"))
		return
	}
	limit, err := queryInt(c, "limit", syncDefaultLimit)
	if err != nil {
		respondError(c, h.logger, "sync category", err)
		return
	}
	if limit <= 0 {
		limit = syncDefaultLimit
	}

	result, err := h.syncService.SyncTag(c.Request.Context(), slug, limit)
	if err != nil {
		respondError(c, h.logger, "sync category", err)
		return
	}
	h.logger.Infof("%s同步完成，共%d个市场", slug, result.Upserted)
	respondOK(c, http.StatusOK, result, nil)
}
