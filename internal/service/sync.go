package service

import (
	"context"
	"encoding/json"
	"fmt"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/interfaces"
	"PolyWatch/internal/model"
	"PolyWatch/internal/normalizer"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// SyncService 把上游市场批量同步到本地镜像
type SyncService struct {
	store  interfaces.MarketStore
	source interfaces.MarketSource
	logger *logrus.Logger
}

// NewSyncService 创建 SyncService
func NewSyncService(store interfaces.MarketStore, source interfaces.MarketSource, logger *logrus.Logger) *SyncService {
	return &SyncService{
		store:  store,
		source: source,
		logger: logger,
	}
}

// SyncResult 一次批量同步的统计
type SyncResult struct {
	Total    int `json:"total"`    // 输入条数
	Upserted int `json:"upserted"` // 成功写入
	Skipped  int `json:"skipped"`  // 无法确定 external id 被跳过
	Failed   int `json:"failed"`   // 写入失败
}

// TagSyncResult 按标签同步的结果
type TagSyncResult struct {
	Tag model.Tag `json:"tag"`
	SyncResult
}

// TransformMarket 上游原始数据 -> 本地记录；无法确定 external id 时返回 false
func (s *SyncService) TransformMarket(raw model.RawMarket) (*model.Market, bool) {
	return transformMarket(raw, "")
}

func transformMarket(raw model.RawMarket, fallbackID string) (*model.Market, bool) {
	nm := normalizer.NormalizeWithFallbackID(raw, fallbackID)
	if nm.ID == "" {
		return nil, false
	}
	outcomes, err := json.Marshal(nm.Outcomes)
	if err != nil {
		outcomes = []byte("[]")
	}
	return &model.Market{
		ExternalID: nm.ID,
		Title:      nm.Title,
		Image:      nm.Image,
		Volume:     nm.Volume,
		Outcomes:   datatypes.JSON(outcomes),
		EndDate:    nm.EndDate,
	}, true
}

// SyncMarketsToLocal 逐条 upsert（单条原子、整批不包事务），单条失败只计数并记录日志。
// 仅在全部写入失败或 ctx 取消时返回错误
func (s *SyncService) SyncMarketsToLocal(ctx context.Context, raws []model.RawMarket) (*SyncResult, error) {
	result := &SyncResult{Total: len(raws)}
	if len(raws) == 0 {
		return result, nil
	}

	var lastErr error
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("同步被取消: %w", err)
		}
		m, ok := s.TransformMarket(raw)
		if !ok {
			result.Skipped++
			s.logger.Warn("市场缺少 id，跳过同步")
			continue
		}
		if err := s.store.UpsertByExternalID(ctx, m); err != nil {
			result.Failed++
			lastErr = err
			s.logger.WithError(err).WithField("external_id", m.ExternalID).Warn("市场同步失败")
			continue
		}
		result.Upserted++
	}

	attempted := result.Total - result.Skipped
	if attempted > 0 && result.Failed == attempted {
		return result, apperr.Internal(lastErr, "同步失败，%d 条市场全部写入失败", attempted)
	}

	s.logger.WithFields(logrus.Fields{
		"total":    result.Total,
		"upserted": result.Upserted,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
	}).Info("市场同步完成")
	return result, nil
}

// SyncTag 拉取指定标签下的市场并同步到本地
func (s *SyncService) SyncTag(ctx context.Context, slug string, limit int) (*TagSyncResult, error) {
	tm, err := s.source.GetMarketsByTag(ctx, slug, limit)
	if err != nil {
		return nil, err
	}
	result, err := s.SyncMarketsToLocal(ctx, tm.Markets)
	if err != nil {
		return nil, err
	}
	return &TagSyncResult{Tag: tm.Tag, SyncResult: *result}, nil
}
