package service

import (
	"context"
	"errors"
	"strings"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/interfaces"
	"PolyWatch/internal/model"
	"PolyWatch/internal/repository"

	"github.com/sirupsen/logrus"
)

// MarketService 本地市场镜像的增删改查
type MarketService struct {
	repo   repository.MarketRepository
	source interfaces.MarketSource
	logger *logrus.Logger
}

// NewMarketService 创建 MarketService
func NewMarketService(repo repository.MarketRepository, source interfaces.MarketSource, logger *logrus.Logger) *MarketService {
	return &MarketService{
		repo:   repo,
		source: source,
		logger: logger,
	}
}

// MarketListResult 列表返回
type MarketListResult struct {
	Items  []*model.Market `json:"items"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// MarketUpdate 可修改的字段，目前只有分类。CategorySet 为 false 表示请求中未携带该字段
type MarketUpdate struct {
	CategoryID  *uint64
	CategorySet bool
}

// CreateMarket 严格模式登记市场：本地已存在或插入时唯一冲突均返回 Duplicate
func (s *MarketService) CreateMarket(ctx context.Context, externalID string, categoryID *uint64) (*model.Market, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperr.InvalidInput("polymarketId is required")
	}

	if _, err := s.repo.GetByExternalID(ctx, externalID); err == nil {
		return nil, apperr.Duplicate("Market already exists: %s", externalID)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	m, err := s.fetchMarket(ctx, externalID, categoryID)
	if err != nil {
		return nil, err
	}
	// 并发登记时预检查可能同时通过，由唯一索引兜底
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"id": m.ID, "external_id": externalID}).Info("市场登记成功")
	return m, nil
}

// EnsureMarket 幂等登记：已存在时返回已有记录和 true
func (s *MarketService) EnsureMarket(ctx context.Context, externalID string, categoryID *uint64) (*model.Market, bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, false, apperr.InvalidInput("polymarketId is required")
	}

	existing, err := s.repo.GetByExternalID(ctx, externalID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	m, err := s.fetchMarket(ctx, externalID, categoryID)
	if err != nil {
		return nil, false, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if !errors.Is(err, apperr.ErrDuplicate) {
			return nil, false, err
		}
		// 插入竞争失败，返回胜出方写入的记录
		winner, gerr := s.repo.GetByExternalID(ctx, externalID)
		if gerr != nil {
			return nil, false, gerr
		}
		return winner, true, nil
	}
	s.logger.WithFields(logrus.Fields{"id": m.ID, "external_id": externalID}).Info("市场登记成功")
	return m, false, nil
}

// fetchMarket 从上游取标题等字段构造待插入记录。
// 上游失败统一视为 external id 无效；限流原样返回，与 id 本身无关
func (s *MarketService) fetchMarket(ctx context.Context, externalID string, categoryID *uint64) (*model.Market, error) {
	raw, err := s.source.FetchMarketByID(ctx, externalID)
	if err != nil {
		if errors.Is(err, apperr.ErrRateLimited) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindInvalidExternalID, err, "Invalid Polymarket ID: %s", externalID)
	}
	m, _ := transformMarket(raw, externalID)
	m.ExternalID = externalID
	m.CategoryID = categoryID
	return m, nil
}

// ListMarkets 分页查询本地市场
func (s *MarketService) ListMarkets(ctx context.Context, q repository.MarketQuery) (*MarketListResult, error) {
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &MarketListResult{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// GetMarket 按本地 ID 查询
func (s *MarketService) GetMarket(ctx context.Context, id uint64) (*model.Market, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateMarket 仅允许修改分类；没有可修改字段时返回当前记录
func (s *MarketService) UpdateMarket(ctx context.Context, id uint64, upd MarketUpdate) (*model.Market, error) {
	if !upd.CategorySet {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.UpdateCategory(ctx, id, upd.CategoryID)
}

// DeleteMarket 删除市场（级联删除关注记录）
func (s *MarketService) DeleteMarket(ctx context.Context, id uint64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("id", id).Info("市场已删除")
	return nil
}

// DeleteAllMarkets 清空本地镜像，返回删除条数
func (s *MarketService) DeleteAllMarkets(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.WithField("deleted", n).Warn("本地市场已全部清空")
	return n, nil
}
