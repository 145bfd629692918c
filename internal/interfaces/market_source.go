package interfaces

import (
	"context"

	"PolyWatch/internal/model"
)

// MarketSource 上游市场数据源（带缓存），返回的错误均为 *apperr.Error
type MarketSource interface {
	// FetchMarketByID 按上游市场 ID 拉取单个市场
	FetchMarketByID(ctx context.Context, id string) (model.RawMarket, error)
	// SearchMarkets 关键词搜索 + 分页
	SearchMarkets(ctx context.Context, query string, limit, offset int) ([]model.RawMarket, error)
	// GetMarketsByTag 先解析标签 slug，再按页拉取该标签下的市场，最多 limit 条
	GetMarketsByTag(ctx context.Context, slug string, limit int) (*model.TagMarkets, error)
	// GetTechMarkets 等价于 GetMarketsByTag("tech", limit)；offset/search 目前未使用
	GetTechMarkets(ctx context.Context, limit, offset int, search string) (*model.TagMarkets, error)
	// Invalidate 删除指定缓存 key，不传则清空全部
	Invalidate(keys ...string)
}
