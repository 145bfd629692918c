package service

import (
	"context"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/model"

	"github.com/sirupsen/logrus"
)

// WatchResult 关注结果
type WatchResult struct {
	Watch          *model.Watchlist `json:"watch"`
	Market         *model.Market    `json:"market"`
	AlreadyWatched bool             `json:"alreadyWatched"`
}

// WatchMarket 按上游 ID 关注市场；本地没有镜像时先幂等登记
func (s *MarketService) WatchMarket(ctx context.Context, userID uint64, externalID string) (*WatchResult, error) {
	if userID == 0 {
		return nil, apperr.InvalidInput("userId is required")
	}
	market, _, err := s.EnsureMarket(ctx, externalID, nil)
	if err != nil {
		return nil, err
	}
	w, existed, err := s.repo.AddWatch(ctx, userID, market.ID)
	if err != nil {
		return nil, err
	}
	if !existed {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "market_id": market.ID}).Info("已关注市场")
	}
	return &WatchResult{Watch: w, Market: market, AlreadyWatched: existed}, nil
}

// UnwatchMarket 取消关注，marketID 为本地 ID
func (s *MarketService) UnwatchMarket(ctx context.Context, userID, marketID uint64) error {
	return s.repo.RemoveWatch(ctx, userID, marketID)
}

// ListWatched 用户关注的市场
func (s *MarketService) ListWatched(ctx context.Context, userID uint64) ([]*model.Market, error) {
	return s.repo.ListWatched(ctx, userID)
}
