package repository

import (
	"context"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *marketRepository) AddWatch(ctx context.Context, userID, marketID uint64) (*model.Watchlist, bool, error) {
	var (
		w       model.Watchlist
		existed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.first(tx.Where("id = ?", marketID), "Market not found: %d", marketID); err != nil {
			return err
		}
		// (user_id, market_id) 唯一，重复关注不报错
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "market_id"}},
			DoNothing: true,
		}).Create(&model.Watchlist{UserID: userID, MarketID: marketID})
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected == 0
		return tx.Where("user_id = ? AND market_id = ?", userID, marketID).First(&w).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &w, existed, nil
}

func (r *marketRepository) RemoveWatch(ctx context.Context, userID, marketID uint64) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND market_id = ?", userID, marketID).
		Delete(&model.Watchlist{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Watchlist entry not found: user %d, market %d", userID, marketID)
	}
	return nil
}

func (r *marketRepository) ListWatched(ctx context.Context, userID uint64) ([]*model.Market, error) {
	markets := make([]*model.Market, 0)
	err := r.db.WithContext(ctx).
		Select("markets.*").
		Joins("JOIN watchlists ON watchlists.market_id = markets.id").
		Where("watchlists.user_id = ?", userID).
		Order("watchlists.id DESC").
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}
