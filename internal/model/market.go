package model

import (
	"time"

	"gorm.io/datatypes"
)

// Market 本地镜像的市场记录，external_id 对应 Polymarket 市场 ID（唯一）
type Market struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ExternalID string         `gorm:"column:external_id;type:varchar(64);uniqueIndex;not null" json:"polymarketId"`
	Title      string         `gorm:"column:title;type:varchar(512);not null" json:"title"`
	Image      string         `gorm:"column:image;type:varchar(512)" json:"image"`
	Volume     float64        `gorm:"column:volume;type:numeric(24,6);default:0" json:"volume"`
	Outcomes   datatypes.JSON `gorm:"column:outcomes;type:jsonb" json:"outcomes"`
	EndDate    *time.Time     `gorm:"column:end_date;type:timestamp" json:"endDate"`
	CategoryID *uint64        `gorm:"column:category_id;type:bigint;index" json:"categoryId"` // 可空：未分类
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Market) TableName() string { return "markets" }

// Watchlist 用户关注的市场（user_id + market_id 唯一），删除市场时级联清理
type Watchlist struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"column:user_id;type:bigint;not null;uniqueIndex:uq_watchlist_user_market" json:"userId"`
	MarketID  uint64    `gorm:"column:market_id;type:bigint;not null;index;uniqueIndex:uq_watchlist_user_market" json:"marketId"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Watchlist) TableName() string { return "watchlists" }
