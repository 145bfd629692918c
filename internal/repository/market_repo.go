package repository

import (
	"context"
	"errors"
	"strings"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/config"
	"PolyWatch/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	defaultSort      = "-createdAt"
)

// sortColumns 对外排序字段 -> 列名，不在表内的字段按默认排序
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"volume":    "volume",
	"endDate":   "end_date",
}

// upsertColumns 同步时允许覆盖的列；category_id / created_at 永远不被同步改写
var upsertColumns = []string{"title", "image", "volume", "outcomes", "end_date", "updated_at"}

// MarketQuery 本地市场列表查询条件
type MarketQuery struct {
	Search string // 标题模糊匹配（不区分大小写）
	Sort   string // createdAt|updatedAt|title|volume|endDate，前缀 - 表示倒序
	Limit  int
	Offset int
}

// MarketRepository 本地市场镜像仓储
type MarketRepository interface {
	// List 分页查询，total 与分页无关
	List(ctx context.Context, q MarketQuery) ([]*model.Market, int64, error)
	GetByID(ctx context.Context, id uint64) (*model.Market, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Market, error)
	// Create 插入新市场，external_id 冲突时返回 apperr.Duplicate
	Create(ctx context.Context, m *model.Market) error
	// UpdateCategory 仅修改分类，categoryID 为 nil 表示清空
	UpdateCategory(ctx context.Context, id uint64, categoryID *uint64) (*model.Market, error)
	// Delete 删除市场及其关注记录
	Delete(ctx context.Context, id uint64) error
	// DeleteAll 清空市场与关注记录，返回删除的市场数
	DeleteAll(ctx context.Context) (int64, error)
	// UpsertByExternalID 按 external_id 插入或覆盖上游字段，单条原子
	UpsertByExternalID(ctx context.Context, m *model.Market) error

	// AddWatch 关注市场，已关注时返回已有记录和 true；市场不存在返回 NotFound
	AddWatch(ctx context.Context, userID, marketID uint64) (*model.Watchlist, bool, error)
	// RemoveWatch 取消关注，未关注时返回 NotFound
	RemoveWatch(ctx context.Context, userID, marketID uint64) error
	// ListWatched 用户关注的市场，最近关注的在前
	ListWatched(ctx context.Context, userID uint64) ([]*model.Market, error)
}

type marketRepository struct {
	db           *gorm.DB
	defaultLimit int
	maxLimit     int
}

// NewMarketRepository 创建 MarketRepository 实例，分页上限取自配置（为 0 时用默认值）
func NewMarketRepository(db *gorm.DB, limits config.MarketConfig) MarketRepository {
	r := &marketRepository{db: db, defaultLimit: limits.DefaultLimit, maxLimit: limits.MaxLimit}
	if r.maxLimit <= 0 {
		r.maxLimit = maxListLimit
	}
	if r.defaultLimit <= 0 || r.defaultLimit > r.maxLimit {
		r.defaultLimit = defaultListLimit
	}
	return r
}

func (r *marketRepository) List(ctx context.Context, q MarketQuery) ([]*model.Market, int64, error) {
	limit, offset := ClampPage(q.Limit, q.Offset, r.defaultLimit, r.maxLimit)

	db := r.db.WithContext(ctx).Model(&model.Market{})
	if term := strings.TrimSpace(q.Search); term != "" {
		db = db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(term))+"%")
	}

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, desc := parseSort(q.Sort)
	markets := make([]*model.Market, 0, limit)
	if err := db.Session(&gorm.Session{}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Offset(offset).
		Limit(limit).
		Find(&markets).Error; err != nil {
		return nil, 0, err
	}
	return markets, total, nil
}

func (r *marketRepository) GetByID(ctx context.Context, id uint64) (*model.Market, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id), "Market not found: %d", id)
}

func (r *marketRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Market, error) {
	return r.first(r.db.WithContext(ctx).Where("external_id = ?", externalID), "Market not found: %s", externalID)
}

func (r *marketRepository) first(db *gorm.DB, notFound string, arg interface{}) (*model.Market, error) {
	var m model.Market
	if err := db.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(notFound, arg)
		}
		return nil, err
	}
	return &m, nil
}

func (r *marketRepository) Create(ctx context.Context, m *model.Market) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if IsUniqueViolation(err) {
			return apperr.Duplicate("Market already exists: %s", m.ExternalID)
		}
		return err
	}
	return nil
}

func (r *marketRepository) UpdateCategory(ctx context.Context, id uint64, categoryID *uint64) (*model.Market, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Market{}).
		Where("id = ?", id).
		Update("category_id", categoryID).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *marketRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.first(tx.Where("id = ?", id), "Market not found: %d", id); err != nil {
			return err
		}
		if err := tx.Where("market_id = ?", id).Delete(&model.Watchlist{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Market{}).Error
	})
}

func (r *marketRepository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先清关注记录，再清市场
		if err := tx.Where("1 = 1").Delete(&model.Watchlist{}).Error; err != nil {
			return err
		}
		res := tx.Where("1 = 1").Delete(&model.Market{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *marketRepository) UpsertByExternalID(ctx context.Context, m *model.Market) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(m).Error; err != nil {
		return err
	}
	if m.ID == 0 {
		if err := r.db.WithContext(ctx).Model(m).Where("external_id = ?", m.ExternalID).Select("id").First(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// IsUniqueViolation 判断是否唯一约束冲突（兼容 postgres 与 sqlite 的报错）
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// ClampPage limit <= 0 取默认值、超过上限截断，offset 小于 0 按 0 处理
func ClampPage(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseSort 解析排序参数，非法字段回退到默认排序
func parseSort(sort string) (string, bool) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		sort = defaultSort
	}
	desc := strings.HasPrefix(sort, "-")
	column, ok := sortColumns[strings.TrimPrefix(sort, "-")]
	if !ok {
		return parseSort(defaultSort)
	}
	return column, desc
}

// escapeLike 转义 LIKE 通配符，搜索词按字面匹配
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
