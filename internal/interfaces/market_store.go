package interfaces

import (
	"context"

	"PolyWatch/internal/model"
)

// MarketStore 同步写入本地镜像所需的最小存储接口
type MarketStore interface {
	// UpsertByExternalID 按 external_id 插入或覆盖上游字段（单条原子）
	UpsertByExternalID(ctx context.Context, m *model.Market) error
}
