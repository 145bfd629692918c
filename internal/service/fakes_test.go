package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/model"
	"PolyWatch/internal/repository"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeRepo 内存实现，external_id 唯一约束由 Create 在锁内保证
type fakeRepo struct {
	mu        sync.Mutex
	nextID    uint64
	byID      map[uint64]*model.Market
	upsertErr func(m *model.Market) error
	creates   int
	watches   []*model.Watchlist
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uint64]*model.Market{}}
}

func (f *fakeRepo) findExternal(externalID string) *model.Market {
	for _, m := range f.byID {
		if m.ExternalID == externalID {
			return m
		}
	}
	return nil
}

func (f *fakeRepo) List(ctx context.Context, q repository.MarketQuery) ([]*model.Market, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Market, 0, len(f.byID))
	for _, m := range f.byID {
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uint64) (*model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("Market not found: %d", id)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.findExternal(externalID)
	if m == nil {
		return nil, apperr.NotFound("Market not found: %s", externalID)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) Create(ctx context.Context, m *model.Market) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.findExternal(m.ExternalID) != nil {
		return apperr.Duplicate("Market already exists: %s", m.ExternalID)
	}
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateCategory(ctx context.Context, id uint64, categoryID *uint64) (*model.Market, error) {
	f.mu.Lock()
	m, ok := f.byID[id]
	if ok {
		m.CategoryID = categoryID
	}
	f.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("Market not found: %d", id)
	}
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) Delete(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return apperr.NotFound("Market not found: %d", id)
	}
	delete(f.byID, id)
	kept := f.watches[:0]
	for _, w := range f.watches {
		if w.MarketID != id {
			kept = append(kept, w)
		}
	}
	f.watches = kept
	return nil
}

func (f *fakeRepo) DeleteAll(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.byID))
	f.byID = map[uint64]*model.Market{}
	f.watches = nil
	return n, nil
}

func (f *fakeRepo) AddWatch(ctx context.Context, userID, marketID uint64) (*model.Watchlist, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[marketID]; !ok {
		return nil, false, apperr.NotFound("Market not found: %d", marketID)
	}
	for _, w := range f.watches {
		if w.UserID == userID && w.MarketID == marketID {
			return w, true, nil
		}
	}
	w := &model.Watchlist{ID: uint64(len(f.watches) + 1), UserID: userID, MarketID: marketID}
	f.watches = append(f.watches, w)
	return w, false, nil
}

func (f *fakeRepo) RemoveWatch(ctx context.Context, userID, marketID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, w := range f.watches {
		if w.UserID == userID && w.MarketID == marketID {
			f.watches = append(f.watches[:i], f.watches[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("Watchlist entry not found: user %d, market %d", userID, marketID)
}

func (f *fakeRepo) ListWatched(ctx context.Context, userID uint64) ([]*model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Market, 0)
	for i := len(f.watches) - 1; i >= 0; i-- {
		if w := f.watches[i]; w.UserID == userID {
			cp := *f.byID[w.MarketID]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpsertByExternalID(ctx context.Context, m *model.Market) error {
	if f.upsertErr != nil {
		if err := f.upsertErr(m); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing := f.findExternal(m.ExternalID); existing != nil {
		existing.Title = m.Title
		existing.Image = m.Image
		existing.Volume = m.Volume
		existing.Outcomes = m.Outcomes
		existing.EndDate = m.EndDate
		m.ID = existing.ID
		return nil
	}
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// fakeSource 上游假实现；barrier 非空时每次 FetchMarketByID 都要等它放行
type fakeSource struct {
	markets map[string]model.RawMarket
	tags    map[string]*model.TagMarkets
	err     error
	barrier *sync.WaitGroup
}

func (f *fakeSource) FetchMarketByID(ctx context.Context, id string) (model.RawMarket, error) {
	if f.barrier != nil {
		f.barrier.Done()
		f.barrier.Wait()
	}
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.markets[id]
	if !ok {
		return nil, apperr.NotFound("Market not found: %s", id)
	}
	return m, nil
}

func (f *fakeSource) SearchMarkets(ctx context.Context, query string, limit, offset int) ([]model.RawMarket, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSource) GetMarketsByTag(ctx context.Context, slug string, limit int) (*model.TagMarkets, error) {
	if f.err != nil {
		return nil, f.err
	}
	tm, ok := f.tags[slug]
	if !ok {
		return nil, apperr.TagNotFound(slug)
	}
	return tm, nil
}

func (f *fakeSource) GetTechMarkets(ctx context.Context, limit, offset int, search string) (*model.TagMarkets, error) {
	return f.GetMarketsByTag(ctx, "tech", limit)
}

func (f *fakeSource) Invalidate(keys ...string) {}
