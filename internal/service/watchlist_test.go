package service

import (
	"context"
	"errors"
	"testing"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/model"
)

func TestWatchMarket_RegistersMissingMarket(t *testing.T) {
	src := &fakeSource{markets: map[string]model.RawMarket{"77": {"id": "77", "question": "Watched?"}}}
	svc, repo := newMarketService(src)
	ctx := context.Background()

	res, err := svc.WatchMarket(ctx, 5, "77")
	if err != nil {
		t.Fatalf("WatchMarket failed: %v", err)
	}
	if res.AlreadyWatched || res.Market.Title != "Watched?" || res.Watch.MarketID != res.Market.ID {
		t.Fatalf("unexpected result %+v", res)
	}
	if repo.count() != 1 {
		t.Fatalf("market should be mirrored locally, count = %d", repo.count())
	}

	src.err = errors.New("upstream should not be called")
	again, err := svc.WatchMarket(ctx, 5, "77")
	if err != nil {
		t.Fatalf("repeat WatchMarket failed: %v", err)
	}
	if !again.AlreadyWatched || again.Watch.ID != res.Watch.ID {
		t.Fatalf("repeat watch should be idempotent: %+v", again)
	}

	got, err := svc.ListWatched(ctx, 5)
	if err != nil || len(got) != 1 || got[0].ExternalID != "77" {
		t.Fatalf("ListWatched = %+v, %v", got, err)
	}
	if got, _ := svc.ListWatched(ctx, 6); len(got) != 0 {
		t.Fatalf("other users see nothing, got %+v", got)
	}
}

func TestWatchMarket_Errors(t *testing.T) {
	src := &fakeSource{markets: map[string]model.RawMarket{"1": {"id": "1"}}}
	svc, repo := newMarketService(src)
	ctx := context.Background()

	if _, err := svc.WatchMarket(ctx, 0, "1"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("missing user: got %v", err)
	}
	if _, err := svc.WatchMarket(ctx, 1, ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("missing market id: got %v", err)
	}
	if _, err := svc.WatchMarket(ctx, 1, "unknown"); !errors.Is(err, apperr.ErrInvalidExternalID) {
		t.Fatalf("unknown upstream id: got %v", err)
	}
	if repo.count() != 0 {
		t.Fatalf("failed watches must not create markets, count = %d", repo.count())
	}
	if err := svc.UnwatchMarket(ctx, 1, 42); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unwatch missing entry: got %v", err)
	}
}

func TestDeleteMarket_DropsWatches(t *testing.T) {
	src := &fakeSource{markets: map[string]model.RawMarket{"1": {"id": "1"}, "2": {"id": "2"}}}
	svc, _ := newMarketService(src)
	ctx := context.Background()

	first, _ := svc.WatchMarket(ctx, 1, "1")
	if _, err := svc.WatchMarket(ctx, 1, "2"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := svc.DeleteMarket(ctx, first.Market.ID); err != nil {
		t.Fatalf("DeleteMarket: %v", err)
	}
	got, _ := svc.ListWatched(ctx, 1)
	if len(got) != 1 || got[0].ExternalID != "2" {
		t.Fatalf("deleted market still watched: %+v", got)
	}
	if err := svc.UnwatchMarket(ctx, 1, got[0].ID); err != nil {
		t.Fatalf("UnwatchMarket: %v", err)
	}
	if got, _ := svc.ListWatched(ctx, 1); len(got) != 0 {
		t.Fatalf("watchlist should be empty: %+v", got)
	}
}
