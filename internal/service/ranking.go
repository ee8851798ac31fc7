package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cookieboy-api/internal/cache"
	"cookieboy-api/internal/model"
)

// BalanceRanker is the read side RankingService caches.
type BalanceRanker interface {
	TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error)
}

// RankingService serves leaderboards through a short-lived cache.
// Results may lag the ledger by up to ttl.
type RankingService struct {
	source BalanceRanker
	cache  cache.Cache
	ttl    time.Duration
}

// NewRankingService creates a ranking service. A nil cache disables caching.
func NewRankingService(source BalanceRanker, c cache.Cache, ttl time.Duration) *RankingService {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RankingService{source: source, cache: c, ttl: ttl}
}

// TopBalances returns at most limit accounts, richest first.
func (s *RankingService) TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error) {
	if limit <= 0 {
		return []model.RankEntry{}, nil
	}
	if s.cache == nil {
		return s.source.TopBalances(ctx, limit)
	}

	key := fmt.Sprintf("leaderboard:top:%d", limit)
	data, err := s.cache.GetOrSet(ctx, key, s.ttl, func() ([]byte, error) {
		entries, err := s.source.TopBalances(ctx, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entries)
	})
	if err != nil {
		return nil, err
	}

	var entries []model.RankEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[RankingService] Dropping corrupt cache entry %s: %v", key, err)
		s.cache.Delete(ctx, key)
		return s.source.TopBalances(ctx, limit)
	}
	return entries, nil
}
