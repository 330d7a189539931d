package service

import (
	"context"
	"sort"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/repository/rdb"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

var trendingWindows = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

const defaultTrendingPeriod = "24h"

type TrendingTopic struct {
	Tag           string  `json:"tag"`
	PostCount     int64   `json:"post_count"`
	CommentCount  int64   `json:"comment_count"`
	ReactionCount int64   `json:"reaction_count"`
	Score         float64 `json:"score"`
}

type TrendingResult struct {
	TrendingTopics []TrendingTopic `json:"trending_topics"`
	Period         string          `json:"period"`
	TotalTopics    int             `json:"total_topics"`
}

type TrendingService struct {
	posts *rdb.PostRepository
	now   func() time.Time
}

func NewTrendingService(db *gorm.DB) *TrendingService {
	return &TrendingService{posts: &rdb.PostRepository{DB: db}, now: time.Now}
}

// Trending 统计窗口内各标签热度，limit 超出 1..50 时取 10；同一帖子重复的标签按出现次数累计，total 为截断前的标签数
func (s *TrendingService) Trending(ctx context.Context, period string, limit int) (*TrendingResult, error) {
	window, ok := trendingWindows[period]
	if !ok {
		period, window = defaultTrendingPeriod, trendingWindows[defaultTrendingPeriod]
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	posts, err := s.posts.ListSince(ctx, s.now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}
	ids := lo.Map(posts, func(p model.Post, _ int) uint64 { return p.ID })
	comments, err := s.posts.CommentCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	reactions, err := s.posts.ReactionCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	byTag := map[string]*TrendingTopic{}
	for _, p := range posts {
		c, r := comments[p.ID], reactions[p.ID]
		for _, tag := range p.Tags {
			t, ok := byTag[tag]
			if !ok {
				t = &TrendingTopic{Tag: tag}
				byTag[tag] = t
			}
			t.PostCount++
			t.CommentCount += c
			t.ReactionCount += r
			t.Score += 1 + 0.5*float64(c) + 0.3*float64(r)
		}
	}

	topics := lo.Map(lo.Values(byTag), func(t *TrendingTopic, _ int) TrendingTopic { return *t })
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Score != topics[j].Score {
			return topics[i].Score > topics[j].Score
		}
		return topics[i].Tag < topics[j].Tag
	})
	total := len(topics)
	if total > limit {
		topics = topics[:limit]
	}
	return &TrendingResult{TrendingTopics: topics, Period: period, TotalTopics: total}, nil
}
