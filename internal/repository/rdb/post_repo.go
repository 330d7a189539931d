package rdb

import (
	"context"
	"time"

	"PulseLoop/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

// PostCount 按帖子分组的计数
type PostCount struct {
	PostID uint64
	N      int64
}

// TypeCount 按表态类型分组的计数
type TypeCount struct {
	TargetID uint64
	Type     string
	N        int64
}

// Create 创建帖子并写入 outbox
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventPostCreated, post.ID, post.AuthorID, map[string]any{
			"tags": []string(post.Tags),
		})
	})
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	if err := r.DB.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// List 首页信息流，按时间倒序；tag 非空时只返回含该标签的帖子
func (r *PostRepository) List(ctx context.Context, offset, limit int, tag string) ([]model.Post, int64, error) {
	query := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&model.Post{})
		if tag != "" {
			q = q.Where(tagFilter(r.DB), tag)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []model.Post
	if err := query().Preload("Author").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID uint64) ([]model.Post, error) {
	var posts []model.Post
	err := r.DB.WithContext(ctx).Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	return posts, err
}

// ListSince 时间窗口内的帖子，用于热门话题统计
func (r *PostRepository) ListSince(ctx context.Context, since time.Time) ([]model.Post, error) {
	var posts []model.Post
	err := r.DB.WithContext(ctx).
		Select("id", "tags", "created_at").
		Where("created_at >= ?", since).
		Find(&posts).Error
	return posts, err
}

// UpdateContent 只更新正文和标签，显示名保持创建时的快照
func (r *PostRepository) UpdateContent(ctx context.Context, post *model.Post, text string, tags []string) error {
	post.Text = text
	post.Tags = tags
	return r.DB.WithContext(ctx).Model(post).Select("text", "tags", "updated_at").Updates(post).Error
}

// Delete 级联删除评论、表态与分析数据，返回帖子的媒体地址以便清理文件
func (r *PostRepository) Delete(ctx context.Context, postID, actorID uint64) (string, error) {
	var mediaURL string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e error
		if mediaURL, e = deletePostTx(tx, postID); e != nil {
			return e
		}
		return insertOutbox(tx, model.EventPostDeleted, postID, actorID, nil)
	})
	return mediaURL, err
}

func deletePostTx(tx *gorm.DB, postID uint64) (string, error) {
	var post model.Post
	if err := tx.Select("id", "media_url").First(&post, postID).Error; err != nil {
		return "", err
	}
	commentIDs := tx.Model(&model.Comment{}).Select("id").Where("post_id = ?", postID)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&model.CommentReaction{}).Error; err != nil {
		return "", err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&model.Comment{}).Error; err != nil {
		return "", err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&model.Reaction{}).Error; err != nil {
		return "", err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&model.DiscussionAnalytics{}).Error; err != nil {
		return "", err
	}
	if err := tx.Delete(&model.Post{}, postID).Error; err != nil {
		return "", err
	}
	return post.MediaURL, nil
}

// CommentCounts 批量统计帖子评论数
func (r *PostRepository) CommentCounts(ctx context.Context, postIDs []uint64) (map[uint64]int64, error) {
	return groupCount(r.DB.WithContext(ctx).Model(&model.Comment{}), postIDs)
}

// ReactionCounts 批量统计帖子表态数
func (r *PostRepository) ReactionCounts(ctx context.Context, postIDs []uint64) (map[uint64]int64, error) {
	return groupCount(r.DB.WithContext(ctx).Model(&model.Reaction{}), postIDs)
}

func groupCount(q *gorm.DB, postIDs []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []PostCount
	if err := q.Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = row.N
	}
	return out, nil
}

// tagFilter JSON 数组包含判断，各方言写法不同
func tagFilter(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON_CONTAINS(posts.tags, JSON_QUOTE(?))"
	case "postgres":
		return "posts.tags::jsonb @> jsonb_build_array(?::text)"
	default:
		return "EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)"
	}
}
