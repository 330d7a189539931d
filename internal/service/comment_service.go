package service

import (
	"context"
	"strings"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type CommentService struct {
	repo     *rdb.CommentRepository
	posts    *rdb.PostRepository
	notifier *NotificationService
}

func NewCommentService(db *gorm.DB, notifier *NotificationService) *CommentService {
	return &CommentService{
		repo:     &rdb.CommentRepository{DB: db},
		posts:    &rdb.PostRepository{DB: db},
		notifier: notifier,
	}
}

// AddComment 发表评论或回复，提交后通知帖子作者与被回复者
func (s *CommentService) AddComment(ctx context.Context, postID, authorID uint64, text string, parentID *uint64) (*CommentView, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, repoErr(err, "post not found")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkg.Validation("comment text is required")
	}

	var parent *model.Comment
	if parentID != nil {
		parent, err = s.repo.FindByID(ctx, *parentID)
		if err != nil {
			if pkg.KindOf(err) == pkg.KindNotFound {
				return nil, pkg.Validation("parent comment does not exist")
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, pkg.Validation("parent comment belongs to another post")
		}
	}

	c := &model.Comment{
		PostID:          postID,
		AuthorID:        authorID,
		ParentCommentID: parentID,
		Text:            text,
	}
	if err = s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	saved, err := s.repo.FindByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	data := map[string]any{"post_id": postID, "comment_id": c.ID}
	notifiedReply := false
	if parent != nil && parent.AuthorID != authorID {
		s.notifier.notifyQuietly(ctx, parent.AuthorID, model.NotifyCommentReply,
			"New reply", authorName(saved)+" replied to your comment", data)
		notifiedReply = true
	}
	if post.AuthorID != authorID && !(notifiedReply && parent.AuthorID == post.AuthorID) {
		s.notifier.notifyQuietly(ctx, post.AuthorID, model.NotifyPostComment,
			"New comment", authorName(saved)+" commented on your post", data)
	}

	tree := buildCommentTree([]model.Comment{*saved}, nil, nil)
	if parent != nil {
		// 单独返回时深度需以父评论为基准
		tree[0].Depth = s.depth(ctx, parent) + 1
	}
	return tree[0], nil
}

func (s *CommentService) depth(ctx context.Context, c *model.Comment) int {
	d := 0
	for c.ParentCommentID != nil {
		p, err := s.repo.FindByID(ctx, *c.ParentCommentID)
		if err != nil {
			break
		}
		c = p
		d++
	}
	return d
}

func authorName(c *model.Comment) string {
	if c.Author != nil && c.Author.Name != "" {
		return c.Author.Name
	}
	return "Someone"
}

// ListComments 帖子下的评论树
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint64) ([]*CommentView, error) {
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.NotFound("post not found")
	}
	comments, err := s.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(comments, func(c model.Comment, _ int) uint64 { return c.ID })
	counts, err := s.repo.ReactionCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine, err := s.repo.UserReactions(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	return buildCommentTree(comments, counts, mine), nil
}

// DeleteComment 作者或管理员可删除，连同所有回复
func (s *CommentService) DeleteComment(ctx context.Context, commentID, callerID uint64, callerRole model.Role) error {
	c, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		return repoErr(err, "comment not found")
	}
	if c.AuthorID != callerID && callerRole != model.RoleAdmin {
		return pkg.Forbidden("only the author or an admin can delete this comment")
	}
	return s.repo.Delete(ctx, c)
}
