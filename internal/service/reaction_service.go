package service

import (
	"context"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"

	"gorm.io/gorm"
)

type ToggleOutcome struct {
	Result         model.ToggleResult `json:"result"`
	ReactionCounts map[string]int64   `json:"reactionCounts"`
}

type ReactionService struct {
	repo     *rdb.ReactionRepository
	posts    *rdb.PostRepository
	comments *rdb.CommentRepository
	users    *rdb.UserRepository
	notifier *NotificationService
}

func NewReactionService(db *gorm.DB, notifier *NotificationService) *ReactionService {
	return &ReactionService{
		repo:     &rdb.ReactionRepository{DB: db},
		posts:    &rdb.PostRepository{DB: db},
		comments: &rdb.CommentRepository{DB: db},
		users:    &rdb.UserRepository{DB: db},
		notifier: notifier,
	}
}

// TogglePostReaction 同类型取消、不同类型替换、没有则新增；只有新增会通知作者
func (s *ReactionService) TogglePostReaction(ctx context.Context, postID, userID uint64, typ string) (*ToggleOutcome, error) {
	t, ok := model.ParseReactionType(typ)
	if !ok {
		return nil, pkg.Validation("invalid reaction type")
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, repoErr(err, "post not found")
	}
	result, err := s.repo.TogglePost(ctx, postID, userID, t)
	if err != nil {
		return nil, repoErr(err, "post not found")
	}

	if result == model.ToggleAdded && post.AuthorID != userID {
		s.notifier.notifyQuietly(ctx, post.AuthorID, model.NotifyPostReaction,
			"New reaction", s.actorName(ctx, userID)+" reacted to your post",
			map[string]any{"post_id": postID, "reaction_type": string(t)})
	}

	counts, err := s.repo.CountsByPosts(ctx, []uint64{postID})
	if err != nil {
		return nil, err
	}
	out := &ToggleOutcome{Result: result, ReactionCounts: counts[postID]}
	if out.ReactionCounts == nil {
		out.ReactionCounts = map[string]int64{}
	}
	return out, nil
}

// ToggleCommentReaction 赞踩互斥，HELPFUL / EXPERT 可叠加
func (s *ReactionService) ToggleCommentReaction(ctx context.Context, commentID, userID uint64, typ string) (*ToggleOutcome, error) {
	t, ok := model.ParseCommentReactionType(typ)
	if !ok {
		return nil, pkg.Validation("invalid reaction type")
	}
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, repoErr(err, "comment not found")
	}
	result, err := s.repo.ToggleComment(ctx, c, userID, t)
	if err != nil {
		return nil, repoErr(err, "comment not found")
	}

	if result == model.ToggleAdded && c.AuthorID != userID {
		s.notifier.notifyQuietly(ctx, c.AuthorID, model.NotifyCommentReaction,
			"New reaction", s.actorName(ctx, userID)+" reacted to your comment",
			map[string]any{"post_id": c.PostID, "comment_id": c.ID, "reaction_type": string(t)})
	}

	counts, err := s.comments.ReactionCounts(ctx, []uint64{commentID})
	if err != nil {
		return nil, err
	}
	out := &ToggleOutcome{Result: result, ReactionCounts: counts[commentID]}
	if out.ReactionCounts == nil {
		out.ReactionCounts = map[string]int64{}
	}
	return out, nil
}

func (s *ReactionService) actorName(ctx context.Context, userID uint64) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u.Name == "" {
		return "Someone"
	}
	return u.Name
}
