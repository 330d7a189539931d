package service

import (
	"context"
	"io"
	"strings"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"
	"PulseLoop/internal/storage"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type CreatePostInput struct {
	AuthorID              uint64
	Text                  string
	DisplayNamePreference string
	Tags                  []string

	// 可选媒体文件
	Media            io.Reader
	MediaName        string
	MediaContentType string
}

type PostPage struct {
	Posts []PostView `json:"posts"`
	Total int64      `json:"total"`
}

type PostService struct {
	repo      *rdb.PostRepository
	users     *rdb.UserRepository
	comments  *rdb.CommentRepository
	reactions *rdb.ReactionRepository
	store     storage.Storage
}

func NewPostService(db *gorm.DB, store storage.Storage) *PostService {
	return &PostService{
		repo:      &rdb.PostRepository{DB: db},
		users:     &rdb.UserRepository{DB: db},
		comments:  &rdb.CommentRepository{DB: db},
		reactions: &rdb.ReactionRepository{DB: db},
		store:     store,
	}
}

// CreatePost 创建帖子；媒体先上传，写库失败时删除
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*PostView, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, pkg.Validation("post text is required")
	}
	pref, ok := model.ParseDisplayNamePreference(in.DisplayNamePreference)
	if !ok {
		return nil, pkg.Validation("displayNamePreference must be FullName, Initials or Anonymous")
	}
	author, err := s.users.FindByID(ctx, in.AuthorID)
	if err != nil {
		return nil, repoErr(err, "author not found")
	}

	post := &model.Post{
		AuthorID:    author.ID,
		Text:        text,
		DisplayName: DisplayName(author.Name, pref),
		Tags:        cleanList(in.Tags),
	}
	if in.Media != nil && in.MediaName != "" {
		if !storage.Allowed(in.MediaName) {
			return nil, pkg.Validation("media file type is not allowed")
		}
		url, err := s.store.Store(ctx, in.Media, in.MediaName, storage.FolderPosts)
		if err != nil {
			return nil, err
		}
		post.MediaURL = url
		post.MediaType = model.MediaImage
		if strings.HasPrefix(in.MediaContentType, "video/") || storage.IsVideo(in.MediaName) {
			post.MediaType = model.MediaVideo
		}
	}

	if err = s.repo.Create(ctx, post); err != nil {
		discard(ctx, s.store, post.MediaURL)
		return nil, err
	}
	post.Author = author
	v := toPostView(*post)
	return &v, nil
}

// UpdatePost 只有作者本人可以修改；tags 为 nil 时保持不变
func (s *PostService) UpdatePost(ctx context.Context, postID, callerID uint64, text string, tags *[]string) (*PostView, error) {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, repoErr(err, "post not found")
	}
	if post.AuthorID != callerID {
		return nil, pkg.Forbidden("only the author can edit this post")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkg.Validation("post text is required")
	}
	newTags := []string(post.Tags)
	if tags != nil {
		newTags = cleanList(*tags)
	}
	if err = s.repo.UpdateContent(ctx, post, text, newTags); err != nil {
		return nil, err
	}
	views, err := s.decorate(ctx, []model.Post{*post}, callerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePost 作者或管理员可以删除，媒体文件在提交后清理
func (s *PostService) DeletePost(ctx context.Context, postID, callerID uint64, callerRole model.Role) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return repoErr(err, "post not found")
	}
	if post.AuthorID != callerID && callerRole != model.RoleAdmin {
		return pkg.Forbidden("only the author or an admin can delete this post")
	}
	media, err := s.repo.Delete(ctx, postID, callerID)
	if err != nil {
		return repoErr(err, "post not found")
	}
	discard(ctx, s.store, media)
	return nil
}

// ListPosts 信息流，默认每页 10 条，最多 100 条
func (s *PostService) ListPosts(ctx context.Context, page, limit int, tag string, viewerID uint64) (*PostPage, error) {
	offset, size := rdb.Page(page, limit, 10, 100)
	posts, total, err := s.repo.List(ctx, offset, size, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	views, err := s.decorate(ctx, posts, viewerID)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: views, Total: total}, nil
}

func (s *PostService) ListUserPosts(ctx context.Context, userID, viewerID uint64) ([]PostView, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, repoErr(err, "user not found")
	}
	posts, err := s.repo.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, posts, viewerID)
}

// GetPost 帖子详情，附带评论树与表态列表
func (s *PostService) GetPost(ctx context.Context, postID, viewerID uint64) (*PostView, error) {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, repoErr(err, "post not found")
	}
	views, err := s.decorate(ctx, []model.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}
	v := views[0]

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(comments, func(c model.Comment, _ int) uint64 { return c.ID })
	counts, err := s.comments.ReactionCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine, err := s.comments.UserReactions(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	v.Comments = buildCommentTree(comments, counts, mine)

	reactions, err := s.reactions.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	v.Reactions = lo.Map(reactions, func(r model.Reaction, _ int) ReactionView {
		return ReactionView{UserID: r.UserID, Type: string(r.Type)}
	})
	return &v, nil
}

// decorate 批量补齐评论数、表态统计与当前用户的表态
func (s *PostService) decorate(ctx context.Context, posts []model.Post, viewerID uint64) ([]PostView, error) {
	ids := lo.Map(posts, func(p model.Post, _ int) uint64 { return p.ID })
	commentCounts, err := s.repo.CommentCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	reactionCounts, err := s.reactions.CountsByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine, err := s.reactions.UserReactions(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(posts, func(p model.Post, _ int) PostView {
		v := toPostView(p)
		v.CommentCount = commentCounts[p.ID]
		if rc := reactionCounts[p.ID]; rc != nil {
			v.ReactionCounts = rc
		}
		v.UserReaction = mine[p.ID]
		return v
	}), nil
}
