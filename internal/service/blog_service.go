package service

import (
	"context"
	"io"
	"strings"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"
	"PulseLoop/internal/storage"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type BlogView struct {
	ID              uint64      `json:"id"`
	AuthorID        uint64      `json:"authorId"`
	Author          *AuthorView `json:"author,omitempty"`
	Title           string      `json:"title"`
	Content         string      `json:"content"`
	CoverImageURL   string      `json:"coverImageUrl,omitempty"`
	Status          string      `json:"status"`
	RejectionReason *string     `json:"rejectionReason"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func ToBlogView(b model.Blog) BlogView {
	return BlogView{
		ID:              b.ID,
		AuthorID:        b.AuthorID,
		Author:          toAuthorView(b.Author),
		Title:           b.Title,
		Content:         b.Content,
		CoverImageURL:   b.CoverImageURL,
		Status:          string(b.Status),
		RejectionReason: b.RejectionReason,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func ToBlogViews(list []model.Blog) []BlogView {
	return lo.Map(list, func(b model.Blog, _ int) BlogView { return ToBlogView(b) })
}

// BlogInput CoverImageURL 为 nil 表示不修改封面
type BlogInput struct {
	Title         string
	Content       string
	CoverImageURL *string
}

type BlogService struct {
	*moderation[model.Blog]
}

func NewBlogService(db *gorm.DB, store storage.Storage, notifier *NotificationService) *BlogService {
	return &BlogService{&moderation[model.Blog]{
		repo:     &rdb.ModerationRepository[model.Blog]{DB: db, Kind: "blog"},
		store:    store,
		notifier: notifier,
		kind:     "blog",
		ownsFile: func(owner uint64, url string) bool {
			return storage.OwnedBy(url, storage.FolderBlogs, owner)
		},
	}}
}

func (in BlogInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return pkg.Validation("title and content are required")
	}
	return nil
}

func (s *BlogService) Create(ctx context.Context, authorID uint64, in BlogInput) (*model.Blog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	b := &model.Blog{
		AuthorID: authorID,
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		Status:   model.StatusPending,
	}
	if in.CoverImageURL != nil {
		b.CoverImageURL = strings.TrimSpace(*in.CoverImageURL)
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, b.ID)
}

// Update 编辑不改变审核状态；封面被替换时删除旧图
func (s *BlogService) Update(ctx context.Context, id, callerID uint64, callerRole model.Role, in BlogInput) (*model.Blog, error) {
	current, err := s.checkEditor(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	if err = in.validate(); err != nil {
		return nil, err
	}
	fields := map[string]any{
		"title":   strings.TrimSpace(in.Title),
		"content": in.Content,
	}
	newCover := current.CoverImageURL
	if in.CoverImageURL != nil {
		newCover = strings.TrimSpace(*in.CoverImageURL)
		fields["cover_image_url"] = newCover
	}
	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if newCover != current.CoverImageURL {
		s.discardFile(ctx, current.AuthorID, current.CoverImageURL)
	}
	return updated, nil
}

// UploadImage 博客正文或封面图片；封面地址由客户端回传，文件名带上传者标记
func (s *BlogService) UploadImage(ctx context.Context, uploaderID uint64, r io.Reader, filename string) (string, error) {
	if !storage.IsImage(filename) {
		return "", pkg.Validation("only image files are allowed")
	}
	return s.store.Store(ctx, r, storage.OwnedName(uploaderID, filename), storage.FolderBlogs)
}
