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

type ResourceView struct {
	ID              uint64      `json:"id"`
	AuthorID        uint64      `json:"authorId"`
	Author          *AuthorView `json:"author,omitempty"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Type            string      `json:"type"`
	Content         string      `json:"content"`
	FileURL         string      `json:"fileUrl,omitempty"`
	Status          string      `json:"status"`
	RejectionReason *string     `json:"rejectionReason"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func ToResourceView(r model.Resource) ResourceView {
	return ResourceView{
		ID:              r.ID,
		AuthorID:        r.AuthorID,
		Author:          toAuthorView(r.Author),
		Title:           r.Title,
		Description:     r.Description,
		Type:            string(r.Type),
		Content:         r.Content,
		FileURL:         r.FileURL,
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func ToResourceViews(list []model.Resource) []ResourceView {
	return lo.Map(list, func(r model.Resource, _ int) ResourceView { return ToResourceView(r) })
}

// ResourceInput File 为空表示不上传（更新时保留原文件）
type ResourceInput struct {
	Title       string
	Description string
	Type        string
	Content     string
	File        io.Reader
	FileName    string
}

type ResourceService struct {
	*moderation[model.Resource]
}

func NewResourceService(db *gorm.DB, store storage.Storage, notifier *NotificationService) *ResourceService {
	return &ResourceService{&moderation[model.Resource]{
		repo:     &rdb.ModerationRepository[model.Resource]{DB: db, Kind: "resource"},
		store:    store,
		notifier: notifier,
		kind:     "resource",
	}}
}

func (in ResourceInput) validate() (model.ResourceType, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", pkg.Validation("title is required")
	}
	t, ok := model.ParseResourceType(in.Type)
	if !ok {
		return "", pkg.Validation("type must be FILE, LINK or TEXT")
	}
	if in.hasFile() && !storage.Allowed(in.FileName) {
		return "", pkg.Validation("file type is not allowed")
	}
	return t, nil
}

func (in ResourceInput) hasFile() bool {
	return in.File != nil && in.FileName != ""
}

// Create 新资源进入待审核状态；文件先上传，写库失败时删除
func (s *ResourceService) Create(ctx context.Context, authorID uint64, in ResourceInput) (*model.Resource, error) {
	t, err := in.validate()
	if err != nil {
		return nil, err
	}
	if t == model.ResourceFile && !in.hasFile() {
		return nil, pkg.Validation("a file is required for type FILE")
	}

	res := &model.Resource{
		AuthorID:    authorID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Type:        t,
		Content:     strings.TrimSpace(in.Content),
		Status:      model.StatusPending,
	}
	if in.hasFile() {
		if res.FileURL, err = s.store.Store(ctx, in.File, in.FileName, storage.FolderResources); err != nil {
			return nil, err
		}
	}
	if err = s.repo.Create(ctx, res); err != nil {
		discard(ctx, s.store, res.FileURL)
		return nil, err
	}
	return s.repo.FindByID(ctx, res.ID)
}

// Update 编辑不改变审核状态；换文件时旧文件在写库成功后删除
func (s *ResourceService) Update(ctx context.Context, id, callerID uint64, callerRole model.Role, in ResourceInput) (*model.Resource, error) {
	current, err := s.checkEditor(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	t, err := in.validate()
	if err != nil {
		return nil, err
	}
	if t == model.ResourceFile && !in.hasFile() && current.FileURL == "" {
		return nil, pkg.Validation("a file is required for type FILE")
	}

	fields := map[string]any{
		"title":       strings.TrimSpace(in.Title),
		"description": strings.TrimSpace(in.Description),
		"type":        t,
		"content":     strings.TrimSpace(in.Content),
	}
	var newURL string
	if in.hasFile() {
		if newURL, err = s.store.Store(ctx, in.File, in.FileName, storage.FolderResources); err != nil {
			return nil, err
		}
		fields["file_url"] = newURL
	}
	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		discard(ctx, s.store, newURL)
		return nil, err
	}
	if newURL != "" {
		discard(ctx, s.store, current.FileURL)
	}
	return updated, nil
}
