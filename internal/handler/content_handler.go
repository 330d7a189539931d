package handler

import (
	"net/http"

	"PulseLoop/internal/middleware"
	"PulseLoop/internal/model"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
)

// ResourceHandler 资源的公开读取、投稿与审核
type ResourceHandler struct {
	svc *service.ResourceService
}

func NewResourceHandler(svc *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{svc: svc}
}

// bindResource multipart 表单，文件字段名 file
func bindResource(c *gin.Context) (service.ResourceInput, func(), bool) {
	in := service.ResourceInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Type:        c.PostForm("type"),
		Content:     c.PostForm("content"),
	}
	cleanup := func() {}
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			fail(c, err, "read upload failed")
			return in, cleanup, false
		}
		in.File, in.FileName = f, fh.Filename
		cleanup = func() { _ = f.Close() }
	}
	return in, cleanup, true
}

func (h *ResourceHandler) List(c *gin.Context) {
	list, err := h.svc.ListApproved(c.Request.Context())
	if err != nil {
		fail(c, err, "list resources failed")
		return
	}
	c.JSON(http.StatusOK, service.ToResourceViews(list))
}

func (h *ResourceHandler) Mine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "list resources failed")
		return
	}
	c.JSON(http.StatusOK, service.ToResourceViews(list))
}

func (h *ResourceHandler) Pending(c *gin.Context) {
	list, err := h.svc.ListPending(c.Request.Context())
	if err != nil {
		fail(c, err, "list resources failed")
		return
	}
	c.JSON(http.StatusOK, service.ToResourceViews(list))
}

func (h *ResourceHandler) All(c *gin.Context) {
	list, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err, "list resources failed")
		return
	}
	c.JSON(http.StatusOK, service.ToResourceViews(list))
}

func (h *ResourceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		fail(c, err, "load resource failed")
		return
	}
	c.JSON(http.StatusOK, service.ToResourceView(*res))
}

func (h *ResourceHandler) Create(c *gin.Context) {
	in, cleanup, ok := bindResource(c)
	if !ok {
		return
	}
	defer cleanup()
	res, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		fail(c, err, "create resource failed")
		return
	}
	c.JSON(http.StatusCreated, service.ToResourceView(*res))
}

func (h *ResourceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, cleanup, ok := bindResource(c)
	if !ok {
		return
	}
	defer cleanup()
	res, err := h.svc.Update(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c), in)
	if err != nil {
		fail(c, err, "update resource failed")
		return
	}
	c.JSON(http.StatusOK, service.ToResourceView(*res))
}

func (h *ResourceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c)); err != nil {
		fail(c, err, "delete resource failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource deleted successfully"})
}

// Decide 返回按审核动作绑定的处理函数
func (h *ResourceHandler) Decide(d model.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		res, err := h.svc.Decide(c.Request.Context(), id, d, decisionReason(c), middleware.UserID(c))
		if err != nil {
			fail(c, err, "moderate resource failed")
			return
		}
		c.JSON(http.StatusOK, service.ToResourceView(*res))
	}
}

// decisionReason 驳回理由，body 可为空
func decisionReason(c *gin.Context) string {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	return req.Reason
}

type BlogHandler struct {
	svc *service.BlogService
}

type BlogReq struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	CoverImageURL *string `json:"coverImageUrl"`
}

func NewBlogHandler(svc *service.BlogService) *BlogHandler {
	return &BlogHandler{svc: svc}
}

func (h *BlogHandler) List(c *gin.Context) {
	list, err := h.svc.ListApproved(c.Request.Context())
	if err != nil {
		fail(c, err, "list blogs failed")
		return
	}
	c.JSON(http.StatusOK, service.ToBlogViews(list))
}

func (h *BlogHandler) Mine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "list blogs failed")
		return
	}
	c.JSON(http.StatusOK, service.ToBlogViews(list))
}

func (h *BlogHandler) Pending(c *gin.Context) {
	list, err := h.svc.ListPending(c.Request.Context())
	if err != nil {
		fail(c, err, "list blogs failed")
		return
	}
	c.JSON(http.StatusOK, service.ToBlogViews(list))
}

func (h *BlogHandler) All(c *gin.Context) {
	list, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err, "list blogs failed")
		return
	}
	c.JSON(http.StatusOK, service.ToBlogViews(list))
}

func (h *BlogHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.Get(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		fail(c, err, "load blog failed")
		return
	}
	c.JSON(http.StatusOK, service.ToBlogView(*b))
}

func (h *BlogHandler) Create(c *gin.Context) {
	var req BlogReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	b, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), service.BlogInput{
		Title: req.Title, Content: req.Content, CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		fail(c, err, "create blog failed")
		return
	}
	c.JSON(http.StatusCreated, service.ToBlogView(*b))
}

func (h *BlogHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req BlogReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	b, err := h.svc.Update(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c), service.BlogInput{
		Title: req.Title, Content: req.Content, CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		fail(c, err, "update blog failed")
		return
	}
	c.JSON(http.StatusOK, service.ToBlogView(*b))
}

func (h *BlogHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c)); err != nil {
		fail(c, err, "delete blog failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Blog deleted successfully"})
}

// UploadImage multipart 字段名 image
func (h *BlogHandler) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err, "read upload failed")
		return
	}
	defer f.Close()
	url, err := h.svc.UploadImage(c.Request.Context(), middleware.UserID(c), f, fh.Filename)
	if err != nil {
		fail(c, err, "upload image failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *BlogHandler) Decide(d model.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		b, err := h.svc.Decide(c.Request.Context(), id, d, decisionReason(c), middleware.UserID(c))
		if err != nil {
			fail(c, err, "moderate blog failed")
			return
		}
		c.JSON(http.StatusOK, service.ToBlogView(*b))
	}
}
