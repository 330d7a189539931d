package handler

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"PulseLoop/internal/middleware"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts     *service.PostService
	comments  *service.CommentService
	reactions *service.ReactionService
	analytics *service.AnalyticsService
	trending  *service.TrendingService
}

type CreatePostReq struct {
	Text                  string   `json:"text" form:"text"`
	DisplayNamePreference string   `json:"displayNamePreference" form:"displayNamePreference"`
	Tags                  []string `json:"tags"`
}

type UpdatePostReq struct {
	Text string    `json:"text"`
	Tags *[]string `json:"tags"`
}

type CommentReq struct {
	Text            string  `json:"text"`
	ParentCommentID *uint64 `json:"parentCommentId"`
}

type ReactionReq struct {
	Type string `json:"type"`
}

func NewPostHandler(posts *service.PostService, comments *service.CommentService, reactions *service.ReactionService,
	analytics *service.AnalyticsService, trending *service.TrendingService) *PostHandler {
	return &PostHandler{
		posts:     posts,
		comments:  comments,
		reactions: reactions,
		analytics: analytics,
		trending:  trending,
	}
}

// formTags multipart 表单里的 tags 可以是 JSON 数组、逗号分隔或重复字段
func formTags(c *gin.Context) []string {
	raw := c.PostFormArray("tags")
	if len(raw) == 1 {
		var parsed []string
		if json.Unmarshal([]byte(raw[0]), &parsed) == nil {
			return parsed
		}
		return strings.Split(raw[0], ",")
	}
	return raw
}

// CreatePost 创建帖子接口，支持 JSON 或带 media 文件的 multipart
func (h *PostHandler) CreatePost(c *gin.Context) {
	in := service.CreatePostInput{AuthorID: middleware.UserID(c)}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in.Text = c.PostForm("text")
		in.DisplayNamePreference = c.PostForm("displayNamePreference")
		in.Tags = formTags(c)
		if fh, err := c.FormFile("media"); err == nil {
			f, err := fh.Open()
			if err != nil {
				fail(c, err, "read upload failed")
				return
			}
			defer func(f multipart.File) { _ = f.Close() }(f)
			in.Media = f
			in.MediaName = fh.Filename
			in.MediaContentType = fh.Header.Get("Content-Type")
		}
	} else {
		var req CreatePostReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid params")
			return
		}
		in.Text, in.DisplayNamePreference, in.Tags = req.Text, req.DisplayNamePreference, req.Tags
	}

	post, err := h.posts.CreatePost(c.Request.Context(), in)
	if err != nil {
		fail(c, err, "create post failed")
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListPosts 信息流接口
func (h *PostHandler) ListPosts(c *gin.Context) {
	page, err := h.posts.ListPosts(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"), c.Query("tag"), middleware.UserID(c))
	if err != nil {
		fail(c, err, "list posts failed")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) ListUserPosts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.posts.ListUserPosts(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		fail(c, err, "list posts failed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	post, err := h.posts.GetPost(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		fail(c, err, "load post failed")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	post, err := h.posts.UpdatePost(c.Request.Context(), id, middleware.UserID(c), req.Text, req.Tags)
	if err != nil {
		fail(c, err, "update post failed")
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost 删除帖子接口
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.DeletePost(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c)); err != nil {
		fail(c, err, "delete post failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *PostHandler) TogglePostReaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	out, err := h.reactions.TogglePostReaction(c.Request.Context(), id, middleware.UserID(c), req.Type)
	if err != nil {
		fail(c, err, "toggle reaction failed")
		return
	}
	toggled(c, out)
}

func (h *PostHandler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	comment, err := h.comments.AddComment(c.Request.Context(), id, middleware.UserID(c), req.Text, req.ParentCommentID)
	if err != nil {
		fail(c, err, "add comment failed")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *PostHandler) ListComments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tree, err := h.comments.ListComments(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		fail(c, err, "list comments failed")
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.DeleteComment(c.Request.Context(), id, middleware.UserID(c), middleware.Role(c)); err != nil {
		fail(c, err, "delete comment failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

func (h *PostHandler) ToggleCommentReaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	out, err := h.reactions.ToggleCommentReaction(c.Request.Context(), id, middleware.UserID(c), req.Type)
	if err != nil {
		fail(c, err, "toggle reaction failed")
		return
	}
	toggled(c, out)
}

func (h *PostHandler) DiscussionAnalytics(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.analytics.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "load analytics failed")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *PostHandler) TrendingTopics(c *gin.Context) {
	res, err := h.trending.Trending(c.Request.Context(), c.DefaultQuery("period", "24h"), queryInt(c, "limit"))
	if err != nil {
		fail(c, err, "load trending topics failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

// toggled 帖子与评论的点选接口返回同样的结构，message 为 added / removed / changed
func toggled(c *gin.Context, out *service.ToggleOutcome) {
	c.JSON(http.StatusOK, gin.H{
		"message":        out.Result,
		"result":         out.Result,
		"reactionCounts": out.ReactionCounts,
	})
}
