package service

import (
	"strings"
	"time"

	"PulseLoop/internal/model"
)

type AuthorView struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatarUrl"`
	Title          string `json:"title"`
	ExpertiseLevel string `json:"expertiseLevel"`
}

func toAuthorView(u *model.User) *AuthorView {
	if u == nil {
		return nil
	}
	return &AuthorView{
		ID:             u.ID,
		Name:           u.Name,
		AvatarURL:      u.AvatarURL,
		Title:          u.Title,
		ExpertiseLevel: string(u.ExpertiseLevel),
	}
}

type ReactionView struct {
	UserID uint64 `json:"userId"`
	Type   string `json:"type"`
}

type PostView struct {
	ID             uint64           `json:"id"`
	AuthorID       uint64           `json:"authorId"`
	Text           string           `json:"text"`
	MediaURL       string           `json:"mediaUrl,omitempty"`
	MediaType      string           `json:"mediaType,omitempty"`
	DisplayName    string           `json:"displayName"`
	Tags           []string         `json:"tags"`
	Author         *AuthorView      `json:"author,omitempty"`
	CommentCount   int64            `json:"commentCount"`
	ReactionCounts map[string]int64 `json:"reactionCounts"`
	UserReaction   string           `json:"userReaction,omitempty"`
	Reactions      []ReactionView   `json:"reactions,omitempty"`
	Comments       []*CommentView   `json:"comments,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// toPostView 匿名帖子不暴露作者资料
func toPostView(p model.Post) PostView {
	v := PostView{
		ID:             p.ID,
		AuthorID:       p.AuthorID,
		Text:           p.Text,
		MediaURL:       p.MediaURL,
		MediaType:      string(p.MediaType),
		DisplayName:    p.DisplayName,
		Tags:           []string(p.Tags),
		ReactionCounts: map[string]int64{},
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if p.DisplayName != anonymousName {
		v.Author = toAuthorView(p.Author)
	}
	return v
}

type CommentView struct {
	ID              uint64           `json:"id"`
	PostID          uint64           `json:"postId"`
	AuthorID        uint64           `json:"authorId"`
	ParentCommentID *uint64          `json:"parentCommentId"`
	Text            string           `json:"text"`
	Author          *AuthorView      `json:"author,omitempty"`
	Depth           int              `json:"depth"`
	ReplyCount      int              `json:"replyCount"`
	ReactionCounts  map[string]int64 `json:"reactionCounts"`
	UserReactions   []string         `json:"userReactions"`
	Replies         []*CommentView   `json:"replies"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// buildCommentTree comments 需按创建时间正序，父评论总在子评论之前
func buildCommentTree(comments []model.Comment, counts map[uint64]map[string]int64, mine map[uint64][]string) []*CommentView {
	byID := make(map[uint64]*CommentView, len(comments))
	roots := make([]*CommentView, 0)
	for _, c := range comments {
		v := &CommentView{
			ID:              c.ID,
			PostID:          c.PostID,
			AuthorID:        c.AuthorID,
			ParentCommentID: c.ParentCommentID,
			Text:            c.Text,
			Author:          toAuthorView(c.Author),
			ReactionCounts:  counts[c.ID],
			UserReactions:   mine[c.ID],
			Replies:         []*CommentView{},
			CreatedAt:       c.CreatedAt,
		}
		if v.ReactionCounts == nil {
			v.ReactionCounts = map[string]int64{}
		}
		if v.UserReactions == nil {
			v.UserReactions = []string{}
		}
		byID[c.ID] = v

		if c.ParentCommentID != nil {
			if parent, ok := byID[*c.ParentCommentID]; ok {
				v.Depth = parent.Depth + 1
				parent.Replies = append(parent.Replies, v)
				parent.ReplyCount++
				continue
			}
		}
		roots = append(roots, v)
	}
	return roots
}

// cleanList 去掉首尾空白与空项，保留顺序和重复
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
